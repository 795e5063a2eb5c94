package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// ReviewRequestStore defines the driven port for reviewer-assignment persistence.
type ReviewRequestStore interface {
	// Upsert inserts the review request or, on (pull_request_id, reviewer_id)
	// conflict, updates status and completion timestamp.
	Upsert(ctx context.Context, rr model.ReviewRequest) error
	Get(ctx context.Context, prID, reviewerID int64) (*model.ReviewRequest, error)
	ListByPR(ctx context.Context, prID int64) ([]model.ReviewRequest, error)
}
