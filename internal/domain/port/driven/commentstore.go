package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// CommentStore defines the driven port for the comment mapping store.
// ExternalID is unique within a pull request; Create resolves duplicate
// inbound delivery to the existing row instead of inserting a second one.
type CommentStore interface {
	// Create inserts the comment and returns its row id. If a row with the
	// same (pull_request_id, external_id) already exists, the existing row's
	// id is returned and the insert is a no-op.
	Create(ctx context.Context, c model.Comment) (int64, error)
	GetByExternalID(ctx context.Context, prID int64, externalID string) (*model.Comment, error)
	// GetByThread returns the thread root: the comment whose own message
	// timestamp equals the given thread timestamp.
	GetByThread(ctx context.Context, prID int64, threadTS string) (*model.Comment, error)
	UpdateBody(ctx context.Context, id int64, body string) error
	ListByPR(ctx context.Context, prID int64) ([]model.Comment, error)
}
