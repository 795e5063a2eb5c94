package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// PRStore defines the driven port for pull request persistence.
type PRStore interface {
	// Upsert inserts the PR or, on (repo_id, number) conflict, updates the
	// mutable fields. Returns the row id in either case.
	Upsert(ctx context.Context, pr model.PullRequest) (int64, error)
	GetByNumber(ctx context.Context, repoID int64, number int) (*model.PullRequest, error)
	GetByChannelID(ctx context.Context, channelID string) (*model.PullRequest, error)
	ListByRepo(ctx context.Context, repoID int64) ([]model.PullRequest, error)
	// ListClosedBefore returns PRs closed or merged before the cutoff that
	// still own a live channel. Used by the archival reconciler.
	ListClosedBefore(ctx context.Context, cutoff time.Time) ([]model.PullRequest, error)
	SetChannel(ctx context.Context, id int64, channelID string, archived bool) error
	SetStatus(ctx context.Context, id int64, status model.PRStatus, closedAt *time.Time) error
}
