package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// UserStore defines the driven port for cross-platform identity persistence.
type UserStore interface {
	// Ensure returns the user with the given GitHub login, creating a
	// placeholder row if none exists. Creation is race-safe: two concurrent
	// calls for the same login converge on one row.
	Ensure(ctx context.Context, orgID int64, githubLogin string) (*model.User, error)
	GetByGitHubLogin(ctx context.Context, orgID int64, login string) (*model.User, error)
	GetBySlackUserID(ctx context.Context, orgID int64, slackUserID string) (*model.User, error)
	Update(ctx context.Context, user model.User) error
}
