package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// GitHubClient defines the driven port for interacting with the GitHub API.
// Read methods fetch data the webhook payload does not carry; write methods
// post comments on behalf of the relay.
type GitHubClient interface {
	// FetchReviewComments returns the inline comments belonging to a single
	// submitted review. Used by the echo classifier's lone-comment check.
	FetchReviewComments(ctx context.Context, repoFullName string, prNumber int, reviewID int64) ([]model.InlineComment, error)
	// FetchComment returns a single review comment by id. Used to backfill
	// a reply's parent that was never seen via webhook.
	FetchComment(ctx context.Context, repoFullName string, commentID int64) (*model.InlineComment, error)

	// CreateIssueComment adds a PR-level comment via the Issues API and
	// returns the new comment's id.
	CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) (int64, error)
	// CreateReplyComment replies to an existing review comment thread and
	// returns the new comment's id. inReplyTo must be the thread root's id.
	CreateReplyComment(ctx context.Context, repoFullName string, prNumber int, inReplyTo int64, body string) (int64, error)
}

// GitHubClients resolves a GitHubClient for a set of credentials. The engine
// is multi-tenant: organization service tokens and linked per-user tokens
// each get their own client.
type GitHubClients interface {
	ForToken(token string) GitHubClient
}
