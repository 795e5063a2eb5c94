package application

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// EchoClassifier decides whether an inbound GitHub event is the webhook echo
// of content prbridge itself posted on behalf of a Slack user. Suppressing
// echoes is what keeps the relay loop from oscillating.
type EchoClassifier struct {
	comments driven.CommentStore
	github   driven.GitHubClients
	logger   *slog.Logger
}

// NewEchoClassifier creates an echo classifier.
func NewEchoClassifier(comments driven.CommentStore, github driven.GitHubClients, logger *slog.Logger) *EchoClassifier {
	return &EchoClassifier{
		comments: comments,
		github:   github,
		logger:   logger,
	}
}

// SuppressComment reports whether a comment event should be dropped as an
// echo. A comment is an echo when a chat-origin row already exists for its
// external ID, or when its body carries the embedded origin marker. Store
// errors fail open: a duplicate message in Slack beats a silently dropped
// one.
func (c *EchoClassifier) SuppressComment(ctx context.Context, prID int64, externalID, body string) bool {
	row, err := c.comments.GetByExternalID(ctx, prID, externalID)
	if err != nil {
		c.logger.Error("echo lookup failed, treating comment as genuine",
			"pull_request_id", prID, "external_id", externalID, "error", err)
		return false
	}
	if row != nil && row.Origin == model.CommentOriginSlack {
		return true
	}
	return hasOriginMarker(body)
}

// SuppressReview reports whether an empty-bodied "commented" review is the
// container GitHub manufactures around a single relayed reply. Such reviews
// produce no content of their own; the reply they wrap arrives as its own
// review comment event. API errors fail open.
func (c *EchoClassifier) SuppressReview(ctx context.Context, org *model.Organization, prID int64, repoFullName string, prNumber int, reviewID int64) bool {
	client := c.github.ForToken(org.GitHubToken)
	children, err := client.FetchReviewComments(ctx, repoFullName, prNumber, reviewID)
	if err != nil {
		c.logger.Error("review comment fetch failed, treating review as genuine",
			"repo", repoFullName, "pr", prNumber, "review_id", reviewID, "error", err)
		return false
	}
	if len(children) != 1 {
		return false
	}
	child := children[0]
	suppress := c.SuppressComment(ctx, prID, strconv.FormatInt(child.ID, 10), child.Body)
	if suppress {
		c.logger.Debug("suppressed review wrapping a relayed reply",
			"repo", repoFullName, "pr", prNumber, "review_id", reviewID)
	}
	return suppress
}
