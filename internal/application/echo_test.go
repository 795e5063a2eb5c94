package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

func TestEcho_ChatOriginRowSuppresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.comments.Create(ctx, model.Comment{
		PullRequestID: 1,
		ExternalID:    "9001",
		ThreadTS:      "1.1",
		MessageTS:     "1.2",
		Origin:        model.CommentOriginSlack,
		Type:          model.CommentTypeReply,
		Body:          "relayed earlier",
	})
	require.NoError(t, err)

	assert.True(t, f.echo.SuppressComment(ctx, 1, "9001", "relayed earlier"))
}

func TestEcho_GitHubOriginRowDoesNotSuppress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.comments.Create(ctx, model.Comment{
		PullRequestID: 1,
		ExternalID:    "1001",
		ThreadTS:      "1.1",
		MessageTS:     "1.1",
		Origin:        model.CommentOriginGitHub,
		Type:          model.CommentTypeLineComment,
		Body:          "genuine",
	})
	require.NoError(t, err)

	assert.False(t, f.echo.SuppressComment(ctx, 1, "1001", "genuine"))
}

func TestEcho_MarkerSuppressesWithoutRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The relay's insert raced behind the webhook; the marker still catches it.
	body := "late echo\n\n<!-- prbridge:relayed-from-slack -->"
	assert.True(t, f.echo.SuppressComment(ctx, 1, "9002", body))
}

func TestEcho_StoreErrorFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.comments.getErr = errors.New("database locked")

	assert.False(t, f.echo.SuppressComment(context.Background(), 1, "9001", "anything"))
}

func TestEcho_LoneRelayedCommentReviewSuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// The relay recorded the reply; GitHub wrapped it in a synthetic review.
	_, err := f.comments.Create(ctx, model.Comment{
		PullRequestID: 1,
		ExternalID:    "9001",
		ThreadTS:      "1.1",
		MessageTS:     "1.2",
		Origin:        model.CommentOriginSlack,
		Type:          model.CommentTypeReply,
		Body:          "fixed",
	})
	require.NoError(t, err)

	f.github.reviewComments[500] = []model.InlineComment{
		{ID: 9001, ReviewID: 500, Author: "alice", Body: "fixed"},
	}

	assert.True(t, f.echo.SuppressReview(ctx, &f.org, 1, "acme/widgets", 42, 500))
}

func TestEcho_MultiCommentReviewNotSuppressed(t *testing.T) {
	f := newFixture(t)

	f.github.reviewComments[500] = []model.InlineComment{
		{ID: 9001, ReviewID: 500, Author: "bob", Body: "one"},
		{ID: 9002, ReviewID: 500, Author: "bob", Body: "two"},
	}

	assert.False(t, f.echo.SuppressReview(context.Background(), &f.org, 1, "acme/widgets", 42, 500))
}

func TestEcho_GenuineLoneCommentReviewNotSuppressed(t *testing.T) {
	f := newFixture(t)

	f.github.reviewComments[500] = []model.InlineComment{
		{ID: 9001, ReviewID: 500, Author: "bob", Body: "a genuine drive-by comment"},
	}

	assert.False(t, f.echo.SuppressReview(context.Background(), &f.org, 1, "acme/widgets", 42, 500))
}

func TestEcho_ReviewFetchErrorFailsOpen(t *testing.T) {
	f := newFixture(t)
	f.github.fetchErr = errors.New("rate limited")

	assert.False(t, f.echo.SuppressReview(context.Background(), &f.org, 1, "acme/widgets", 42, 500))
}
