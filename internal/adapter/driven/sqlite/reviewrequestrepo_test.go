package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

func TestReviewRequestRepo_UpsertTransitions(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	repo := seedRepo(t, db, org.ID)
	prID := seedPR(t, db, repo.ID, 7)
	users := NewUserRepo(db)
	reviews := NewReviewRequestRepo(db)
	ctx := context.Background()

	reviewer, err := users.Ensure(ctx, org.ID, "bob")
	require.NoError(t, err)

	requested := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, reviews.Upsert(ctx, model.ReviewRequest{
		PullRequestID: prID,
		ReviewerID:    reviewer.ID,
		Status:        model.ReviewRequestStatusPending,
		RequestedAt:   requested,
	}))

	got, err := reviews.Get(ctx, prID, reviewer.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ReviewRequestStatusPending, got.Status)
	assert.Nil(t, got.CompletedAt)

	// A submitted review moves the same row to its terminal state.
	completed := requested.Add(2 * time.Hour)
	require.NoError(t, reviews.Upsert(ctx, model.ReviewRequest{
		PullRequestID: prID,
		ReviewerID:    reviewer.ID,
		Status:        model.ReviewRequestStatusApproved,
		RequestedAt:   requested,
		CompletedAt:   &completed,
	}))

	got, err = reviews.Get(ctx, prID, reviewer.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReviewRequestStatusApproved, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(completed))

	all, err := reviews.ListByPR(ctx, prID)
	require.NoError(t, err)
	assert.Len(t, all, 1, "upsert must not create a second row per reviewer")
}

func TestReviewRequestRepo_OneRowPerReviewer(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	repo := seedRepo(t, db, org.ID)
	prID := seedPR(t, db, repo.ID, 7)
	users := NewUserRepo(db)
	reviews := NewReviewRequestRepo(db)
	ctx := context.Background()

	for _, login := range []string{"bob", "carol"} {
		u, err := users.Ensure(ctx, org.ID, login)
		require.NoError(t, err)
		require.NoError(t, reviews.Upsert(ctx, model.ReviewRequest{
			PullRequestID: prID,
			ReviewerID:    u.ID,
			Status:        model.ReviewRequestStatusPending,
			RequestedAt:   time.Now().UTC(),
		}))
	}

	all, err := reviews.ListByPR(ctx, prID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
