package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepo_EnsureCreatesPlaceholder(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	users := NewUserRepo(db)
	ctx := context.Background()

	user, err := users.Ensure(ctx, org.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "alice", user.GitHubLogin)
	assert.Empty(t, user.SlackUserID)
	assert.False(t, user.IsLinked())
}

func TestUserRepo_EnsureIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	users := NewUserRepo(db)
	ctx := context.Background()

	first, err := users.Ensure(ctx, org.ID, "alice")
	require.NoError(t, err)

	second, err := users.Ensure(ctx, org.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestUserRepo_UpdateLinksIdentity(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	users := NewUserRepo(db)
	ctx := context.Background()

	user, err := users.Ensure(ctx, org.ID, "alice")
	require.NoError(t, err)

	user.SlackUserID = "U42"
	user.GitHubToken = "ghp-alice"
	require.NoError(t, users.Update(ctx, *user))

	bySlack, err := users.GetBySlackUserID(ctx, org.ID, "U42")
	require.NoError(t, err)
	require.NotNil(t, bySlack)
	assert.Equal(t, user.ID, bySlack.ID)
	assert.True(t, bySlack.IsLinked())

	byLogin, err := users.GetByGitHubLogin(ctx, org.ID, "alice")
	require.NoError(t, err)
	require.NotNil(t, byLogin)
	assert.Equal(t, "U42", byLogin.SlackUserID)
}

func TestUserRepo_GetMissingReturnsNil(t *testing.T) {
	db := setupTestDB(t)
	org := seedOrg(t, db)
	users := NewUserRepo(db)
	ctx := context.Background()

	user, err := users.GetByGitHubLogin(ctx, org.ID, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	user, err = users.GetBySlackUserID(ctx, org.ID, "U0")
	require.NoError(t, err)
	assert.Nil(t, user)
}
