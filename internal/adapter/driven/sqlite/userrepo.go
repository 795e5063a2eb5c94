package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UserStore = (*UserRepo)(nil)

// UserRepo is the SQLite implementation of the UserStore port interface.
type UserRepo struct {
	db *DB
}

// NewUserRepo creates a new UserRepo backed by the given DB.
func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

const userColumns = `id, org_id, github_login, slack_user_id, github_token, created_at, updated_at`

// Ensure returns the user with the given GitHub login, inserting a
// placeholder row first if none exists. The UNIQUE(org_id, github_login)
// constraint makes concurrent first-sighting inserts converge on one row.
func (r *UserRepo) Ensure(ctx context.Context, orgID int64, githubLogin string) (*model.User, error) {
	const query = `
		INSERT INTO users (org_id, github_login, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(org_id, github_login) DO NOTHING
	`

	now := formatTime(time.Now())
	if _, err := r.db.Writer.ExecContext(ctx, query, orgID, githubLogin, now, now); err != nil {
		return nil, fmt.Errorf("ensure user %s: %w", githubLogin, err)
	}

	user, err := r.GetByGitHubLogin(ctx, orgID, githubLogin)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s missing after insert", githubLogin)
	}

	return user, nil
}

// GetByGitHubLogin retrieves a user by GitHub login. Returns nil, nil if absent.
func (r *UserRepo) GetByGitHubLogin(ctx context.Context, orgID int64, login string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE org_id = ? AND github_login = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, orgID, login))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by login %s: %w", login, err)
	}

	return user, nil
}

// GetBySlackUserID retrieves a user by Slack member id. Returns nil, nil if absent.
func (r *UserRepo) GetBySlackUserID(ctx context.Context, orgID int64, slackUserID string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE org_id = ? AND slack_user_id = ?`

	user, err := scanUser(r.db.Reader.QueryRowContext(ctx, query, orgID, slackUserID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by slack id %s: %w", slackUserID, err)
	}

	return user, nil
}

// Update replaces the mutable fields of a user.
func (r *UserRepo) Update(ctx context.Context, user model.User) error {
	const query = `
		UPDATE users
		SET github_login = ?, slack_user_id = ?, github_token = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		user.GitHubLogin, user.SlackUserID, user.GitHubToken, formatTime(time.Now()), user.ID,
	)
	if err != nil {
		return fmt.Errorf("update user %d: %w", user.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user %d not found", user.ID)
	}

	return nil
}

func scanUser(s scanner) (*model.User, error) {
	var user model.User
	var createdAt, updatedAt string

	err := s.Scan(
		&user.ID, &user.OrgID, &user.GitHubLogin, &user.SlackUserID,
		&user.GitHubToken, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &user, nil
}
