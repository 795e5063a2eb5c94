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
var _ driven.PRStore = (*PRRepo)(nil)

// PRRepo is the SQLite implementation of the PRStore port interface.
type PRRepo struct {
	db *DB
}

// NewPRRepo creates a new PRRepo backed by the given DB.
func NewPRRepo(db *DB) *PRRepo {
	return &PRRepo{db: db}
}

const prColumns = `id, repo_id, number, title, author_login, status, channel_id, channel_archived, opened_at, closed_at, created_at, updated_at`

// Upsert inserts a pull request or, on (repo_id, number) conflict, updates
// its mutable fields. Channel ownership is preserved on conflict so two
// concurrent "opened" deliveries converge on one row and one channel.
func (r *PRRepo) Upsert(ctx context.Context, pr model.PullRequest) (int64, error) {
	const query = `
		INSERT INTO pull_requests (
			repo_id, number, title, author_login, status, channel_id, channel_archived,
			opened_at, closed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, number) DO UPDATE SET
			title = excluded.title,
			author_login = excluded.author_login,
			status = excluded.status,
			updated_at = excluded.updated_at
	`

	archived := 0
	if pr.ChannelArchived {
		archived = 1
	}

	now := formatTime(time.Now())
	_, err := r.db.Writer.ExecContext(ctx, query,
		pr.RepoID, pr.Number, pr.Title, pr.AuthorLogin, string(pr.Status),
		pr.ChannelID, archived, formatTime(pr.OpenedAt), formatNullTime(pr.ClosedAt), now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert pull request #%d: %w", pr.Number, err)
	}

	existing, err := r.GetByNumber(ctx, pr.RepoID, pr.Number)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, fmt.Errorf("pull request #%d missing after upsert", pr.Number)
	}

	return existing.ID, nil
}

// GetByNumber retrieves a pull request by repository and number.
// Returns nil, nil if absent.
func (r *PRRepo) GetByNumber(ctx context.Context, repoID int64, number int) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repo_id = ? AND number = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, repoID, number))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR #%d: %w", number, err)
	}

	return pr, nil
}

// GetByChannelID retrieves the pull request owning the given chat channel.
// Returns nil, nil if no PR owns it.
func (r *PRRepo) GetByChannelID(ctx context.Context, channelID string) (*model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE channel_id = ?`

	pr, err := scanPR(r.db.Reader.QueryRowContext(ctx, query, channelID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get PR by channel %s: %w", channelID, err)
	}

	return pr, nil
}

// ListByRepo returns all pull requests for a repository, ordered by number.
func (r *PRRepo) ListByRepo(ctx context.Context, repoID int64) ([]model.PullRequest, error) {
	query := `SELECT ` + prColumns + ` FROM pull_requests WHERE repo_id = ? ORDER BY number`
	return r.queryPRs(ctx, query, repoID)
}

// ListClosedBefore returns merged/closed pull requests whose closure predates
// the cutoff and whose channel is live, ordered by closed_at.
func (r *PRRepo) ListClosedBefore(ctx context.Context, cutoff time.Time) ([]model.PullRequest, error) {
	query := `
		SELECT ` + prColumns + `
		FROM pull_requests
		WHERE status IN ('merged', 'closed')
		  AND closed_at IS NOT NULL AND closed_at < ?
		  AND channel_id != '' AND channel_archived = 0
		ORDER BY closed_at
	`
	return r.queryPRs(ctx, query, formatTime(cutoff))
}

// SetChannel records the chat channel owned by a pull request.
func (r *PRRepo) SetChannel(ctx context.Context, id int64, channelID string, archived bool) error {
	const query = `UPDATE pull_requests SET channel_id = ?, channel_archived = ?, updated_at = ? WHERE id = ?`

	archivedInt := 0
	if archived {
		archivedInt = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query, channelID, archivedInt, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set channel for PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pull request %d not found", id)
	}

	return nil
}

// SetStatus updates a pull request's lifecycle status and closure timestamp.
func (r *PRRepo) SetStatus(ctx context.Context, id int64, status model.PRStatus, closedAt *time.Time) error {
	const query = `UPDATE pull_requests SET status = ?, closed_at = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, string(status), formatNullTime(closedAt), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("set status for PR %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pull request %d not found", id)
	}

	return nil
}

func (r *PRRepo) queryPRs(ctx context.Context, query string, args ...any) ([]model.PullRequest, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pull requests: %w", err)
	}
	defer rows.Close()

	var prs []model.PullRequest
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pull request: %w", err)
		}
		prs = append(prs, *pr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pull requests: %w", err)
	}

	return prs, nil
}

func scanPR(s scanner) (*model.PullRequest, error) {
	var pr model.PullRequest
	var status string
	var archived int
	var openedAt, createdAt, updatedAt string
	var closedAt *string

	err := s.Scan(
		&pr.ID, &pr.RepoID, &pr.Number, &pr.Title, &pr.AuthorLogin,
		&status, &pr.ChannelID, &archived, &openedAt, &closedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	pr.Status = model.PRStatus(status)
	pr.ChannelArchived = archived != 0

	if pr.OpenedAt, err = parseTime(openedAt); err != nil {
		return nil, fmt.Errorf("parse opened_at: %w", err)
	}
	if pr.ClosedAt, err = parseNullTime(closedAt); err != nil {
		return nil, fmt.Errorf("parse closed_at: %w", err)
	}
	if pr.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if pr.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &pr, nil
}
