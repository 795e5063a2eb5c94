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
var _ driven.CommentStore = (*CommentRepo)(nil)

// CommentRepo is the SQLite implementation of the CommentStore port interface.
type CommentRepo struct {
	db *DB
}

// NewCommentRepo creates a new CommentRepo backed by the given DB.
func NewCommentRepo(db *DB) *CommentRepo {
	return &CommentRepo{db: db}
}

const commentColumns = `id, pull_request_id, external_id, thread_ts, message_ts, parent_id, origin, type, body, created_at, updated_at`

// Create inserts a comment mapping. The UNIQUE(pull_request_id, external_id)
// constraint makes duplicate inbound delivery resolve to the existing row;
// its id is returned and the insert is a no-op.
func (r *CommentRepo) Create(ctx context.Context, c model.Comment) (int64, error) {
	const query = `
		INSERT INTO comments (
			pull_request_id, external_id, thread_ts, message_ts, parent_id,
			origin, type, body, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pull_request_id, external_id) DO NOTHING
	`

	now := formatTime(time.Now())
	_, err := r.db.Writer.ExecContext(ctx, query,
		c.PullRequestID, c.ExternalID, c.ThreadTS, c.MessageTS, c.ParentID,
		string(c.Origin), string(c.Type), c.Body, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("create comment %s: %w", c.ExternalID, err)
	}

	existing, err := r.GetByExternalID(ctx, c.PullRequestID, c.ExternalID)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, fmt.Errorf("comment %s missing after insert", c.ExternalID)
	}

	return existing.ID, nil
}

// GetByExternalID retrieves a comment by its GitHub-side id within a pull
// request. Returns nil, nil if absent.
func (r *CommentRepo) GetByExternalID(ctx context.Context, prID int64, externalID string) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE pull_request_id = ? AND external_id = ?`

	c, err := scanComment(r.db.Reader.QueryRowContext(ctx, query, prID, externalID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment %s: %w", externalID, err)
	}

	return c, nil
}

// GetByThread retrieves the root comment of a chat thread: the row whose own
// message timestamp equals the thread timestamp. Returns nil, nil if absent.
func (r *CommentRepo) GetByThread(ctx context.Context, prID int64, threadTS string) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE pull_request_id = ? AND message_ts = ?`

	c, err := scanComment(r.db.Reader.QueryRowContext(ctx, query, prID, threadTS))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get comment by thread %s: %w", threadTS, err)
	}

	return c, nil
}

// UpdateBody replaces a comment's content after an edit.
func (r *CommentRepo) UpdateBody(ctx context.Context, id int64, body string) error {
	const query = `UPDATE comments SET body = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, body, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update comment %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("comment %d not found", id)
	}

	return nil
}

// ListByPR returns all comments mapped for a pull request, ordered by creation.
func (r *CommentRepo) ListByPR(ctx context.Context, prID int64) ([]model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE pull_request_id = ? ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	var origin, ctype string
	var createdAt, updatedAt string

	err := s.Scan(
		&c.ID, &c.PullRequestID, &c.ExternalID, &c.ThreadTS, &c.MessageTS,
		&c.ParentID, &origin, &ctype, &c.Body, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Origin = model.CommentOrigin(origin)
	c.Type = model.CommentType(ctype)

	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &c, nil
}
