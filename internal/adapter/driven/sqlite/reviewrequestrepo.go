package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewRequestStore = (*ReviewRequestRepo)(nil)

// ReviewRequestRepo is the SQLite implementation of the ReviewRequestStore port interface.
type ReviewRequestRepo struct {
	db *DB
}

// NewReviewRequestRepo creates a new ReviewRequestRepo backed by the given DB.
func NewReviewRequestRepo(db *DB) *ReviewRequestRepo {
	return &ReviewRequestRepo{db: db}
}

// Upsert inserts a review request or, on (pull_request_id, reviewer_id)
// conflict, updates its status and completion timestamp.
func (r *ReviewRequestRepo) Upsert(ctx context.Context, rr model.ReviewRequest) error {
	const query = `
		INSERT INTO review_requests (pull_request_id, reviewer_id, status, requested_at, completed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(pull_request_id, reviewer_id) DO UPDATE SET
			status = excluded.status,
			completed_at = excluded.completed_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		rr.PullRequestID, rr.ReviewerID, string(rr.Status),
		formatTime(rr.RequestedAt), formatNullTime(rr.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert review request pr=%d reviewer=%d: %w", rr.PullRequestID, rr.ReviewerID, err)
	}

	return nil
}

// Get retrieves the review request for a (PR, reviewer) pair. Returns nil, nil if absent.
func (r *ReviewRequestRepo) Get(ctx context.Context, prID, reviewerID int64) (*model.ReviewRequest, error) {
	const query = `
		SELECT id, pull_request_id, reviewer_id, status, requested_at, completed_at
		FROM review_requests
		WHERE pull_request_id = ? AND reviewer_id = ?
	`

	rr, err := scanReviewRequest(r.db.Reader.QueryRowContext(ctx, query, prID, reviewerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review request pr=%d reviewer=%d: %w", prID, reviewerID, err)
	}

	return rr, nil
}

// ListByPR returns all review requests for a pull request, ordered by request time.
func (r *ReviewRequestRepo) ListByPR(ctx context.Context, prID int64) ([]model.ReviewRequest, error) {
	const query = `
		SELECT id, pull_request_id, reviewer_id, status, requested_at, completed_at
		FROM review_requests
		WHERE pull_request_id = ?
		ORDER BY requested_at
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, prID)
	if err != nil {
		return nil, fmt.Errorf("query review requests: %w", err)
	}
	defer rows.Close()

	var rrs []model.ReviewRequest
	for rows.Next() {
		rr, err := scanReviewRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan review request: %w", err)
		}
		rrs = append(rrs, *rr)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review requests: %w", err)
	}

	return rrs, nil
}

func scanReviewRequest(s scanner) (*model.ReviewRequest, error) {
	var rr model.ReviewRequest
	var status string
	var requestedAt string
	var completedAt *string

	err := s.Scan(&rr.ID, &rr.PullRequestID, &rr.ReviewerID, &status, &requestedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	rr.Status = model.ReviewRequestStatus(status)

	if rr.RequestedAt, err = parseTime(requestedAt); err != nil {
		return nil, fmt.Errorf("parse requested_at: %w", err)
	}
	if rr.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}

	return &rr, nil
}
