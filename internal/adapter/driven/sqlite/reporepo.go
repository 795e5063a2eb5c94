package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoStore = (*RepoRepo)(nil)

// RepoRepo is the SQLite implementation of the RepoStore port interface.
type RepoRepo struct {
	db *DB
}

// NewRepoRepo creates a new RepoRepo backed by the given DB.
func NewRepoRepo(db *DB) *RepoRepo {
	return &RepoRepo{db: db}
}

// Create inserts a tracked repository and returns its id. A concurrent
// first-sighting insert for the same full name resolves to the existing row.
func (r *RepoRepo) Create(ctx context.Context, repo model.Repository) (int64, error) {
	const query = `
		INSERT INTO repositories (org_id, full_name, is_active, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(full_name) DO NOTHING
	`

	isActive := 0
	if repo.IsActive {
		isActive = 1
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		repo.OrgID, repo.FullName, isActive, formatTime(repo.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("create repository %s: %w", repo.FullName, err)
	}

	existing, err := r.GetByFullName(ctx, repo.FullName)
	if err != nil {
		return 0, err
	}
	if existing == nil {
		return 0, fmt.Errorf("repository %s missing after insert", repo.FullName)
	}

	return existing.ID, nil
}

// GetByID retrieves a repository by row id. Returns nil, nil if absent.
func (r *RepoRepo) GetByID(ctx context.Context, id int64) (*model.Repository, error) {
	const query = `
		SELECT id, org_id, full_name, is_active, created_at
		FROM repositories
		WHERE id = ?
	`

	repo, err := scanRepo(r.db.Reader.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %d: %w", id, err)
	}

	return repo, nil
}

// GetByFullName retrieves a repository by "owner/repo" name. Returns nil, nil if absent.
func (r *RepoRepo) GetByFullName(ctx context.Context, fullName string) (*model.Repository, error) {
	const query = `
		SELECT id, org_id, full_name, is_active, created_at
		FROM repositories
		WHERE full_name = ?
	`

	repo, err := scanRepo(r.db.Reader.QueryRowContext(ctx, query, fullName))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get repository %s: %w", fullName, err)
	}

	return repo, nil
}

// SetActive toggles whether a repository's events are processed.
func (r *RepoRepo) SetActive(ctx context.Context, fullName string, active bool) error {
	const query = `UPDATE repositories SET is_active = ? WHERE full_name = ?`

	isActive := 0
	if active {
		isActive = 1
	}

	result, err := r.db.Writer.ExecContext(ctx, query, isActive, fullName)
	if err != nil {
		return fmt.Errorf("set repository %s active=%v: %w", fullName, active, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("repository %s not found", fullName)
	}

	return nil
}

// ListByOrg returns all repositories tracked for an organization, ordered by name.
func (r *RepoRepo) ListByOrg(ctx context.Context, orgID int64) ([]model.Repository, error) {
	const query = `
		SELECT id, org_id, full_name, is_active, created_at
		FROM repositories
		WHERE org_id = ?
		ORDER BY full_name
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("query repositories: %w", err)
	}
	defer rows.Close()

	var repos []model.Repository
	for rows.Next() {
		repo, err := scanRepo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan repository: %w", err)
		}
		repos = append(repos, *repo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate repositories: %w", err)
	}

	return repos, nil
}

func scanRepo(s scanner) (*model.Repository, error) {
	var repo model.Repository
	var isActive int
	var createdAt string

	err := s.Scan(&repo.ID, &repo.OrgID, &repo.FullName, &isActive, &createdAt)
	if err != nil {
		return nil, err
	}

	repo.IsActive = isActive != 0

	if repo.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &repo, nil
}
