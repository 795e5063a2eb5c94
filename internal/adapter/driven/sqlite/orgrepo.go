package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.OrgStore = (*OrgRepo)(nil)

// OrgRepo is the SQLite implementation of the OrgStore port interface.
type OrgRepo struct {
	db *DB
}

// NewOrgRepo creates a new OrgRepo backed by the given DB.
func NewOrgRepo(db *DB) *OrgRepo {
	return &OrgRepo{db: db}
}

const orgColumns = `id, name, github_org, github_token, slack_team_id, slack_bot_token, created_at, updated_at`

// Create inserts an organization and returns its id.
func (r *OrgRepo) Create(ctx context.Context, org model.Organization) (int64, error) {
	const query = `
		INSERT INTO organizations (name, github_org, github_token, slack_team_id, slack_bot_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		org.Name, org.GitHubOrg, org.GitHubToken, org.SlackTeamID, org.SlackBotToken,
		formatTime(org.CreatedAt), formatTime(org.UpdatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("create organization %s: %w", org.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("organization insert id: %w", err)
	}

	return id, nil
}

// GetByID retrieves an organization by row id. Returns nil, nil if absent.
func (r *OrgRepo) GetByID(ctx context.Context, id int64) (*model.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE id = ?`
	return r.getOne(ctx, query, id)
}

// GetByGitHubOrg retrieves an organization by its GitHub owner login.
// Returns nil, nil if absent.
func (r *OrgRepo) GetByGitHubOrg(ctx context.Context, login string) (*model.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE github_org = ?`
	return r.getOne(ctx, query, login)
}

// GetBySlackTeamID retrieves an organization by its Slack workspace id.
// Returns nil, nil if absent.
func (r *OrgRepo) GetBySlackTeamID(ctx context.Context, teamID string) (*model.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations WHERE slack_team_id = ?`
	return r.getOne(ctx, query, teamID)
}

// Update replaces the mutable fields of an organization.
func (r *OrgRepo) Update(ctx context.Context, org model.Organization) error {
	const query = `
		UPDATE organizations
		SET name = ?, github_org = ?, github_token = ?, slack_team_id = ?, slack_bot_token = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Writer.ExecContext(ctx, query,
		org.Name, org.GitHubOrg, org.GitHubToken, org.SlackTeamID, org.SlackBotToken,
		formatTime(org.UpdatedAt), org.ID,
	)
	if err != nil {
		return fmt.Errorf("update organization %d: %w", org.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("organization %d not found", org.ID)
	}

	return nil
}

func (r *OrgRepo) getOne(ctx context.Context, query string, arg any) (*model.Organization, error) {
	org, err := scanOrg(r.db.Reader.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

func scanOrg(s scanner) (*model.Organization, error) {
	var org model.Organization
	var createdAt, updatedAt string

	err := s.Scan(
		&org.ID, &org.Name, &org.GitHubOrg, &org.GitHubToken,
		&org.SlackTeamID, &org.SlackBotToken, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if org.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if org.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &org, nil
}
