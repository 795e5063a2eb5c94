package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// seedOrg inserts an organization and returns it.
func seedOrg(t *testing.T, db *DB) *model.Organization {
	t.Helper()

	repo := NewOrgRepo(db)
	org := model.Organization{
		Name:          "Acme",
		GitHubOrg:     "acme",
		GitHubToken:   "gh-token",
		SlackTeamID:   "T100",
		SlackBotToken: "xoxb-token",
		CreatedAt:     time.Now().UTC(),
	}

	id, err := repo.Create(context.Background(), org)
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	org.ID = id

	return &org
}

// seedRepo inserts a repository under org and returns it.
func seedRepo(t *testing.T, db *DB, orgID int64) *model.Repository {
	t.Helper()

	repos := NewRepoRepo(db)
	repo := model.Repository{
		OrgID:     orgID,
		FullName:  "acme/widgets",
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}

	id, err := repos.Create(context.Background(), repo)
	if err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	repo.ID = id

	return &repo
}

// seedPR inserts an open pull request and returns its id.
func seedPR(t *testing.T, db *DB, repoID int64, number int) int64 {
	t.Helper()

	prs := NewPRRepo(db)
	id, err := prs.Upsert(context.Background(), model.PullRequest{
		RepoID:      repoID,
		Number:      number,
		Title:       "Add frobnicator",
		AuthorLogin: "alice",
		Status:      model.PRStatusOpen,
		OpenedAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed PR: %v", err)
	}

	return id
}
