package model

import "time"

// User is a cross-platform identity record. Either side may be a placeholder
// pending account linking: a user seen only in GitHub events has no
// SlackUserID, and a Slack user who never linked GitHub has no GitHubLogin.
// Rows are created lazily the first time an unknown actor appears in an event.
type User struct {
	ID          int64
	OrgID       int64
	GitHubLogin string
	SlackUserID string
	GitHubToken string // Per-user token for attributed posting; empty until linked.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsLinked reports whether the user has review-platform credentials of their
// own. The relay refuses to post on behalf of unlinked users.
func (u User) IsLinked() bool {
	return u.GitHubLogin != "" && u.GitHubToken != ""
}
