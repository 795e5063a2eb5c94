package model

import "time"

// Organization is the tenant boundary. It holds the credentials for both
// platforms: a GitHub service token for the org's repositories and a Slack
// bot token for the workspace. Organizations are created at signup and
// updated during account linking; they are never hard-deleted.
type Organization struct {
	ID            int64
	Name          string
	GitHubOrg     string // GitHub owner login, e.g. "acme".
	GitHubToken   string
	SlackTeamID   string
	SlackBotToken string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
