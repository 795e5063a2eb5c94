package model

import "time"

// PullRequest is one row per GitHub pull request. It owns at most one
// non-archived Slack channel at any time; ChannelID is empty until the
// channel is created.
type PullRequest struct {
	ID              int64
	RepoID          int64
	Number          int
	Title           string
	AuthorLogin     string
	Status          PRStatus
	ChannelID       string
	ChannelArchived bool
	OpenedAt        time.Time
	ClosedAt        *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasChannel reports whether the PR currently owns a live chat channel.
func (pr PullRequest) HasChannel() bool {
	return pr.ChannelID != "" && !pr.ChannelArchived
}
