package model

import "time"

// Repository is a GitHub repository tracked for an organization. IsActive
// gates whether its webhook events are processed. Rows are created on first
// webhook sighting or explicit selection.
type Repository struct {
	ID        int64
	OrgID     int64
	FullName  string // "owner/repo"
	IsActive  bool
	CreatedAt time.Time
}
