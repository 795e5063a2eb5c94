package model

import "time"

// ReviewRequest is a (PullRequest, User) pair tracking a reviewer assignment.
// One row per reviewer per PR, upserted as lifecycle and review events arrive.
type ReviewRequest struct {
	ID            int64
	PullRequestID int64
	ReviewerID    int64
	Status        ReviewRequestStatus
	RequestedAt   time.Time
	CompletedAt   *time.Time
}
