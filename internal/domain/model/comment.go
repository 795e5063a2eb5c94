package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReviewSummaryID builds the synthetic external id used for a review's
// top-level summary text, which has no comment id of its own on GitHub.
func ReviewSummaryID(reviewID int64) string {
	return fmt.Sprintf("review_%d", reviewID)
}

// Comment is the central mapping entity linking one GitHub activity item to
// one Slack message. ExternalID is the GitHub comment id rendered as a
// decimal string, or a synthetic "review_<id>" for a review summary. It is
// unique within a pull request; duplicate inbound delivery resolves to the
// existing row.
//
// ParentID is a self-reference forming a strict tree rooted at top-level
// comments and review summaries. Every reply-type comment has a non-nil
// parent belonging to the same pull request.
type Comment struct {
	ID            int64
	PullRequestID int64
	ExternalID    string
	ThreadTS      string // Slack timestamp of the thread root message.
	MessageTS     string // Slack timestamp of this comment's own message.
	ParentID      *int64
	Origin        CommentOrigin
	Type          CommentType
	Body          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GitHubCommentID parses the external id as a numeric GitHub comment id.
// Returns 0, false for synthetic review-summary ids.
func (c Comment) GitHubCommentID() (int64, bool) {
	if strings.HasPrefix(c.ExternalID, "review_") {
		return 0, false
	}
	id, err := strconv.ParseInt(c.ExternalID, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
