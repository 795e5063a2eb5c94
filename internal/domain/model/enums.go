package model

// PRStatus represents the lifecycle state of a pull request.
type PRStatus string

const (
	PRStatusOpen   PRStatus = "open"
	PRStatusMerged PRStatus = "merged"
	PRStatusClosed PRStatus = "closed"
)

// ReviewRequestStatus represents the state of a reviewer assignment on a pull request.
type ReviewRequestStatus string

const (
	ReviewRequestStatusPending          ReviewRequestStatus = "pending"
	ReviewRequestStatusApproved         ReviewRequestStatus = "approved"
	ReviewRequestStatusChangesRequested ReviewRequestStatus = "changes_requested"
	ReviewRequestStatusCommented        ReviewRequestStatus = "commented"
	ReviewRequestStatusRemoved          ReviewRequestStatus = "removed"
)

// CommentOrigin identifies which platform a comment entered the system from.
// Chat-originated comments are never re-materialized as chat messages when
// their echo arrives via the GitHub webhook.
type CommentOrigin string

const (
	CommentOriginGitHub CommentOrigin = "github"
	CommentOriginSlack  CommentOrigin = "slack"
)

// CommentType classifies a mapped comment.
type CommentType string

const (
	CommentTypePRComment     CommentType = "pr_comment"     // PR-level discussion (Issues API).
	CommentTypeLineComment   CommentType = "line_comment"   // Inline comment on a diff line.
	CommentTypeReviewSummary CommentType = "review_summary" // Top-level text of a submitted review.
	CommentTypeReply         CommentType = "reply"          // Reply inside an existing thread.
)
