package application

import "time"

// Tagged event variants built by the ingress adapters from validated webhook
// payloads. Only the fields the pipeline consumes are carried; everything
// here has already passed signature verification and payload parsing.

// PullRequestEvent is a pull request lifecycle event.
type PullRequestEvent struct {
	Action       string // opened, closed, reopened, edited, synchronize, review_requested, review_request_removed
	RepoFullName string
	Number       int
	Title        string
	Body         string
	AuthorLogin  string
	Merged       bool
	Additions    int
	Deletions    int
	ChangedFiles int
	Labels       []string
	// Reviewers is the full set of currently requested reviewer logins.
	Reviewers []string
	// Reviewer is the single login a review_requested / review_request_removed
	// action refers to.
	Reviewer string
	// TitleChanged and BodyChanged carry the "changes" object of an edited
	// action; both false for every other action.
	TitleChanged bool
	BodyChanged  bool
	OpenedAt     time.Time
}

// ReviewEvent is a submitted, edited, or dismissed pull request review.
type ReviewEvent struct {
	Action        string // submitted, edited, dismissed
	RepoFullName  string
	PRNumber      int
	ReviewID      int64
	ReviewerLogin string
	State         string // approved, changes_requested, commented
	Body          string
	SubmittedAt   time.Time
}

// ReviewCommentEvent is an inline review comment event.
type ReviewCommentEvent struct {
	Action       string // created, edited, deleted
	RepoFullName string
	PRNumber     int
	CommentID    int64
	ReviewID     int64
	AuthorLogin  string
	Body         string
	Path         string
	Line         int
	InReplyTo    *int64
	CreatedAt    time.Time
}

// IssueCommentEvent is a PR-level comment event from the Issues API.
type IssueCommentEvent struct {
	Action       string // created, edited, deleted
	RepoFullName string
	PRNumber     int
	CommentID    int64
	AuthorLogin  string
	Body         string
	CreatedAt    time.Time
}

// ChatReplyEvent is a human reply posted inside a thread of a PR channel.
type ChatReplyEvent struct {
	TeamID    string
	ChannelID string
	UserID    string
	Text      string
	ThreadTS  string
	MessageTS string
}
