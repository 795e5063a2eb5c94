package model

import "time"

// InlineComment is a pull request review comment as fetched from the GitHub
// API. Transient; the thread resolver materializes it into a Comment row.
type InlineComment struct {
	ID        int64
	ReviewID  int64
	Author    string
	Body      string
	Path      string
	Line      int
	InReplyTo *int64
	CreatedAt time.Time
}
