package model

// ChatUser is a member of the Slack workspace as returned by the user-listing
// endpoint. Transient; used for best-effort identity matching, not persisted.
type ChatUser struct {
	ID       string
	Name     string // Handle, e.g. "alice".
	RealName string
	Email    string
	IsBot    bool
	Deleted  bool
}
