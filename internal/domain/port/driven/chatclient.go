package driven

import (
	"context"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
)

// ChatClient defines the driven port for interacting with the Slack API.
type ChatClient interface {
	// PostMessage posts blocks to a channel and returns the message
	// timestamp. A non-empty threadTS posts into that thread.
	PostMessage(ctx context.Context, channelID, threadTS string, blocks []model.MessageBlock) (string, error)
	UpdateMessage(ctx context.Context, channelID, ts string, blocks []model.MessageBlock) error
	// CreateChannel creates a public channel and returns its id.
	CreateChannel(ctx context.Context, name string) (string, error)
	SetChannelTopic(ctx context.Context, channelID, topic string) error
	// InviteUsers invites users to a channel. Users already present are not
	// an error.
	InviteUsers(ctx context.Context, channelID string, userIDs []string) error
	ArchiveChannel(ctx context.Context, channelID string) error
	// ListUsers returns all workspace members. Implementations must honor
	// the platform's rate-limit retry delay with a bounded number of retries.
	ListUsers(ctx context.Context) ([]model.ChatUser, error)
}

// ChatClients resolves a ChatClient for an organization's bot token.
type ChatClients interface {
	ForToken(token string) ChatClient
}
