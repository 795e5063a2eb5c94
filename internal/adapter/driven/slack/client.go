// Package slack implements the ChatClient port using the slack-go library.
package slack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatClient = (*Client)(nil)

// maxListRetries bounds how many times ListUsers honors a rate-limit retry
// delay before giving up.
const maxListRetries = 3

// Client implements the driven.ChatClient port using the slack-go library.
type Client struct {
	api *slackapi.Client
}

// NewClient creates a new Slack API client authenticated with the given bot token.
func NewClient(token string) *Client {
	return &Client{api: slackapi.New(token)}
}

// NewClientWithAPIURL creates a Client pointed at a custom API base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithAPIURL(token, apiURL string, httpClient *http.Client) *Client {
	opts := []slackapi.Option{slackapi.OptionAPIURL(apiURL)}
	if httpClient != nil {
		opts = append(opts, slackapi.OptionHTTPClient(httpClient))
	}
	return &Client{api: slackapi.New(token, opts...)}
}

// PostMessage posts blocks to a channel and returns the message timestamp.
// A non-empty threadTS posts the message as a reply inside that thread.
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS string, blocks []model.MessageBlock) (string, error) {
	opts := []slackapi.MsgOption{slackapi.MsgOptionBlocks(toSlackBlocks(blocks)...)}
	if threadTS != "" {
		opts = append(opts, slackapi.MsgOptionTS(threadTS))
	}

	_, ts, err := c.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("posting message to %s: %w", channelID, err)
	}

	return ts, nil
}

// UpdateMessage replaces the blocks of an existing message in place.
func (c *Client) UpdateMessage(ctx context.Context, channelID, ts string, blocks []model.MessageBlock) error {
	_, _, _, err := c.api.UpdateMessageContext(ctx, channelID, ts, slackapi.MsgOptionBlocks(toSlackBlocks(blocks)...))
	if err != nil {
		return fmt.Errorf("updating message %s in %s: %w", ts, channelID, err)
	}

	return nil
}

// CreateChannel creates a public channel and returns its id.
func (c *Client) CreateChannel(ctx context.Context, name string) (string, error) {
	channel, err := c.api.CreateConversationContext(ctx, slackapi.CreateConversationParams{
		ChannelName: name,
	})
	if err != nil {
		return "", fmt.Errorf("creating channel %s: %w", name, err)
	}

	return channel.ID, nil
}

// SetChannelTopic sets a channel's topic.
func (c *Client) SetChannelTopic(ctx context.Context, channelID, topic string) error {
	if _, err := c.api.SetTopicOfConversationContext(ctx, channelID, topic); err != nil {
		return fmt.Errorf("setting topic on %s: %w", channelID, err)
	}

	return nil
}

// InviteUsers invites users to a channel. Members already present are not an error.
func (c *Client) InviteUsers(ctx context.Context, channelID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}

	_, err := c.api.InviteUsersToConversationContext(ctx, channelID, userIDs...)
	if err != nil && err.Error() != "already_in_channel" {
		return fmt.Errorf("inviting users to %s: %w", channelID, err)
	}

	return nil
}

// ArchiveChannel archives a channel.
func (c *Client) ArchiveChannel(ctx context.Context, channelID string) error {
	if err := c.api.ArchiveConversationContext(ctx, channelID); err != nil {
		return fmt.Errorf("archiving channel %s: %w", channelID, err)
	}

	return nil
}

// ListUsers returns all workspace members. The users.list endpoint is the
// one Slack rate-limits aggressively; on a rate-limit response the call
// sleeps for the platform-provided retry delay and retries, bounded by
// maxListRetries.
func (c *Client) ListUsers(ctx context.Context) ([]model.ChatUser, error) {
	var users []slackapi.User

	for attempt := 0; ; attempt++ {
		var err error
		users, err = c.api.GetUsersContext(ctx)
		if err == nil {
			break
		}

		var rateErr *slackapi.RateLimitedError
		if !errors.As(err, &rateErr) || attempt >= maxListRetries {
			return nil, fmt.Errorf("listing users: %w", err)
		}

		slog.Warn("slack users.list rate limited",
			"retry_after", rateErr.RetryAfter,
			"attempt", attempt+1,
		)

		select {
		case <-time.After(rateErr.RetryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	mapped := make([]model.ChatUser, 0, len(users))
	for _, u := range users {
		mapped = append(mapped, model.ChatUser{
			ID:       u.ID,
			Name:     u.Name,
			RealName: u.RealName,
			Email:    u.Profile.Email,
			IsBot:    u.IsBot,
			Deleted:  u.Deleted,
		})
	}

	return mapped, nil
}
