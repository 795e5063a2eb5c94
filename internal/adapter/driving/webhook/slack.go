package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/ericfisherdev/prbridge/internal/application"
)

// readVerified reads the request body and checks the Slack request signature
// against the signing secret. The verifier also rejects stale timestamps,
// which closes the replay window. Returns nil after writing the error
// response when verification fails.
func (h *Handler) readVerified(w http.ResponseWriter, r *http.Request) []byte {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return nil
	}

	verifier, err := slackapi.NewSecretsVerifier(r.Header, h.signingSecret)
	if err != nil {
		h.logger.Warn("rejected Slack delivery", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return nil
	}
	if _, err := verifier.Write(body); err != nil {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return nil
	}
	if err := verifier.Ensure(); err != nil {
		h.logger.Warn("rejected Slack delivery with bad signature", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return nil
	}

	return body
}

// SlackEvents receives Events API deliveries: the URL verification handshake
// and message events from PR channels.
func (h *Handler) SlackEvents(w http.ResponseWriter, r *http.Request) {
	body := h.readVerified(w, r)
	if body == nil {
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			writeError(w, http.StatusBadRequest, "unparseable challenge")
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(challenge.Challenge))
	case slackevents.CallbackEvent:
		if msg, ok := event.InnerEvent.Data.(*slackevents.MessageEvent); ok {
			h.enqueueMessage(event.TeamID, msg)
		}
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

// enqueueMessage enqueues a human threaded reply for relay. Bot messages,
// message subtypes such as edits and joins, and top-level messages are not
// relayed.
func (h *Handler) enqueueMessage(teamID string, msg *slackevents.MessageEvent) {
	if msg.BotID != "" || msg.SubType != "" {
		return
	}
	if msg.ThreadTimeStamp == "" || msg.ThreadTimeStamp == msg.TimeStamp {
		return
	}

	ev := application.ChatReplyEvent{
		TeamID:    teamID,
		ChannelID: msg.Channel,
		UserID:    msg.User,
		Text:      msg.Text,
		ThreadTS:  msg.ThreadTimeStamp,
		MessageTS: msg.TimeStamp,
	}
	h.dispatcher.Enqueue("chat_reply", func(ctx context.Context) error {
		return h.relay.HandleChatReply(ctx, ev)
	})
}

// SlackInteractions acknowledges block interaction payloads. The engine posts
// no interactive components today; the endpoint exists so the Slack app
// manifest can point somewhere that verifies and logs.
func (h *Handler) SlackInteractions(w http.ResponseWriter, r *http.Request) {
	body := h.readVerified(w, r)
	if body == nil {
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "unparseable form")
		return
	}

	var callback slackapi.InteractionCallback
	if err := json.Unmarshal([]byte(r.PostFormValue("payload")), &callback); err != nil {
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	h.logger.Debug("interaction received", "type", callback.Type, "user", callback.User.ID)
	w.WriteHeader(http.StatusOK)
}

// SlackCommands handles the /prbridge slash command.
func (h *Handler) SlackCommands(w http.ResponseWriter, r *http.Request) {
	body := h.readVerified(w, r)
	if body == nil {
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slackapi.SlashCommandParse(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable command")
		return
	}

	switch strings.TrimSpace(cmd.Text) {
	case "status", "":
		writeJSON(w, http.StatusOK, commandResponse{
			ResponseType: "ephemeral",
			Text:         h.statusText(r.Context(), cmd.ChannelID),
		})
	default:
		writeJSON(w, http.StatusOK, commandResponse{
			ResponseType: "ephemeral",
			Text:         "Usage: /prbridge status",
		})
	}
}

// statusText reports the PR bound to a channel, or engine-level queue health
// when invoked outside a PR channel.
func (h *Handler) statusText(ctx context.Context, channelID string) string {
	pr, err := h.prs.GetByChannelID(ctx, channelID)
	if err != nil {
		h.logger.Error("status lookup failed", "channel", channelID, "error", err)
		return "Status is unavailable right now."
	}
	if pr == nil {
		return fmt.Sprintf("This channel is not bound to a pull request. Queue depth: %d.", h.dispatcher.QueueDepth())
	}

	text := fmt.Sprintf("PR #%d “%s” by %s is %s.", pr.Number, pr.Title, pr.AuthorLogin, pr.Status)
	if pr.ClosedAt != nil {
		text += fmt.Sprintf(" Closed %s.", pr.ClosedAt.UTC().Format("2006-01-02 15:04 UTC"))
	}
	return text
}
