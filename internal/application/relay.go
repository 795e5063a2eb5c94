package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// ErrUserNotLinked is returned when a chat user without linked GitHub
// credentials tries to relay a reply. The relay fails closed: nothing is
// posted anonymously or under the service account.
var ErrUserNotLinked = errors.New("chat user has no linked GitHub account")

// RelayService carries human replies from PR channel threads back to GitHub,
// posting as the replying user's own account.
type RelayService struct {
	orgs     driven.OrgStore
	repos    driven.RepoStore
	users    driven.UserStore
	prs      driven.PRStore
	comments driven.CommentStore
	github   driven.GitHubClients
	logger   *slog.Logger
}

// NewRelayService creates a relay service.
func NewRelayService(
	orgs driven.OrgStore,
	repos driven.RepoStore,
	users driven.UserStore,
	prs driven.PRStore,
	comments driven.CommentStore,
	github driven.GitHubClients,
	logger *slog.Logger,
) *RelayService {
	return &RelayService{
		orgs:     orgs,
		repos:    repos,
		users:    users,
		prs:      prs,
		comments: comments,
		github:   github,
		logger:   logger,
	}
}

// HandleChatReply relays a threaded channel reply to GitHub. The thread root
// determines the target: replies in a line-comment thread go to that review
// thread, everything else becomes a PR-level comment. The mapping row is
// recorded before the webhook echo can arrive.
func (s *RelayService) HandleChatReply(ctx context.Context, ev ChatReplyEvent) error {
	org, err := s.orgs.GetBySlackTeamID(ctx, ev.TeamID)
	if err != nil {
		return err
	}
	if org == nil {
		s.logger.Debug("reply from unknown workspace", "team", ev.TeamID)
		return nil
	}

	pr, err := s.prs.GetByChannelID(ctx, ev.ChannelID)
	if err != nil {
		return err
	}
	if pr == nil {
		// Not a PR channel.
		return nil
	}

	repo, err := s.repos.GetByID(ctx, pr.RepoID)
	if err != nil {
		return err
	}
	if repo == nil {
		return fmt.Errorf("repository %d missing for PR %d", pr.RepoID, pr.ID)
	}

	user, err := s.users.GetBySlackUserID(ctx, org.ID, ev.UserID)
	if err != nil {
		return err
	}
	if user == nil || !user.IsLinked() {
		s.logger.Warn("dropping reply from unlinked user",
			"team", ev.TeamID, "channel", ev.ChannelID, "slack_user", ev.UserID)
		return ErrUserNotLinked
	}

	root, err := s.comments.GetByThread(ctx, pr.ID, ev.ThreadTS)
	if err != nil {
		return err
	}

	body := markBody(ev.Text)
	client := s.github.ForToken(user.GitHubToken)

	var newID int64
	if root != nil {
		if ghID, ok := root.GitHubCommentID(); ok && root.Type == model.CommentTypeLineComment {
			newID, err = client.CreateReplyComment(ctx, repo.FullName, pr.Number, ghID, body)
		} else {
			newID, err = client.CreateIssueComment(ctx, repo.FullName, pr.Number, body)
		}
	} else {
		// Thread root was never mapped; land the reply in the PR
		// conversation rather than dropping it.
		newID, err = client.CreateIssueComment(ctx, repo.FullName, pr.Number, body)
	}
	if err != nil {
		return fmt.Errorf("relaying reply for %s#%d: %w", repo.FullName, pr.Number, err)
	}

	row := model.Comment{
		PullRequestID: pr.ID,
		ExternalID:    strconv.FormatInt(newID, 10),
		ThreadTS:      ev.ThreadTS,
		MessageTS:     ev.MessageTS,
		Origin:        model.CommentOriginSlack,
		Type:          model.CommentTypePRComment,
		Body:          ev.Text,
	}
	if root != nil {
		row.ParentID = &root.ID
		row.Type = model.CommentTypeReply
	}

	if _, err := s.comments.Create(ctx, row); err != nil {
		return fmt.Errorf("recording relayed comment: %w", err)
	}

	s.logger.Info("relayed chat reply to GitHub",
		"repo", repo.FullName, "pr", pr.Number, "comment", newID, "user", user.GitHubLogin)
	return nil
}
