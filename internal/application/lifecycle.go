package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// maxSlugLen bounds the title-derived part of a channel name. Slack caps
// channel names at 80 characters.
const maxSlugLen = 40

// LifecycleService drives the PR-to-channel lifecycle: channel creation on
// open, reviewer invitations, status transitions, and close/merge
// notifications.
type LifecycleService struct {
	orgs     driven.OrgStore
	repos    driven.RepoStore
	users    driven.UserStore
	prs      driven.PRStore
	reviews  driven.ReviewRequestStore
	comments driven.CommentStore
	chat     driven.ChatClients
	logger   *slog.Logger
}

// NewLifecycleService creates a lifecycle service.
func NewLifecycleService(
	orgs driven.OrgStore,
	repos driven.RepoStore,
	users driven.UserStore,
	prs driven.PRStore,
	reviews driven.ReviewRequestStore,
	comments driven.CommentStore,
	chat driven.ChatClients,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		orgs:     orgs,
		repos:    repos,
		users:    users,
		prs:      prs,
		reviews:  reviews,
		comments: comments,
		chat:     chat,
		logger:   logger,
	}
}

// HandlePullRequest processes a pull request lifecycle event.
func (s *LifecycleService) HandlePullRequest(ctx context.Context, ev PullRequestEvent) error {
	sc, err := resolveScope(ctx, s.orgs, s.repos, ev.RepoFullName)
	if err != nil {
		return err
	}
	if sc == nil {
		s.logger.Debug("dropping PR event for untracked repository",
			"repo", ev.RepoFullName, "action", ev.Action)
		return nil
	}

	switch ev.Action {
	case "opened":
		return s.handleOpened(ctx, sc, ev)
	case "closed":
		return s.handleClosed(ctx, sc, ev)
	case "reopened":
		return s.handleReopened(ctx, sc, ev)
	case "review_requested":
		return s.handleReviewRequested(ctx, sc, ev)
	case "review_request_removed":
		return s.handleReviewRequestRemoved(ctx, sc, ev)
	case "synchronize":
		return s.handleSynchronize(ctx, sc, ev)
	case "edited":
		return s.handleEdited(ctx, sc, ev)
	default:
		s.logger.Debug("ignoring PR action", "action", ev.Action, "repo", ev.RepoFullName, "pr", ev.Number)
		return nil
	}
}

func (s *LifecycleService) handleOpened(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	openedAt := ev.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now().UTC()
	}

	prID, err := s.prs.Upsert(ctx, model.PullRequest{
		RepoID:      sc.repo.ID,
		Number:      ev.Number,
		Title:       ev.Title,
		AuthorLogin: ev.AuthorLogin,
		Status:      model.PRStatusOpen,
		OpenedAt:    openedAt,
	})
	if err != nil {
		return fmt.Errorf("upserting PR %s#%d: %w", ev.RepoFullName, ev.Number, err)
	}

	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr.HasChannel() {
		// Duplicate delivery; the channel already exists.
		s.logger.Debug("PR already has a channel", "pr", ev.Number, "channel", pr.ChannelID)
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)

	channelID, err := chat.CreateChannel(ctx, channelName(ev.Number, ev.Title))
	if err != nil {
		return fmt.Errorf("creating channel for PR %s#%d: %w", ev.RepoFullName, ev.Number, err)
	}
	if err := s.prs.SetChannel(ctx, prID, channelID, false); err != nil {
		return err
	}

	topic := fmt.Sprintf("PR #%d: %s (%s)", ev.Number, ev.Title, ev.RepoFullName)
	if err := chat.SetChannelTopic(ctx, channelID, topic); err != nil {
		s.logger.Warn("setting channel topic failed", "channel", channelID, "error", err)
	}

	if _, err := chat.PostMessage(ctx, channelID, "", openingBlocks(ev)); err != nil {
		s.logger.Error("posting opening message failed", "channel", channelID, "error", err)
	}

	s.inviteByLogin(ctx, sc, chat, channelID, ev.AuthorLogin)

	for _, reviewer := range ev.Reviewers {
		if err := s.assignReviewer(ctx, sc, chat, prID, channelID, reviewer); err != nil {
			s.logger.Error("assigning reviewer failed", "pr", ev.Number, "reviewer", reviewer, "error", err)
		}
	}

	s.logger.Info("channel created for pull request",
		"repo", ev.RepoFullName, "pr", ev.Number, "channel", channelID)
	return nil
}

func (s *LifecycleService) handleClosed(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil {
		s.logger.Debug("close event for unseen PR", "repo", ev.RepoFullName, "pr", ev.Number)
		return nil
	}

	status := model.PRStatusClosed
	verb := "closed"
	if ev.Merged {
		status = model.PRStatusMerged
		verb = "merged"
	}

	now := time.Now().UTC()
	if err := s.prs.SetStatus(ctx, pr.ID, status, &now); err != nil {
		return err
	}

	if pr.HasChannel() {
		chat := s.chat.ForToken(sc.org.SlackBotToken)
		blocks := []model.MessageBlock{model.TextBlock(fmt.Sprintf(":checkered_flag: Pull request #%d was %s.", ev.Number, verb))}
		if _, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks); err != nil {
			s.logger.Error("posting close notification failed", "channel", pr.ChannelID, "error", err)
		}
	}

	s.logger.Info("pull request closed", "repo", ev.RepoFullName, "pr", ev.Number, "status", status)
	return nil
}

func (s *LifecycleService) handleReopened(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil {
		// Never seen this PR; treat the reopen as a fresh open.
		return s.handleOpened(ctx, sc, ev)
	}

	if err := s.prs.SetStatus(ctx, pr.ID, model.PRStatusOpen, nil); err != nil {
		return err
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)

	if !pr.HasChannel() {
		// The previous channel was archived; a reopened PR gets a fresh one.
		channelID, err := chat.CreateChannel(ctx, channelName(ev.Number, ev.Title))
		if err != nil {
			return fmt.Errorf("recreating channel for PR %s#%d: %w", ev.RepoFullName, ev.Number, err)
		}
		if err := s.prs.SetChannel(ctx, pr.ID, channelID, false); err != nil {
			return err
		}
		topic := fmt.Sprintf("PR #%d: %s (%s)", ev.Number, ev.Title, ev.RepoFullName)
		if err := chat.SetChannelTopic(ctx, channelID, topic); err != nil {
			s.logger.Warn("setting channel topic failed", "channel", channelID, "error", err)
		}
		if _, err := chat.PostMessage(ctx, channelID, "", openingBlocks(ev)); err != nil {
			s.logger.Error("posting opening message failed", "channel", channelID, "error", err)
		}
		s.inviteByLogin(ctx, sc, chat, channelID, ev.AuthorLogin)
		pr.ChannelID = channelID
	} else {
		blocks := []model.MessageBlock{model.TextBlock(fmt.Sprintf(":recycle: Pull request #%d was reopened.", ev.Number))}
		if _, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks); err != nil {
			s.logger.Error("posting reopen notification failed", "channel", pr.ChannelID, "error", err)
		}
	}

	s.logger.Info("pull request reopened", "repo", ev.RepoFullName, "pr", ev.Number, "channel", pr.ChannelID)
	return nil
}

func (s *LifecycleService) handleReviewRequested(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil {
		s.logger.Debug("review request for unseen PR", "repo", ev.RepoFullName, "pr", ev.Number)
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	return s.assignReviewer(ctx, sc, chat, pr.ID, pr.ChannelID, ev.Reviewer)
}

func (s *LifecycleService) handleReviewRequestRemoved(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil {
		return nil
	}

	reviewer, err := s.users.GetByGitHubLogin(ctx, sc.org.ID, ev.Reviewer)
	if err != nil {
		return err
	}
	if reviewer == nil {
		return nil
	}

	existing, err := s.reviews.Get(ctx, pr.ID, reviewer.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return nil
	}

	existing.Status = model.ReviewRequestStatusRemoved
	if err := s.reviews.Upsert(ctx, *existing); err != nil {
		return err
	}

	s.logger.Info("review request removed", "pr", ev.Number, "reviewer", ev.Reviewer)
	return nil
}

func (s *LifecycleService) handleSynchronize(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil || !pr.HasChannel() {
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	blocks := []model.MessageBlock{model.TextBlock(fmt.Sprintf(":arrows_counterclockwise: *%s* pushed new commits.", ev.AuthorLogin))}
	if _, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks); err != nil {
		s.logger.Error("posting sync notification failed", "channel", pr.ChannelID, "error", err)
	}
	return nil
}

func (s *LifecycleService) handleEdited(ctx context.Context, sc *scope, ev PullRequestEvent) error {
	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, ev.Number)
	if err != nil {
		return err
	}
	if pr == nil {
		return nil
	}

	titleChanged := ev.TitleChanged || (ev.Title != "" && ev.Title != pr.Title)
	if !titleChanged && !ev.BodyChanged {
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)

	if titleChanged {
		if _, err := s.prs.Upsert(ctx, model.PullRequest{
			RepoID:      sc.repo.ID,
			Number:      ev.Number,
			Title:       ev.Title,
			AuthorLogin: pr.AuthorLogin,
			Status:      pr.Status,
			OpenedAt:    pr.OpenedAt,
		}); err != nil {
			return err
		}
		if pr.HasChannel() {
			topic := fmt.Sprintf("PR #%d: %s (%s)", ev.Number, ev.Title, ev.RepoFullName)
			if err := chat.SetChannelTopic(ctx, pr.ChannelID, topic); err != nil {
				s.logger.Warn("updating channel topic failed", "channel", pr.ChannelID, "error", err)
			}
		}
	}

	if pr.HasChannel() {
		what := "description"
		switch {
		case titleChanged && ev.BodyChanged:
			what = "title and description"
		case titleChanged:
			what = "title"
		}
		blocks := []model.MessageBlock{model.TextBlock(fmt.Sprintf(":pencil2: Pull request #%d was edited (%s).", ev.Number, what))}
		if _, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks); err != nil {
			s.logger.Error("posting edit notification failed", "channel", pr.ChannelID, "error", err)
		}
	}
	return nil
}

// assignReviewer records a pending review request and invites the reviewer to
// the channel when their chat identity is known.
func (s *LifecycleService) assignReviewer(ctx context.Context, sc *scope, chat driven.ChatClient, prID int64, channelID, login string) error {
	if login == "" {
		return nil
	}

	reviewer, err := s.users.Ensure(ctx, sc.org.ID, login)
	if err != nil {
		return err
	}

	if err := s.reviews.Upsert(ctx, model.ReviewRequest{
		PullRequestID: prID,
		ReviewerID:    reviewer.ID,
		Status:        model.ReviewRequestStatusPending,
		RequestedAt:   time.Now().UTC(),
	}); err != nil {
		return err
	}

	if channelID != "" {
		s.inviteByLogin(ctx, sc, chat, channelID, login)
	}
	return nil
}

// inviteByLogin invites the chat identity behind a GitHub login to a channel.
// Identity matching is best effort: a user whose chat account is unknown is
// looked up in the workspace member list by handle or email local part and
// linked when a match is found. Failures are logged, never fatal.
func (s *LifecycleService) inviteByLogin(ctx context.Context, sc *scope, chat driven.ChatClient, channelID, login string) {
	if login == "" {
		return
	}

	user, err := s.users.Ensure(ctx, sc.org.ID, login)
	if err != nil {
		s.logger.Error("user lookup failed", "login", login, "error", err)
		return
	}

	if user.SlackUserID == "" {
		id := s.matchChatUser(ctx, chat, login)
		if id == "" {
			s.logger.Debug("no chat identity for login", "login", login)
			return
		}
		user.SlackUserID = id
		if err := s.users.Update(ctx, *user); err != nil {
			s.logger.Error("saving chat identity failed", "login", login, "error", err)
			return
		}
	}

	if err := chat.InviteUsers(ctx, channelID, []string{user.SlackUserID}); err != nil {
		s.logger.Warn("channel invite failed",
			"channel", channelID, "login", login, "slack_user", user.SlackUserID, "error", err)
	}
}

// matchChatUser scans the workspace member list for an account matching a
// GitHub login by handle or email local part. Returns "" when no match.
func (s *LifecycleService) matchChatUser(ctx context.Context, chat driven.ChatClient, login string) string {
	members, err := chat.ListUsers(ctx)
	if err != nil {
		s.logger.Warn("listing workspace members failed", "error", err)
		return ""
	}

	lower := strings.ToLower(login)
	for _, m := range members {
		if m.IsBot || m.Deleted {
			continue
		}
		if strings.ToLower(m.Name) == lower {
			return m.ID
		}
		if local, _, ok := strings.Cut(m.Email, "@"); ok && strings.ToLower(local) == lower {
			return m.ID
		}
	}
	return ""
}

// openingBlocks builds the channel's opening message: title, author, the
// formatted PR description, and a footer with change stats, labels, and the
// initially requested reviewers.
func openingBlocks(ev PullRequestEvent) []model.MessageBlock {
	header := fmt.Sprintf("*#%d %s*\nopened by *%s* in `%s`",
		ev.Number, ev.Title, ev.AuthorLogin, ev.RepoFullName)

	blocks := []model.MessageBlock{model.TextBlock(header)}
	if strings.TrimSpace(ev.Body) != "" {
		blocks = append(blocks, FormatBlocks(ev.Body)...)
	}

	footer := fmt.Sprintf("+%d −%d · %d files changed", ev.Additions, ev.Deletions, ev.ChangedFiles)
	if len(ev.Labels) > 0 {
		footer += " · " + strings.Join(ev.Labels, ", ")
	}
	if len(ev.Reviewers) > 0 {
		footer += "\nreviewers: " + strings.Join(ev.Reviewers, ", ")
	}
	blocks = append(blocks, model.TextBlock(footer))

	return blocks
}

// channelName derives the channel name for a PR: "pr-<number>-<title slug>".
func channelName(number int, title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= maxSlugLen {
			break
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return fmt.Sprintf("pr-%d", number)
	}
	return fmt.Sprintf("pr-%d-%s", number, slug)
}
