package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// maxParentDepth bounds the reply-chain walk when materializing a comment
// whose ancestors were never mirrored.
const maxParentDepth = 5

// ThreadResolver maps GitHub review activity onto Slack threads: review
// summaries become thread roots, inline comments group under their review's
// summary, and replies land in the thread of their parent.
type ThreadResolver struct {
	orgs     driven.OrgStore
	repos    driven.RepoStore
	users    driven.UserStore
	prs      driven.PRStore
	reviews  driven.ReviewRequestStore
	comments driven.CommentStore
	chat     driven.ChatClients
	github   driven.GitHubClients
	echo     *EchoClassifier
	logger   *slog.Logger
}

// NewThreadResolver creates a thread resolver.
func NewThreadResolver(
	orgs driven.OrgStore,
	repos driven.RepoStore,
	users driven.UserStore,
	prs driven.PRStore,
	reviews driven.ReviewRequestStore,
	comments driven.CommentStore,
	chat driven.ChatClients,
	github driven.GitHubClients,
	echo *EchoClassifier,
	logger *slog.Logger,
) *ThreadResolver {
	return &ThreadResolver{
		orgs:     orgs,
		repos:    repos,
		users:    users,
		prs:      prs,
		reviews:  reviews,
		comments: comments,
		chat:     chat,
		github:   github,
		echo:     echo,
		logger:   logger,
	}
}

// HandleReview processes a pull request review event: updates the reviewer's
// assignment status and posts or updates the review summary message.
func (s *ThreadResolver) HandleReview(ctx context.Context, ev ReviewEvent) error {
	sc, pr, err := s.resolvePR(ctx, ev.RepoFullName, ev.PRNumber)
	if err != nil || sc == nil || pr == nil {
		return err
	}

	if ev.Body == "" && ev.State == "commented" {
		// Likely the container GitHub wraps around a relayed reply; confirm
		// against the review's own comments. A suppressed container must not
		// count as a review outcome for the relaying user.
		if s.echo.SuppressReview(ctx, sc.org, pr.ID, ev.RepoFullName, ev.PRNumber, ev.ReviewID) {
			s.logger.Debug("suppressed relayed review container", "pr", ev.PRNumber, "review", ev.ReviewID)
			return nil
		}
	}

	if ev.Action == "submitted" {
		if err := s.recordReviewOutcome(ctx, sc, pr, ev); err != nil {
			s.logger.Error("recording review outcome failed",
				"pr", ev.PRNumber, "reviewer", ev.ReviewerLogin, "error", err)
		}
	}

	externalID := model.ReviewSummaryID(ev.ReviewID)

	if ev.Body == "" {
		if ev.State == "commented" {
			// Genuine comment-only review; its inline comments arrive as
			// their own events and carry the content.
			return nil
		}
		return s.postReviewState(ctx, sc, pr, ev)
	}

	existing, err := s.comments.GetByExternalID(ctx, pr.ID, externalID)
	if err != nil {
		return err
	}

	if existing != nil {
		if existing.Body == ev.Body {
			return nil
		}
		if err := s.comments.UpdateBody(ctx, existing.ID, ev.Body); err != nil {
			return err
		}
		chat := s.chat.ForToken(sc.org.SlackBotToken)
		if err := chat.UpdateMessage(ctx, pr.ChannelID, existing.MessageTS, s.summaryBlocks(ev)); err != nil {
			s.logger.Error("updating review summary message failed",
				"channel", pr.ChannelID, "ts", existing.MessageTS, "error", err)
		}
		return nil
	}

	if !pr.HasChannel() {
		s.logger.Debug("review for PR without a channel", "repo", ev.RepoFullName, "pr", ev.PRNumber)
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	ts, err := chat.PostMessage(ctx, pr.ChannelID, "", s.summaryBlocks(ev))
	if err != nil {
		return fmt.Errorf("posting review summary: %w", err)
	}

	_, err = s.comments.Create(ctx, model.Comment{
		PullRequestID: pr.ID,
		ExternalID:    externalID,
		ThreadTS:      ts,
		MessageTS:     ts,
		Origin:        model.CommentOriginGitHub,
		Type:          model.CommentTypeReviewSummary,
		Body:          ev.Body,
	})
	return err
}

// HandleReviewComment processes an inline review comment event.
func (s *ThreadResolver) HandleReviewComment(ctx context.Context, ev ReviewCommentEvent) error {
	sc, pr, err := s.resolvePR(ctx, ev.RepoFullName, ev.PRNumber)
	if err != nil || sc == nil || pr == nil {
		return err
	}

	externalID := strconv.FormatInt(ev.CommentID, 10)

	switch ev.Action {
	case "created":
		return s.handleReviewCommentCreated(ctx, sc, pr, ev, externalID)
	case "edited":
		return s.handleCommentEdited(ctx, sc, pr, externalID, ev.AuthorLogin, ev.Body)
	default:
		return nil
	}
}

func (s *ThreadResolver) handleReviewCommentCreated(ctx context.Context, sc *scope, pr *model.PullRequest, ev ReviewCommentEvent, externalID string) error {
	if s.echo.SuppressComment(ctx, pr.ID, externalID, ev.Body) {
		s.logger.Debug("suppressed relayed review comment echo", "pr", ev.PRNumber, "comment", externalID)
		return nil
	}

	existing, err := s.comments.GetByExternalID(ctx, pr.ID, externalID)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	if !pr.HasChannel() {
		s.logger.Debug("review comment for PR without a channel", "repo", ev.RepoFullName, "pr", ev.PRNumber)
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	blocks := commentBlocks(ev.AuthorLogin, ev.Path, ev.Line, ev.Body)

	if ev.InReplyTo != nil {
		root, err := s.resolveThreadRoot(ctx, sc, pr, *ev.InReplyTo, 0)
		if err != nil {
			s.logger.Error("resolving reply parent failed",
				"pr", ev.PRNumber, "comment", externalID, "parent", *ev.InReplyTo, "error", err)
		}
		if root != nil {
			ts, err := chat.PostMessage(ctx, pr.ChannelID, root.ThreadTS, blocks)
			if err != nil {
				return fmt.Errorf("posting threaded reply: %w", err)
			}
			_, err = s.comments.Create(ctx, model.Comment{
				PullRequestID: pr.ID,
				ExternalID:    externalID,
				ThreadTS:      root.ThreadTS,
				MessageTS:     ts,
				ParentID:      &root.ID,
				Origin:        model.CommentOriginGitHub,
				Type:          model.CommentTypeReply,
				Body:          ev.Body,
			})
			return err
		}
		// Parent could not be materialized; fall through and start a
		// fresh thread so the content is not lost.
	} else if ev.ReviewID != 0 {
		summary, err := s.comments.GetByExternalID(ctx, pr.ID, model.ReviewSummaryID(ev.ReviewID))
		if err != nil {
			return err
		}
		if summary != nil {
			ts, err := chat.PostMessage(ctx, pr.ChannelID, summary.ThreadTS, blocks)
			if err != nil {
				return fmt.Errorf("posting inline comment under summary: %w", err)
			}
			_, err = s.comments.Create(ctx, model.Comment{
				PullRequestID: pr.ID,
				ExternalID:    externalID,
				ThreadTS:      summary.ThreadTS,
				MessageTS:     ts,
				ParentID:      &summary.ID,
				Origin:        model.CommentOriginGitHub,
				Type:          model.CommentTypeLineComment,
				Body:          ev.Body,
			})
			return err
		}
	}

	ts, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks)
	if err != nil {
		return fmt.Errorf("posting inline comment: %w", err)
	}
	_, err = s.comments.Create(ctx, model.Comment{
		PullRequestID: pr.ID,
		ExternalID:    externalID,
		ThreadTS:      ts,
		MessageTS:     ts,
		Origin:        model.CommentOriginGitHub,
		Type:          model.CommentTypeLineComment,
		Body:          ev.Body,
	})
	return err
}

// HandleIssueComment processes a PR-level conversation comment.
func (s *ThreadResolver) HandleIssueComment(ctx context.Context, ev IssueCommentEvent) error {
	sc, pr, err := s.resolvePR(ctx, ev.RepoFullName, ev.PRNumber)
	if err != nil || sc == nil || pr == nil {
		return err
	}

	externalID := strconv.FormatInt(ev.CommentID, 10)

	switch ev.Action {
	case "created":
		if s.echo.SuppressComment(ctx, pr.ID, externalID, ev.Body) {
			s.logger.Debug("suppressed relayed issue comment echo", "pr", ev.PRNumber, "comment", externalID)
			return nil
		}
		existing, err := s.comments.GetByExternalID(ctx, pr.ID, externalID)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		if !pr.HasChannel() {
			return nil
		}

		chat := s.chat.ForToken(sc.org.SlackBotToken)
		blocks := commentBlocks(ev.AuthorLogin, "", 0, ev.Body)
		ts, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks)
		if err != nil {
			return fmt.Errorf("posting PR comment: %w", err)
		}
		_, err = s.comments.Create(ctx, model.Comment{
			PullRequestID: pr.ID,
			ExternalID:    externalID,
			ThreadTS:      ts,
			MessageTS:     ts,
			Origin:        model.CommentOriginGitHub,
			Type:          model.CommentTypePRComment,
			Body:          ev.Body,
		})
		return err
	case "edited":
		return s.handleCommentEdited(ctx, sc, pr, externalID, ev.AuthorLogin, ev.Body)
	default:
		return nil
	}
}

// handleCommentEdited updates the stored body and posts an edit notification
// into the comment's thread. Edits to comments that were never mirrored are
// dropped silently.
func (s *ThreadResolver) handleCommentEdited(ctx context.Context, sc *scope, pr *model.PullRequest, externalID, author, body string) error {
	existing, err := s.comments.GetByExternalID(ctx, pr.ID, externalID)
	if err != nil {
		return err
	}
	if existing == nil || existing.Body == body {
		return nil
	}

	if err := s.comments.UpdateBody(ctx, existing.ID, body); err != nil {
		return err
	}
	if !pr.HasChannel() {
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	blocks := append(
		[]model.MessageBlock{model.TextBlock(fmt.Sprintf(":pencil2: *%s* edited a comment:", author))},
		FormatBlocks(body)...,
	)
	if _, err := chat.PostMessage(ctx, pr.ChannelID, existing.ThreadTS, blocks); err != nil {
		s.logger.Error("posting edit notification failed",
			"channel", pr.ChannelID, "thread", existing.ThreadTS, "error", err)
	}
	return nil
}

// resolveThreadRoot returns the mapped thread root for a reply target,
// materializing unmirrored ancestors from the GitHub API as needed. Returns
// nil when the chain cannot be resolved; the caller then starts a new thread.
func (s *ThreadResolver) resolveThreadRoot(ctx context.Context, sc *scope, pr *model.PullRequest, commentID int64, depth int) (*model.Comment, error) {
	externalID := strconv.FormatInt(commentID, 10)

	local, err := s.comments.GetByExternalID(ctx, pr.ID, externalID)
	if err != nil {
		return nil, err
	}
	if local != nil {
		if local.ParentID == nil {
			return local, nil
		}
		// A reply row; its thread root is the row whose message started
		// the thread.
		root, err := s.comments.GetByThread(ctx, pr.ID, local.ThreadTS)
		if err != nil {
			return nil, err
		}
		if root != nil {
			return root, nil
		}
		return local, nil
	}

	if depth >= maxParentDepth {
		return nil, nil
	}

	client := s.github.ForToken(sc.org.GitHubToken)
	fetched, err := client.FetchComment(ctx, sc.repo.FullName, commentID)
	if err != nil || fetched == nil {
		return nil, err
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	blocks := commentBlocks(fetched.Author, fetched.Path, fetched.Line, fetched.Body)

	if fetched.InReplyTo != nil {
		root, err := s.resolveThreadRoot(ctx, sc, pr, *fetched.InReplyTo, depth+1)
		if err != nil {
			return nil, err
		}
		if root != nil {
			ts, err := chat.PostMessage(ctx, pr.ChannelID, root.ThreadTS, blocks)
			if err != nil {
				return nil, err
			}
			if _, err := s.comments.Create(ctx, model.Comment{
				PullRequestID: pr.ID,
				ExternalID:    externalID,
				ThreadTS:      root.ThreadTS,
				MessageTS:     ts,
				ParentID:      &root.ID,
				Origin:        model.CommentOriginGitHub,
				Type:          model.CommentTypeReply,
				Body:          fetched.Body,
			}); err != nil {
				return nil, err
			}
			return root, nil
		}
	}

	ts, err := chat.PostMessage(ctx, pr.ChannelID, "", blocks)
	if err != nil {
		return nil, err
	}
	id, err := s.comments.Create(ctx, model.Comment{
		PullRequestID: pr.ID,
		ExternalID:    externalID,
		ThreadTS:      ts,
		MessageTS:     ts,
		Origin:        model.CommentOriginGitHub,
		Type:          model.CommentTypeLineComment,
		Body:          fetched.Body,
	})
	if err != nil {
		return nil, err
	}
	return &model.Comment{
		ID:            id,
		PullRequestID: pr.ID,
		ExternalID:    externalID,
		ThreadTS:      ts,
		MessageTS:     ts,
		Origin:        model.CommentOriginGitHub,
		Type:          model.CommentTypeLineComment,
		Body:          fetched.Body,
	}, nil
}

// recordReviewOutcome moves the reviewer's assignment to the submitted
// review's terminal state.
func (s *ThreadResolver) recordReviewOutcome(ctx context.Context, sc *scope, pr *model.PullRequest, ev ReviewEvent) error {
	var status model.ReviewRequestStatus
	switch ev.State {
	case "approved":
		status = model.ReviewRequestStatusApproved
	case "changes_requested":
		status = model.ReviewRequestStatusChangesRequested
	case "commented":
		status = model.ReviewRequestStatusCommented
	default:
		return nil
	}

	reviewer, err := s.users.Ensure(ctx, sc.org.ID, ev.ReviewerLogin)
	if err != nil {
		return err
	}

	rr := model.ReviewRequest{
		PullRequestID: pr.ID,
		ReviewerID:    reviewer.ID,
		Status:        status,
		RequestedAt:   ev.SubmittedAt,
		CompletedAt:   &ev.SubmittedAt,
	}
	if existing, err := s.reviews.Get(ctx, pr.ID, reviewer.ID); err != nil {
		return err
	} else if existing != nil {
		rr.RequestedAt = existing.RequestedAt
	}

	return s.reviews.Upsert(ctx, rr)
}

// postReviewState posts a short state notification for a review with no
// summary body, such as a bare approval.
func (s *ThreadResolver) postReviewState(ctx context.Context, sc *scope, pr *model.PullRequest, ev ReviewEvent) error {
	if !pr.HasChannel() {
		return nil
	}

	var text string
	switch ev.State {
	case "approved":
		text = fmt.Sprintf(":white_check_mark: *%s* approved this pull request.", ev.ReviewerLogin)
	case "changes_requested":
		text = fmt.Sprintf(":no_entry: *%s* requested changes.", ev.ReviewerLogin)
	default:
		return nil
	}

	chat := s.chat.ForToken(sc.org.SlackBotToken)
	if _, err := chat.PostMessage(ctx, pr.ChannelID, "", []model.MessageBlock{model.TextBlock(text)}); err != nil {
		return fmt.Errorf("posting review state: %w", err)
	}
	return nil
}

// summaryBlocks renders a review summary message: reviewer and verdict header
// followed by the formatted body.
func (s *ThreadResolver) summaryBlocks(ev ReviewEvent) []model.MessageBlock {
	var verdict string
	switch ev.State {
	case "approved":
		verdict = ":white_check_mark: *%s* approved this pull request"
	case "changes_requested":
		verdict = ":no_entry: *%s* requested changes"
	default:
		verdict = ":speech_balloon: *%s* reviewed this pull request"
	}

	blocks := []model.MessageBlock{model.TextBlock(fmt.Sprintf(verdict, ev.ReviewerLogin))}
	return append(blocks, FormatBlocks(ev.Body)...)
}

// commentBlocks renders a comment message: author header, optional file/line
// location, and the formatted body. Path is empty for PR-level comments.
func commentBlocks(author, path string, line int, body string) []model.MessageBlock {
	header := fmt.Sprintf("*%s* commented", author)
	if path != "" {
		header = fmt.Sprintf("*%s* commented on `%s`", author, path)
		if line > 0 {
			header += fmt.Sprintf(" line %d", line)
		}
	}

	blocks := []model.MessageBlock{model.TextBlock(header)}
	return append(blocks, FormatBlocks(body)...)
}

// resolvePR resolves the tenant scope and PR row for a review-platform event.
// A nil scope or PR means the event targets something prbridge does not
// track; the caller drops it.
func (s *ThreadResolver) resolvePR(ctx context.Context, repoFullName string, number int) (*scope, *model.PullRequest, error) {
	sc, err := resolveScope(ctx, s.orgs, s.repos, repoFullName)
	if err != nil {
		return nil, nil, err
	}
	if sc == nil {
		s.logger.Debug("dropping event for untracked repository", "repo", repoFullName)
		return nil, nil, nil
	}

	pr, err := s.prs.GetByNumber(ctx, sc.repo.ID, number)
	if err != nil {
		return nil, nil, err
	}
	if pr == nil {
		s.logger.Debug("dropping event for unseen PR", "repo", repoFullName, "pr", number)
		return sc, nil, nil
	}
	return sc, pr, nil
}
