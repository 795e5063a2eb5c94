package webhook

import (
	"context"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/ericfisherdev/prbridge/internal/application"
)

// GitHubWebhook verifies, parses, and enqueues a GitHub event delivery. The
// response is written before any processing happens; GitHub's delivery
// timeout is short and processing involves outbound API calls.
func (h *Handler) GitHubWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	payload, err := gh.ValidatePayload(r, []byte(h.githubSecret))
	if err != nil {
		h.logger.Warn("rejected GitHub delivery with bad signature", "error", err)
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	event, err := gh.ParseWebHook(gh.WebHookType(r), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unparseable payload")
		return
	}

	switch e := event.(type) {
	case *gh.PullRequestEvent:
		ev := prEventFrom(e)
		h.dispatcher.Enqueue("pull_request", func(ctx context.Context) error {
			return h.lifecycle.HandlePullRequest(ctx, ev)
		})
	case *gh.PullRequestReviewEvent:
		ev := reviewEventFrom(e)
		run := func(ctx context.Context) error {
			return h.threads.HandleReview(ctx, ev)
		}
		if ev.Body == "" && ev.State == "commented" {
			// Give a possibly-relayed sibling comment time to land in
			// the mapping store before the echo check runs.
			h.dispatcher.EnqueueAfter(h.settleDelay, "review", run)
		} else {
			h.dispatcher.Enqueue("review", run)
		}
	case *gh.PullRequestReviewCommentEvent:
		ev := reviewCommentEventFrom(e)
		h.dispatcher.Enqueue("review_comment", func(ctx context.Context) error {
			return h.threads.HandleReviewComment(ctx, ev)
		})
	case *gh.IssueCommentEvent:
		if !e.GetIssue().IsPullRequest() {
			break
		}
		ev := issueCommentEventFrom(e)
		h.dispatcher.Enqueue("issue_comment", func(ctx context.Context) error {
			return h.threads.HandleIssueComment(ctx, ev)
		})
	default:
		h.logger.Debug("ignoring GitHub event", "type", gh.WebHookType(r))
	}

	w.WriteHeader(http.StatusAccepted)
}

func prEventFrom(e *gh.PullRequestEvent) application.PullRequestEvent {
	pr := e.GetPullRequest()

	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	reviewers := make([]string, 0, len(pr.RequestedReviewers))
	for _, u := range pr.RequestedReviewers {
		reviewers = append(reviewers, u.GetLogin())
	}

	ev := application.PullRequestEvent{
		Action:       e.GetAction(),
		RepoFullName: e.GetRepo().GetFullName(),
		Number:       pr.GetNumber(),
		Title:        pr.GetTitle(),
		Body:         pr.GetBody(),
		AuthorLogin:  pr.GetUser().GetLogin(),
		Merged:       pr.GetMerged(),
		Additions:    pr.GetAdditions(),
		Deletions:    pr.GetDeletions(),
		ChangedFiles: pr.GetChangedFiles(),
		Labels:       labels,
		Reviewers:    reviewers,
		Reviewer:     e.GetRequestedReviewer().GetLogin(),
		OpenedAt:     pr.GetCreatedAt().Time,
	}
	if ch := e.GetChanges(); ch != nil {
		ev.TitleChanged = ch.Title != nil
		ev.BodyChanged = ch.Body != nil
	}
	return ev
}

func reviewEventFrom(e *gh.PullRequestReviewEvent) application.ReviewEvent {
	review := e.GetReview()

	return application.ReviewEvent{
		Action:        e.GetAction(),
		RepoFullName:  e.GetRepo().GetFullName(),
		PRNumber:      e.GetPullRequest().GetNumber(),
		ReviewID:      review.GetID(),
		ReviewerLogin: review.GetUser().GetLogin(),
		State:         review.GetState(),
		Body:          review.GetBody(),
		SubmittedAt:   review.GetSubmittedAt().Time,
	}
}

func reviewCommentEventFrom(e *gh.PullRequestReviewCommentEvent) application.ReviewCommentEvent {
	c := e.GetComment()

	return application.ReviewCommentEvent{
		Action:       e.GetAction(),
		RepoFullName: e.GetRepo().GetFullName(),
		PRNumber:     e.GetPullRequest().GetNumber(),
		CommentID:    c.GetID(),
		ReviewID:     c.GetPullRequestReviewID(),
		AuthorLogin:  c.GetUser().GetLogin(),
		Body:         c.GetBody(),
		Path:         c.GetPath(),
		Line:         c.GetLine(),
		InReplyTo:    c.InReplyTo,
		CreatedAt:    c.GetCreatedAt().Time,
	}
}

func issueCommentEventFrom(e *gh.IssueCommentEvent) application.IssueCommentEvent {
	c := e.GetComment()

	return application.IssueCommentEvent{
		Action:       e.GetAction(),
		RepoFullName: e.GetRepo().GetFullName(),
		PRNumber:     e.GetIssue().GetNumber(),
		CommentID:    c.GetID(),
		AuthorLogin:  c.GetUser().GetLogin(),
		Body:         c.GetBody(),
		CreatedAt:    c.GetCreatedAt().Time,
	}
}
