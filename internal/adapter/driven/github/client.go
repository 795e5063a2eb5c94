// Package github implements the GitHubClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitHubClient = (*Client)(nil)

// Client implements the driven.GitHubClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with token auth)
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchReviewComments retrieves the inline comments belonging to a single
// submitted review. It handles pagination automatically and maps go-github
// types to domain model types.
func (c *Client) FetchReviewComments(ctx context.Context, repoFullName string, prNumber int, reviewID int64) ([]model.InlineComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	var all []model.InlineComment

	for {
		comments, resp, err := c.gh.PullRequests.ListReviewComments(ctx, owner, repo, prNumber, reviewID, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for review %d on %s#%d (page %d): %w", reviewID, repoFullName, prNumber, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/review-comments", opts.Page, len(comments))

		for _, comment := range comments {
			all = append(all, mapInlineComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchComment retrieves a single review comment by id. Returns nil, nil on 404
// so callers can distinguish a deleted parent from an API failure.
func (c *Client) FetchComment(ctx context.Context, repoFullName string, commentID int64) (*model.InlineComment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	comment, resp, err := c.gh.PullRequests.GetComment(ctx, owner, repo, commentID)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetching comment %d on %s: %w", commentID, repoFullName, err)
	}

	logRateLimit(resp, repoFullName+"/comment", 0, 1)

	mapped := mapInlineComment(comment)
	return &mapped, nil
}

// CreateIssueComment creates a PR-level comment via the Issues API and
// returns the new comment's id.
func (c *Client) CreateIssueComment(ctx context.Context, repoFullName string, prNumber int, body string) (int64, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return 0, err
	}

	created, _, err := c.gh.Issues.CreateComment(ctx, owner, repo, prNumber, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return 0, fmt.Errorf("creating issue comment on %s#%d: %w", repoFullName, prNumber, err)
	}

	return created.GetID(), nil
}

// CreateReplyComment creates a reply to an existing review comment thread and
// returns the new comment's id.
func (c *Client) CreateReplyComment(ctx context.Context, repoFullName string, prNumber int, inReplyTo int64, body string) (int64, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return 0, err
	}

	// The reply endpoint ignores all fields except body and in_reply_to.
	created, _, err := c.gh.PullRequests.CreateCommentInReplyTo(ctx, owner, repo, prNumber, body, inReplyTo)
	if err != nil {
		return 0, fmt.Errorf("creating reply comment on %s#%d: %w", repoFullName, prNumber, err)
	}

	return created.GetID(), nil
}

// mapInlineComment converts a go-github PullRequestComment to a domain model
// InlineComment. It uses GetXxx() helper methods exclusively to avoid nil
// pointer panics.
func mapInlineComment(c *gh.PullRequestComment) model.InlineComment {
	var inReplyTo *int64
	if c.InReplyTo != nil {
		val := c.GetInReplyTo()
		inReplyTo = &val
	}

	return model.InlineComment{
		ID:        c.GetID(),
		ReviewID:  c.GetPullRequestReviewID(),
		Author:    c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		Path:      c.GetPath(),
		Line:      c.GetLine(),
		InReplyTo: inReplyTo,
		CreatedAt: c.GetCreatedAt().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
