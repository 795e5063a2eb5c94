package application_test

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ericfisherdev/prbridge/internal/application"
	"github.com/ericfisherdev/prbridge/internal/domain/model"
	"github.com/ericfisherdev/prbridge/internal/domain/port/driven"
)

// --- In-memory store fakes ---

type memOrgStore struct {
	mu   sync.Mutex
	orgs []model.Organization
}

func (m *memOrgStore) Create(_ context.Context, org model.Organization) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	org.ID = int64(len(m.orgs) + 1)
	m.orgs = append(m.orgs, org)
	return org.ID, nil
}

func (m *memOrgStore) GetByID(_ context.Context, id int64) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.ID == id {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memOrgStore) GetByGitHubOrg(_ context.Context, login string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.GitHubOrg == login {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memOrgStore) GetBySlackTeamID(_ context.Context, teamID string) (*model.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orgs {
		if o.SlackTeamID == teamID {
			out := o
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memOrgStore) Update(_ context.Context, org model.Organization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.orgs {
		if m.orgs[i].ID == org.ID {
			m.orgs[i] = org
			return nil
		}
	}
	return fmt.Errorf("organization %d not found", org.ID)
}

type memRepoStore struct {
	mu    sync.Mutex
	repos []model.Repository
}

func (m *memRepoStore) Create(_ context.Context, repo model.Repository) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repos {
		if r.FullName == repo.FullName {
			return r.ID, nil
		}
	}
	repo.ID = int64(len(m.repos) + 1)
	m.repos = append(m.repos, repo)
	return repo.ID, nil
}

func (m *memRepoStore) GetByID(_ context.Context, id int64) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repos {
		if r.ID == id {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memRepoStore) GetByFullName(_ context.Context, fullName string) (*model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.repos {
		if r.FullName == fullName {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memRepoStore) SetActive(_ context.Context, fullName string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.repos {
		if m.repos[i].FullName == fullName {
			m.repos[i].IsActive = active
			return nil
		}
	}
	return fmt.Errorf("repository %s not found", fullName)
}

func (m *memRepoStore) ListByOrg(_ context.Context, orgID int64) ([]model.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Repository
	for _, r := range m.repos {
		if r.OrgID == orgID {
			out = append(out, r)
		}
	}
	return out, nil
}

type memUserStore struct {
	mu    sync.Mutex
	users []model.User
}

func (m *memUserStore) Ensure(_ context.Context, orgID int64, githubLogin string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OrgID == orgID && u.GitHubLogin == githubLogin {
			out := u
			return &out, nil
		}
	}
	u := model.User{
		ID:          int64(len(m.users) + 1),
		OrgID:       orgID,
		GitHubLogin: githubLogin,
	}
	m.users = append(m.users, u)
	out := u
	return &out, nil
}

func (m *memUserStore) GetByGitHubLogin(_ context.Context, orgID int64, login string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OrgID == orgID && u.GitHubLogin == login {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) GetBySlackUserID(_ context.Context, orgID int64, slackUserID string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.OrgID == orgID && u.SlackUserID == slackUserID && slackUserID != "" {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memUserStore) Update(_ context.Context, user model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.users {
		if m.users[i].ID == user.ID {
			m.users[i] = user
			return nil
		}
	}
	return fmt.Errorf("user %d not found", user.ID)
}

type memPRStore struct {
	mu  sync.Mutex
	prs []model.PullRequest
}

func (m *memPRStore) Upsert(_ context.Context, pr model.PullRequest) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prs {
		if m.prs[i].RepoID == pr.RepoID && m.prs[i].Number == pr.Number {
			m.prs[i].Title = pr.Title
			m.prs[i].AuthorLogin = pr.AuthorLogin
			m.prs[i].Status = pr.Status
			return m.prs[i].ID, nil
		}
	}
	pr.ID = int64(len(m.prs) + 1)
	m.prs = append(m.prs, pr)
	return pr.ID, nil
}

func (m *memPRStore) GetByNumber(_ context.Context, repoID int64, number int) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.prs {
		if pr.RepoID == repoID && pr.Number == number {
			out := pr
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memPRStore) GetByChannelID(_ context.Context, channelID string) (*model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, pr := range m.prs {
		if pr.ChannelID == channelID && channelID != "" {
			out := pr
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memPRStore) ListByRepo(_ context.Context, repoID int64) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PullRequest
	for _, pr := range m.prs {
		if pr.RepoID == repoID {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *memPRStore) ListClosedBefore(_ context.Context, cutoff time.Time) ([]model.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PullRequest
	for _, pr := range m.prs {
		if pr.Status == model.PRStatusOpen || !pr.HasChannel() {
			continue
		}
		if pr.ClosedAt != nil && pr.ClosedAt.Before(cutoff) {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *memPRStore) SetChannel(_ context.Context, id int64, channelID string, archived bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prs {
		if m.prs[i].ID == id {
			m.prs[i].ChannelID = channelID
			m.prs[i].ChannelArchived = archived
			return nil
		}
	}
	return fmt.Errorf("pull request %d not found", id)
}

func (m *memPRStore) SetStatus(_ context.Context, id int64, status model.PRStatus, closedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.prs {
		if m.prs[i].ID == id {
			m.prs[i].Status = status
			m.prs[i].ClosedAt = closedAt
			return nil
		}
	}
	return fmt.Errorf("pull request %d not found", id)
}

type memReviewRequestStore struct {
	mu  sync.Mutex
	rrs []model.ReviewRequest
}

func (m *memReviewRequestStore) Upsert(_ context.Context, rr model.ReviewRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rrs {
		if m.rrs[i].PullRequestID == rr.PullRequestID && m.rrs[i].ReviewerID == rr.ReviewerID {
			m.rrs[i].Status = rr.Status
			m.rrs[i].CompletedAt = rr.CompletedAt
			return nil
		}
	}
	rr.ID = int64(len(m.rrs) + 1)
	m.rrs = append(m.rrs, rr)
	return nil
}

func (m *memReviewRequestStore) Get(_ context.Context, prID, reviewerID int64) (*model.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rr := range m.rrs {
		if rr.PullRequestID == prID && rr.ReviewerID == reviewerID {
			out := rr
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memReviewRequestStore) ListByPR(_ context.Context, prID int64) ([]model.ReviewRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ReviewRequest
	for _, rr := range m.rrs {
		if rr.PullRequestID == prID {
			out = append(out, rr)
		}
	}
	return out, nil
}

type memCommentStore struct {
	mu       sync.Mutex
	comments []model.Comment
	getErr   error
}

func (m *memCommentStore) Create(_ context.Context, c model.Comment) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.comments {
		if existing.PullRequestID == c.PullRequestID && existing.ExternalID == c.ExternalID {
			return existing.ID, nil
		}
	}
	c.ID = int64(len(m.comments) + 1)
	m.comments = append(m.comments, c)
	return c.ID, nil
}

func (m *memCommentStore) GetByExternalID(_ context.Context, prID int64, externalID string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, c := range m.comments {
		if c.PullRequestID == prID && c.ExternalID == externalID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memCommentStore) GetByThread(_ context.Context, prID int64, threadTS string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.comments {
		if c.PullRequestID == prID && c.MessageTS == threadTS {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (m *memCommentStore) UpdateBody(_ context.Context, id int64, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.comments {
		if m.comments[i].ID == id {
			m.comments[i].Body = body
			return nil
		}
	}
	return fmt.Errorf("comment %d not found", id)
}

func (m *memCommentStore) ListByPR(_ context.Context, prID int64) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for _, c := range m.comments {
		if c.PullRequestID == prID {
			out = append(out, c)
		}
	}
	return out, nil
}

// --- Chat client fake ---

type postedMessage struct {
	Channel  string
	ThreadTS string
	TS       string
	Blocks   []model.MessageBlock
}

type fakeChat struct {
	mu       sync.Mutex
	nextTS   int
	posted   []postedMessage
	updated  []postedMessage
	channels []string
	invited  map[string][]string
	archived []string
	topics   map[string]string
	members  []model.ChatUser
	postErr  error
}

func newFakeChat() *fakeChat {
	return &fakeChat{
		invited: make(map[string][]string),
		topics:  make(map[string]string),
	}
}

func (f *fakeChat) PostMessage(_ context.Context, channelID, threadTS string, blocks []model.MessageBlock) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return "", f.postErr
	}
	f.nextTS++
	ts := fmt.Sprintf("1700000000.%06d", f.nextTS)
	f.posted = append(f.posted, postedMessage{Channel: channelID, ThreadTS: threadTS, TS: ts, Blocks: blocks})
	return ts, nil
}

func (f *fakeChat) UpdateMessage(_ context.Context, channelID, ts string, blocks []model.MessageBlock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, postedMessage{Channel: channelID, TS: ts, Blocks: blocks})
	return nil
}

func (f *fakeChat) CreateChannel(_ context.Context, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, name)
	return fmt.Sprintf("C%03d", len(f.channels)), nil
}

func (f *fakeChat) SetChannelTopic(_ context.Context, channelID, topic string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics[channelID] = topic
	return nil
}

func (f *fakeChat) InviteUsers(_ context.Context, channelID string, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invited[channelID] = append(f.invited[channelID], userIDs...)
	return nil
}

func (f *fakeChat) ArchiveChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, channelID)
	return nil
}

func (f *fakeChat) ListUsers(_ context.Context) ([]model.ChatUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members, nil
}

type fakeChatClients struct {
	client *fakeChat
	tokens []string
}

func (f *fakeChatClients) ForToken(token string) driven.ChatClient {
	f.tokens = append(f.tokens, token)
	return f.client
}

// --- GitHub client fake ---

type createdComment struct {
	Repo      string
	PRNumber  int
	InReplyTo int64
	Body      string
}

type fakeGitHub struct {
	mu             sync.Mutex
	nextID         int64
	reviewComments map[int64][]model.InlineComment
	fetchable      map[int64]*model.InlineComment
	issueComments  []createdComment
	replies        []createdComment
	fetchErr       error
	createErr      error
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{
		nextID:         9000,
		reviewComments: make(map[int64][]model.InlineComment),
		fetchable:      make(map[int64]*model.InlineComment),
	}
}

func (f *fakeGitHub) FetchReviewComments(_ context.Context, _ string, _ int, reviewID int64) ([]model.InlineComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.reviewComments[reviewID], nil
}

func (f *fakeGitHub) FetchComment(_ context.Context, _ string, commentID int64) (*model.InlineComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.fetchable[commentID], nil
}

func (f *fakeGitHub) CreateIssueComment(_ context.Context, repoFullName string, prNumber int, body string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.issueComments = append(f.issueComments, createdComment{Repo: repoFullName, PRNumber: prNumber, Body: body})
	return f.nextID, nil
}

func (f *fakeGitHub) CreateReplyComment(_ context.Context, repoFullName string, prNumber int, inReplyTo int64, body string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.replies = append(f.replies, createdComment{Repo: repoFullName, PRNumber: prNumber, InReplyTo: inReplyTo, Body: body})
	return f.nextID, nil
}

type fakeGitHubClients struct {
	client *fakeGitHub
	tokens []string
}

func (f *fakeGitHubClients) ForToken(token string) driven.GitHubClient {
	f.tokens = append(f.tokens, token)
	return f.client
}

// --- Fixture ---

// fixture wires all services against in-memory fakes with one seeded
// organization ("acme", Slack team T100) and one active repository
// ("acme/widgets").
type fixture struct {
	orgs     *memOrgStore
	repos    *memRepoStore
	users    *memUserStore
	prs      *memPRStore
	reviews  *memReviewRequestStore
	comments *memCommentStore
	chat     *fakeChat
	github   *fakeGitHub

	echo      *application.EchoClassifier
	lifecycle *application.LifecycleService
	threads   *application.ThreadResolver
	relay     *application.RelayService

	org  model.Organization
	repo model.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		orgs:     &memOrgStore{},
		repos:    &memRepoStore{},
		users:    &memUserStore{},
		prs:      &memPRStore{},
		reviews:  &memReviewRequestStore{},
		comments: &memCommentStore{},
		chat:     newFakeChat(),
		github:   newFakeGitHub(),
	}

	ctx := context.Background()

	orgID, err := f.orgs.Create(ctx, model.Organization{
		Name:          "Acme",
		GitHubOrg:     "acme",
		GitHubToken:   "gh-service-token",
		SlackTeamID:   "T100",
		SlackBotToken: "xoxb-token",
	})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	org, _ := f.orgs.GetByID(ctx, orgID)
	f.org = *org

	repoID, err := f.repos.Create(ctx, model.Repository{
		OrgID:    orgID,
		FullName: "acme/widgets",
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("seed repo: %v", err)
	}
	repo, _ := f.repos.GetByID(ctx, repoID)
	f.repo = *repo

	logger := slog.Default()
	chatClients := &fakeChatClients{client: f.chat}
	githubClients := &fakeGitHubClients{client: f.github}

	f.echo = application.NewEchoClassifier(f.comments, githubClients, logger)
	f.lifecycle = application.NewLifecycleService(
		f.orgs, f.repos, f.users, f.prs, f.reviews, f.comments, chatClients, logger,
	)
	f.threads = application.NewThreadResolver(
		f.orgs, f.repos, f.users, f.prs, f.reviews, f.comments,
		chatClients, githubClients, f.echo, logger,
	)
	f.relay = application.NewRelayService(
		f.orgs, f.repos, f.users, f.prs, f.comments, githubClients, logger,
	)

	return f
}

// openPR drives a PR opened event through the lifecycle service and returns
// the stored row.
func (f *fixture) openPR(t *testing.T, number int, title string) *model.PullRequest {
	t.Helper()

	err := f.lifecycle.HandlePullRequest(context.Background(), application.PullRequestEvent{
		Action:       "opened",
		RepoFullName: "acme/widgets",
		Number:       number,
		Title:        title,
		Body:         "Adds the thing.",
		AuthorLogin:  "alice",
		OpenedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("open PR: %v", err)
	}

	pr, err := f.prs.GetByNumber(context.Background(), f.repo.ID, number)
	if err != nil || pr == nil {
		t.Fatalf("PR %d not stored after open", number)
	}
	return pr
}
