package github

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nhle/repowatch/internal/source"
)

const (
	defaultPageSize = 30
	loginCacheKey   = "login"
	loginTTL        = 10 * time.Minute
)

// Adapter implements source.Source for github.com and GitHub Enterprise.
type Adapter struct {
	client *Client
	logins *cache.Cache
}

// NewAdapter creates a new GitHub source adapter.
func NewAdapter(baseURL, token string) *Adapter {
	return &Adapter{
		client: NewClient(baseURL, token),
		logins: cache.New(loginTTL, 2*loginTTL),
	}
}

// Login resolves the login handle of the token owner. The result is cached
// for a few minutes since every poll cycle asks for it.
func (a *Adapter) Login(ctx context.Context) (string, error) {
	if v, ok := a.logins.Get(loginCacheKey); ok {
		return v.(string), nil
	}

	var user User
	if _, err := a.client.Get(ctx, "/user", &user); err != nil {
		return "", fmt.Errorf("resolving authenticated user: %w", err)
	}
	if user.Login == "" {
		return "", &source.AuthError{
			Provider: providerName,
			Message:  "token is not associated with a user",
		}
	}

	a.logins.Set(loginCacheKey, user.Login, cache.DefaultExpiration)
	return user.Login, nil
}

// FetchIssues lists issues in the given state, skipping pull requests.
func (a *Adapter) FetchIssues(
	ctx context.Context,
	repo, state string,
	opts source.FetchOptions,
) (*source.Page[source.Item], error) {
	q := pageQuery(opts)
	q.Set("state", defaultState(state))

	var issues []Issue
	header, err := a.client.Get(ctx, repoPath(repo, "/issues", q), &issues)
	if err != nil {
		return nil, fmt.Errorf("listing issues: %w", err)
	}

	items := make([]source.Item, 0, len(issues))
	for _, is := range issues {
		if is.IsPullRequest() {
			continue
		}
		items = append(items, issueToItem(is))
	}

	return &source.Page[source.Item]{
		Items:      items,
		TotalPages: totalPages(header, pageNumber(opts)),
	}, nil
}

// FetchPullRequests lists pull requests in the given state.
func (a *Adapter) FetchPullRequests(
	ctx context.Context,
	repo, state string,
	opts source.FetchOptions,
) (*source.Page[source.Item], error) {
	q := pageQuery(opts)
	q.Set("state", defaultState(state))

	var prs []PullRequest
	header, err := a.client.Get(ctx, repoPath(repo, "/pulls", q), &prs)
	if err != nil {
		return nil, fmt.Errorf("listing pull requests: %w", err)
	}

	items := make([]source.Item, 0, len(prs))
	for _, pr := range prs {
		items = append(items, source.Item{
			ID:     pr.ID,
			Number: pr.Number,
			Title:  pr.Title,
			URL:    pr.HTMLURL,
		})
	}

	return &source.Page[source.Item]{
		Items:      items,
		TotalPages: totalPages(header, pageNumber(opts)),
	}, nil
}

// FetchAssignedPullRequests lists open pull requests in repo assigned to
// login, using the issue search API.
func (a *Adapter) FetchAssignedPullRequests(
	ctx context.Context,
	repo, login string,
	opts source.FetchOptions,
) (*source.Page[source.Item], error) {
	q := pageQuery(opts)
	q.Set("q", fmt.Sprintf("repo:%s is:pr is:open assignee:%s", repo, login))

	var resp SearchIssuesResponse
	if _, err := a.client.Get(ctx, "/search/issues?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("searching assigned pull requests: %w", err)
	}

	items := make([]source.Item, 0, len(resp.Items))
	for _, is := range resp.Items {
		items = append(items, issueToItem(is))
	}

	return &source.Page[source.Item]{
		Items:      items,
		TotalPages: pagesFromTotal(resp.TotalCount, pageSize(opts)),
	}, nil
}

// FetchWorkflowRuns lists workflow runs, optionally filtered by status.
func (a *Adapter) FetchWorkflowRuns(
	ctx context.Context,
	repo, status string,
	opts source.FetchOptions,
) (*source.Page[source.Run], error) {
	q := pageQuery(opts)
	if status != "" {
		q.Set("status", status)
	}

	var resp WorkflowRunsResponse
	if _, err := a.client.Get(ctx, repoPath(repo, "/actions/runs", q), &resp); err != nil {
		return nil, fmt.Errorf("listing workflow runs: %w", err)
	}

	runs := make([]source.Run, 0, len(resp.WorkflowRuns))
	for _, r := range resp.WorkflowRuns {
		runs = append(runs, source.Run{
			ID:         r.ID,
			Name:       r.Name,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			URL:        r.HTMLURL,
		})
	}

	return &source.Page[source.Run]{
		Items:      runs,
		TotalPages: pagesFromTotal(resp.TotalCount, pageSize(opts)),
	}, nil
}

// FetchReleases lists releases, newest first.
func (a *Adapter) FetchReleases(
	ctx context.Context,
	repo string,
	opts source.FetchOptions,
) (*source.Page[source.Item], error) {
	var releases []Release
	header, err := a.client.Get(ctx, repoPath(repo, "/releases", pageQuery(opts)), &releases)
	if err != nil {
		return nil, fmt.Errorf("listing releases: %w", err)
	}

	items := make([]source.Item, 0, len(releases))
	for _, r := range releases {
		title := r.Name
		if title == "" {
			title = r.TagName
		}
		items = append(items, source.Item{
			ID:    r.ID,
			Title: title,
			URL:   r.HTMLURL,
		})
	}

	return &source.Page[source.Item]{
		Items:      items,
		TotalPages: totalPages(header, pageNumber(opts)),
	}, nil
}

// issueToItem converts an issue or search hit to a source.Item.
func issueToItem(is Issue) source.Item {
	return source.Item{
		ID:     is.ID,
		Number: is.Number,
		Title:  is.Title,
		URL:    is.HTMLURL,
	}
}

// repoPath builds /repos/<owner>/<name><suffix>?<query>. The full name is
// kept verbatim since it already contains the owner/name separator.
func repoPath(repo, suffix string, q url.Values) string {
	p := "/repos/" + repo + suffix
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p
}

func pageQuery(opts source.FetchOptions) url.Values {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(pageSize(opts)))
	q.Set("page", strconv.Itoa(pageNumber(opts)))
	return q
}

func pageSize(opts source.FetchOptions) int {
	if opts.PageSize < 1 {
		return defaultPageSize
	}
	return opts.PageSize
}

func pageNumber(opts source.FetchOptions) int {
	if opts.Page < 1 {
		return 1
	}
	return opts.Page
}

func defaultState(state string) string {
	if state == "" {
		return "open"
	}
	return state
}
