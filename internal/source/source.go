package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/repowatch/internal/model"
)

// AuthError indicates that authentication has failed or is missing.
// It is returned by source clients when a 401 response is received and by
// credential lookups when no token is configured.
type AuthError struct {
	Provider string
	Message  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %s", e.Provider, e.Message)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// FetchError records the failure of one category fetch for one repository.
type FetchError struct {
	Repo     string
	Category model.Category
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s for %s: %v", e.Category, e.Repo, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// FetchOptions controls pagination for list operations.
type FetchOptions struct {
	Page     int
	PageSize int
}

// Page holds one page of a collection plus the number of pages the whole
// collection spans upstream.
type Page[T any] struct {
	Items      []T
	TotalPages int
}

// Item is an issue, pull request or release as seen by the poller.
type Item struct {
	ID     int64
	Number int
	Title  string
	URL    string
}

// Run is a workflow run.
type Run struct {
	ID         int64
	Name       string
	Status     string
	Conclusion string
	URL        string
}

// Source defines the fetcher contract every provider must implement. Every
// fetch fails (rather than returning an empty page) when the credential is
// rejected or the resource is unreachable.
type Source interface {
	// Login returns the login handle of the authenticated user.
	Login(ctx context.Context) (string, error)

	// FetchIssues lists issues (excluding pull requests) in the given state.
	FetchIssues(ctx context.Context, repo, state string, opts FetchOptions) (*Page[Item], error)

	// FetchPullRequests lists pull requests in the given state.
	FetchPullRequests(ctx context.Context, repo, state string, opts FetchOptions) (*Page[Item], error)

	// FetchAssignedPullRequests lists open pull requests assigned to login.
	FetchAssignedPullRequests(ctx context.Context, repo, login string, opts FetchOptions) (*Page[Item], error)

	// FetchWorkflowRuns lists workflow runs, optionally filtered by status.
	FetchWorkflowRuns(ctx context.Context, repo, status string, opts FetchOptions) (*Page[Run], error)

	// FetchReleases lists releases, newest first.
	FetchReleases(ctx context.Context, repo string, opts FetchOptions) (*Page[Item], error)
}
