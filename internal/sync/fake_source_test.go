package sync

import (
	"context"
	gosync "sync"

	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/notify"
	"github.com/nhle/repowatch/internal/source"
)

// fakeSource serves canned first pages per repository and category.
type fakeSource struct {
	mu       gosync.Mutex
	ids      map[string]map[model.Category][]int64
	runs     map[string][]source.Run
	failures map[string]map[model.Category]error
	calls    map[string]map[model.Category]int
	pages    int

	// when set, FetchIssues signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ids:      make(map[string]map[model.Category][]int64),
		runs:     make(map[string][]source.Run),
		failures: make(map[string]map[model.Category]error),
		calls:    make(map[string]map[model.Category]int),
		pages:    1,
	}
}

func (f *fakeSource) setIDs(repo string, c model.Category, ids ...int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[repo] == nil {
		f.ids[repo] = make(map[model.Category][]int64)
	}
	f.ids[repo][c] = ids
}

func (f *fakeSource) setRuns(repo string, runs ...source.Run) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs[repo] = runs
}

func (f *fakeSource) fail(repo string, c model.Category, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[repo] == nil {
		f.failures[repo] = make(map[model.Category]error)
	}
	f.failures[repo][c] = err
}

func (f *fakeSource) callCount(repo string, c model.Category) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[repo][c]
}

func (f *fakeSource) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, cats := range f.calls {
		for _, c := range cats {
			n += c
		}
	}
	return n
}

func (f *fakeSource) record(repo string, c model.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls[repo] == nil {
		f.calls[repo] = make(map[model.Category]int)
	}
	f.calls[repo][c]++
	return f.failures[repo][c]
}

func (f *fakeSource) itemPage(ctx context.Context, repo string, c model.Category) (*source.Page[source.Item], error) {
	if err := f.record(repo, c); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	items := make([]source.Item, 0, len(f.ids[repo][c]))
	for _, id := range f.ids[repo][c] {
		items = append(items, source.Item{ID: id})
	}
	return &source.Page[source.Item]{Items: items, TotalPages: f.pages}, nil
}

func (f *fakeSource) Login(context.Context) (string, error) { return "octocat", nil }

func (f *fakeSource) FetchIssues(ctx context.Context, repo, _ string, _ source.FetchOptions) (*source.Page[source.Item], error) {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	return f.itemPage(ctx, repo, model.CategoryIssues)
}

func (f *fakeSource) FetchPullRequests(ctx context.Context, repo, _ string, _ source.FetchOptions) (*source.Page[source.Item], error) {
	return f.itemPage(ctx, repo, model.CategoryNewPRs)
}

func (f *fakeSource) FetchAssignedPullRequests(ctx context.Context, repo, _ string, _ source.FetchOptions) (*source.Page[source.Item], error) {
	return f.itemPage(ctx, repo, model.CategoryAssignedPRs)
}

func (f *fakeSource) FetchWorkflowRuns(ctx context.Context, repo, _ string, _ source.FetchOptions) (*source.Page[source.Run], error) {
	if err := f.record(repo, model.CategoryActions); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return &source.Page[source.Run]{Items: append([]source.Run(nil), f.runs[repo]...), TotalPages: f.pages}, nil
}

func (f *fakeSource) FetchReleases(ctx context.Context, repo string, _ source.FetchOptions) (*source.Page[source.Item], error) {
	return f.itemPage(ctx, repo, model.CategoryNewReleases)
}

// recordingIndicator keeps every published badge.
type recordingIndicator struct {
	mu     gosync.Mutex
	badges []notify.Badge
}

func (r *recordingIndicator) Publish(_ context.Context, b notify.Badge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.badges = append(r.badges, b)
	return nil
}

func (r *recordingIndicator) last() notify.Badge {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.badges) == 0 {
		return notify.Badge{}
	}
	return r.badges[len(r.badges)-1]
}

func (r *recordingIndicator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.badges)
}
