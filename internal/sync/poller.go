package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nhle/repowatch/internal/diff"
	"github.com/nhle/repowatch/internal/metrics"
	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/notify"
	"github.com/nhle/repowatch/internal/source"
	"github.com/nhle/repowatch/internal/store"
)

// ErrCycleInProgress is returned by RunCycle when another cycle for the same
// login has not finished yet.
var ErrCycleInProgress = errors.New("poll cycle already in progress")

// CycleResult summarizes one poll cycle.
type CycleResult struct {
	ID    string
	Login string

	// Skipped is set when the login has no category enabled anywhere; nothing
	// was fetched or written.
	Skipped bool

	Fetched    int
	NewMarkers int
	FetchErrs  []error
	Badge      notify.Badge
	Duration   time.Duration
}

// Options configures a Poller.
type Options struct {
	Config    model.PollConfig
	Indicator notify.Indicator
	Metrics   *metrics.PollMetrics
	Logger    *slog.Logger
}

// fetchJob is one (repository, category) pair of a cycle.
type fetchJob struct {
	repo     string
	category model.Category
}

// fetchOutcome is the result of one fetchJob.
type fetchOutcome struct {
	obs model.Observation
	err error
}

// Poller runs poll cycles and acknowledgements against one source and one
// state store. Everything that mutates a login's snapshot or notifications
// goes through the login's lock.
type Poller struct {
	src       source.Source
	store     *store.StateStore
	indicator notify.Indicator
	metrics   *metrics.PollMetrics
	logger    *slog.Logger
	cfg       model.PollConfig

	mu    gosync.Mutex
	locks map[string]*gosync.Mutex
}

// New creates a Poller.
func New(src source.Source, st *store.StateStore, opts Options) *Poller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	cfg := opts.Config
	if cfg.PageSize < 1 {
		cfg.PageSize = model.DefaultPageSize
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = model.DefaultConcurrency
	}
	if cfg.FetchTimeoutSec < 1 {
		cfg.FetchTimeoutSec = model.DefaultFetchTimeoutSec
	}

	indicator := opts.Indicator
	if indicator == nil {
		indicator = notify.LogIndicator{Logger: logger}
	}

	return &Poller{
		src:       src,
		store:     st,
		indicator: indicator,
		metrics:   opts.Metrics,
		logger:    logger.With("module", "sync"),
		cfg:       cfg,
		locks:     make(map[string]*gosync.Mutex),
	}
}

// lockFor returns the mutex guarding the state of login.
func (p *Poller) lockFor(login string) *gosync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()

	l, ok := p.locks[login]
	if !ok {
		l = &gosync.Mutex{}
		p.locks[login] = l
	}
	return l
}

// maxCommitAttempts bounds how often a write is retried after another
// writer changed the state in between.
const maxCommitAttempts = 5

// RunCycle polls every enabled category of every configured repository of
// login, folds the results into the stored snapshot and notifications and
// writes both back together. A second call for the same login while one is
// running returns ErrCycleInProgress instead of waiting.
//
// A failing category is logged and skipped; its previous snapshot value is
// kept. An authentication failure aborts the cycle before anything is
// written. When another process writes the login's state while the cycle is
// fetching, the fetched pages are folded again onto the newer state.
func (p *Poller) RunCycle(ctx context.Context, login string) (*CycleResult, error) {
	lock := p.lockFor(login)
	if !lock.TryLock() {
		p.metrics.RecordCycle(metrics.OutcomeSuppressed, 0)
		p.logger.Debug("poll cycle suppressed", "login", login)
		return nil, ErrCycleInProgress
	}
	defer lock.Unlock()

	start := time.Now()
	res := &CycleResult{ID: uuid.NewString(), Login: login}
	logger := p.logger.With("cycle", res.ID, "login", login)

	st, err := p.store.Load(ctx, login)
	if err != nil {
		p.metrics.RecordCycle(metrics.OutcomeError, 0)
		return nil, fmt.Errorf("loading state: %w", err)
	}

	if st.Alerts.IsEmpty() {
		res.Skipped = true
		p.metrics.RecordCycle(metrics.OutcomeSkipped, 0)
		logger.Debug("no alerts configured, skipping cycle")
		return res, nil
	}

	jobs := planJobs(st.Alerts)
	outcomes, err := p.fetchAll(ctx, login, jobs)
	if err != nil {
		if source.IsAuthError(err) {
			p.metrics.RecordCycle(metrics.OutcomeAuthError, 0)
		} else {
			p.metrics.RecordCycle(metrics.OutcomeError, 0)
		}
		logger.Error("poll cycle aborted", "error", err)
		return nil, err
	}

	var f *fold
	for attempt := 1; ; attempt++ {
		if attempt > 1 {
			if st, err = p.store.Load(ctx, login); err != nil {
				p.metrics.RecordCycle(metrics.OutcomeError, 0)
				return nil, fmt.Errorf("reloading state: %w", err)
			}
		}

		f = p.foldOutcomes(logger, st, jobs, outcomes)
		err = p.store.SaveCycle(ctx, login, st.Version, f.snap, f.notifs)
		if err == nil {
			break
		}
		if errors.Is(err, store.ErrStateChanged) && attempt < maxCommitAttempts {
			logger.Debug("state changed during cycle, folding again", "attempt", attempt)
			continue
		}
		p.metrics.RecordCycle(metrics.OutcomeError, 0)
		logger.Error("persisting cycle failed", "error", err)
		return nil, err
	}

	for i, job := range jobs {
		out := outcomes[i]
		if out.err != nil {
			fetchErr := &source.FetchError{Repo: job.repo, Category: job.category, Err: out.err}
			res.FetchErrs = append(res.FetchErrs, fetchErr)
			p.metrics.RecordFetchError(string(job.category))
			logger.Warn("fetch failed",
				"repo", job.repo,
				"category", job.category,
				"error", out.err,
			)
			continue
		}
		res.Fetched++

		if out.obs.TotalPages > 1 {
			p.metrics.RecordTruncated(string(job.category))
			logger.Debug("only the first page was examined",
				"repo", job.repo,
				"category", job.category,
				"total_pages", out.obs.TotalPages,
			)
		}
	}
	for c, n := range f.added {
		res.NewMarkers += n
		p.metrics.RecordNewMarkers(string(c), n)
	}

	res.Badge = p.publish(ctx, logger, f.notifs)
	res.Duration = time.Since(start)
	p.metrics.RecordCycle(metrics.OutcomeOK, res.Duration.Seconds())

	logger.Info("poll cycle complete",
		"fetched", res.Fetched,
		"failed", len(res.FetchErrs),
		"new_markers", res.NewMarkers,
		"badge", res.Badge.Count,
		"duration", res.Duration,
	)
	return res, nil
}

// fold is the state a cycle is about to write.
type fold struct {
	snap   model.Snapshot
	notifs model.Notifications
	added  map[model.Category]int
}

// foldOutcomes diffs every successful outcome against st and returns the
// resulting snapshot and notifications. st is not modified.
func (p *Poller) foldOutcomes(logger *slog.Logger, st *store.State, jobs []fetchJob, outcomes []fetchOutcome) *fold {
	f := &fold{
		snap:   st.Snapshot.Clone(),
		notifs: st.Notifications.Clone(),
		added:  make(map[model.Category]int),
	}

	for i, job := range jobs {
		out := outcomes[i]
		if out.err != nil {
			continue
		}
		prev := f.snap[job.repo]

		fresh := diff.Detect(prev, out.obs)
		if !prev.Observed(job.category) && p.cfg.SeedOnFirstSight {
			if len(fresh) > 0 {
				logger.Debug("seeding baseline",
					"repo", job.repo,
					"category", job.category,
					"items", len(fresh),
				)
			}
			fresh = nil
		}

		before := len(f.notifs[job.repo][job.category])
		if notify.Accumulate(f.notifs, job.repo, job.category, fresh) {
			f.added[job.category] += len(f.notifs[job.repo][job.category]) - before
		}

		f.snap[job.repo] = model.MergeSnapshot(prev, out.obs, true)
	}
	return f
}

// planJobs lists the (repository, category) pairs to fetch: repositories in
// sorted order, categories in their fixed order.
func planJobs(alerts model.AlertConfig) []fetchJob {
	var jobs []fetchJob
	for _, repo := range alerts.Repositories() {
		for _, c := range alerts.Enabled(repo) {
			jobs = append(jobs, fetchJob{repo: repo, category: c})
		}
	}
	return jobs
}

// fetchAll runs every job concurrently within the fetch timeout. Per-job
// failures are returned in the outcome slice; only an authentication failure
// (or cancellation of ctx) fails the whole call.
func (p *Poller) fetchAll(ctx context.Context, login string, jobs []fetchJob) ([]fetchOutcome, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, p.cfg.FetchTimeout())
	defer cancel()

	outcomes := make([]fetchOutcome, len(jobs))
	opts := source.FetchOptions{Page: 1, PageSize: p.cfg.PageSize}

	g, gctx := errgroup.WithContext(fetchCtx)
	g.SetLimit(p.cfg.Concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			fetch, ok := categoryRules[job.category]
			if !ok {
				outcomes[i].err = fmt.Errorf("no fetcher for category %q", job.category)
				return nil
			}

			obs, err := fetch(gctx, p.src, job.repo, login, opts)
			if err != nil {
				if source.IsAuthError(err) {
					return err
				}
				outcomes[i].err = err
				return nil
			}
			outcomes[i].obs = obs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("poll cycle cancelled: %w", err)
	}
	return outcomes, nil
}

// ClearCategory acknowledges every marker of one repository category and
// republishes the badge. It waits for a running cycle of the same login in
// this process to finish first; a write by another process in between makes
// it reload and clear again. Clearing a category with no markers is not an
// error.
func (p *Poller) ClearCategory(ctx context.Context, login, repo string, c model.Category) (notify.Badge, error) {
	lock := p.lockFor(login)
	lock.Lock()
	defer lock.Unlock()

	logger := p.logger.With("login", login)
	for attempt := 1; ; attempt++ {
		st, err := p.store.Load(ctx, login)
		if err != nil {
			return notify.Badge{}, err
		}

		if !notify.Clear(st.Notifications, repo, c) {
			return p.publish(ctx, logger, st.Notifications), nil
		}

		err = p.store.SaveNotifications(ctx, login, st.Version, st.Notifications)
		if errors.Is(err, store.ErrStateChanged) && attempt < maxCommitAttempts {
			logger.Debug("state changed during acknowledgement, retrying", "attempt", attempt)
			continue
		}
		if err != nil {
			return notify.Badge{}, err
		}

		logger.Info("notifications acknowledged",
			"repo", repo,
			"category", c,
		)
		return p.publish(ctx, logger, st.Notifications), nil
	}
}

// Badge recomputes the badge from the stored notifications and publishes it
// without polling.
func (p *Poller) Badge(ctx context.Context, login string) (notify.Badge, error) {
	notifs, err := p.store.LoadNotifications(ctx, login)
	if err != nil {
		return notify.Badge{}, err
	}
	return p.publish(ctx, p.logger.With("login", login), notifs), nil
}

// publish pushes the badge for notifs to the indicator. Indicator failures
// are logged; the notifications are already persisted at this point.
func (p *Poller) publish(ctx context.Context, logger *slog.Logger, notifs model.Notifications) notify.Badge {
	badge := notify.BadgeFor(notify.Summarize(notifs))
	if err := p.indicator.Publish(ctx, badge); err != nil {
		logger.Warn("publishing badge failed", "error", err)
	}
	return badge
}
