// Package app wires configuration, persistence, the GitHub source and the
// poller into one container shared by the CLI commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nhle/repowatch/internal/metrics"
	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/notify"
	"github.com/nhle/repowatch/internal/source"
	"github.com/nhle/repowatch/internal/store"
	"github.com/nhle/repowatch/internal/sync"
)

// App holds the long-lived components of one process.
type App struct {
	Config     *model.AppConfig
	ConfigPath string
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Metrics    *metrics.PollMetrics
	KV         store.KV
	State      *store.StateStore
	Source     source.Source
	Poller     *sync.Poller
}

// Options selects how New builds the source. Tests and offline commands
// inject one directly.
type Options struct {
	Source source.Source
}

// New builds every component from cfg. The caller must Close the result.
func New(ctx context.Context, cfg *model.AppConfig, cfgPath string, logger *slog.Logger, opts Options) (*App, error) {
	kv, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	src := opts.Source
	if src == nil {
		src, err = NewGitHubSource(cfg.GitHub)
		if err != nil {
			kv.Close()
			return nil, err
		}
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.NewPollMetrics(reg)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	state := store.NewStateStore(kv, logger)
	indicator := notify.MultiIndicator{
		notify.LogIndicator{Logger: logger},
		notify.GaugeIndicator{Gauge: m.BadgeGauge()},
	}

	return &App{
		Config:     cfg,
		ConfigPath: cfgPath,
		Logger:     logger,
		Registry:   reg,
		Metrics:    m,
		KV:         kv,
		State:      state,
		Source:     src,
		Poller: sync.New(src, state, sync.Options{
			Config:    cfg.Poll,
			Indicator: indicator,
			Metrics:   m,
			Logger:    logger,
		}),
	}, nil
}

// Close releases the store.
func (a *App) Close() error {
	return a.KV.Close()
}

// Login returns the identity whose state is read and written: the
// configured github.login, or else the owner of the token.
func (a *App) Login(ctx context.Context) (string, error) {
	if a.Config.GitHub.Login != "" {
		return a.Config.GitHub.Login, nil
	}
	if a.Source == nil {
		return "", errors.New("no source configured and github.login is empty")
	}
	return a.Source.Login(ctx)
}
