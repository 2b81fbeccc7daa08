package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/nhle/repowatch/internal/model"
	"github.com/nhle/repowatch/internal/sync"
)

const pollScheduleName = "repowatch-poll"

func runCommand(cc *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll on a schedule until interrupted",
		Long: "Poll every configured repository on the configured cadence. " +
			"Send SIGHUP to reload the configuration and apply a new cadence.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := cc.open(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			login, err := a.Login(ctx)
			if err != nil {
				return err
			}
			logger := cc.logger.With("login", login)

			if _, err := a.Poller.Badge(ctx, login); err != nil {
				logger.Warn("publishing initial badge failed", "error", err)
			}

			sched := sync.NewScheduler(ctx, pollScheduleName, func(ctx context.Context) {
				_, err := a.Poller.RunCycle(ctx, login)
				switch {
				case err == nil:
				case errors.Is(err, sync.ErrCycleInProgress):
					logger.Info("previous cycle still running, tick skipped")
				default:
					logger.Error("poll cycle failed", "error", err)
				}
			}, cc.logger)

			poll := cc.cfg.Poll
			if err := sched.Schedule(poll.InitialDelay(), poll.Interval()); err != nil {
				return err
			}
			defer sched.Stop()

			if cc.cfg.Metrics.Listen != "" {
				srv := &http.Server{
					Addr:              cc.cfg.Metrics.Listen,
					Handler:           metricsMux(a.Registry),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						logger.Error("metrics server failed", "error", err)
					}
				}()
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				logger.Info("serving metrics", "addr", cc.cfg.Metrics.Listen)
			}

			hup := make(chan os.Signal, 1)
			signal.Notify(hup, syscall.SIGHUP)
			defer signal.Stop(hup)

			for {
				select {
				case <-ctx.Done():
					logger.Info("shutting down")
					return nil
				case <-hup:
					reloadCadence(cc, sched)
				}
			}
		},
	}
}

// reloadCadence re-reads the configuration file and re-registers the
// schedule when the interval changed.
func reloadCadence(cc *cliContext, sched *sync.Scheduler) {
	cfg, err := model.LoadConfig(cc.configPath)
	if err != nil {
		cc.logger.Error("reloading configuration failed", "error", err)
		return
	}
	if cfg.Poll.Interval() == sched.Every() {
		return
	}
	if err := sched.SetCadence(cfg.Poll.IntervalMin); err != nil {
		cc.logger.Error("applying cadence failed", "error", err)
		return
	}
	cc.cfg.Poll.IntervalMin = cfg.Poll.IntervalMin
}

// metricsMux serves the registry on /metrics.
func metricsMux(reg prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
