package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"
)

// Scheduler owns a single named recurring timer. Registering again replaces
// the current registration; there is never more than one.
type Scheduler struct {
	name   string
	run    func(ctx context.Context)
	logger *slog.Logger

	mu      gosync.Mutex
	parent  context.Context
	current *registration
	wg      gosync.WaitGroup
}

// registration is one live schedule.
type registration struct {
	every  time.Duration
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler that calls run on every tick. run receives
// a context that is cancelled when the registration is replaced or stopped,
// or when ctx ends.
func NewScheduler(ctx context.Context, name string, run func(ctx context.Context), logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		name:   name,
		run:    run,
		logger: logger.With("module", "scheduler", "schedule", name),
		parent: ctx,
	}
}

// Schedule fires run once after delay and then every interval, replacing any
// existing registration.
func (s *Scheduler) Schedule(delay, every time.Duration) error {
	if every <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive, got %s", s.name, every)
	}
	delay = max(delay, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := s.current != nil
	s.cancelLocked()

	ctx, cancel := context.WithCancel(s.parent)
	s.current = &registration{every: every, cancel: cancel}

	s.wg.Add(1)
	go s.loop(ctx, delay, every)

	s.logger.Info("schedule registered",
		"delay", delay,
		"every", every,
		"replaced", replaced,
	)
	return nil
}

// SetCadence re-registers the schedule to fire every minutes minutes,
// starting one full interval from now.
func (s *Scheduler) SetCadence(minutes int) error {
	if minutes < 1 {
		return fmt.Errorf("schedule %s: cadence must be at least 1 minute, got %d", s.name, minutes)
	}
	every := time.Duration(minutes) * time.Minute
	return s.Schedule(every, every)
}

// Every returns the interval of the current registration, or zero when
// nothing is scheduled.
func (s *Scheduler) Every() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return 0
	}
	return s.current.every
}

// Stop cancels the registration and waits for every loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.cancelLocked()
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Scheduler) cancelLocked() {
	if s.current == nil {
		return
	}
	s.current.cancel()
	s.current = nil
}

func (s *Scheduler) loop(ctx context.Context, delay, every time.Duration) {
	defer s.wg.Done()

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			// a replaced registration may see its timer and its
			// cancellation at the same time
			if ctx.Err() != nil {
				return
			}
			s.run(ctx)
			timer.Reset(every)
		}
	}
}
