// Package scheduler runs the periodic dashboard refresh. The period measures
// idle time: every user interaction re-arms the timer.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultPeriod is the refresh period when none is configured.
const DefaultPeriod = 5 * time.Minute

// RefreshFunc performs one refresh cycle.
type RefreshFunc func(ctx context.Context)

// Scheduler fires a refresh after Period of inactivity.
type Scheduler struct {
	clock   clockwork.Clock
	period  time.Duration
	refresh RefreshFunc
	logger  *slog.Logger

	mu    sync.Mutex
	ctx   context.Context
	timer clockwork.Timer
	gen   uint64
}

// New creates a stopped scheduler. A nil clock uses the real clock.
func New(clock clockwork.Clock, period time.Duration, refresh RefreshFunc, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{
		clock:   clock,
		period:  period,
		refresh: refresh,
		logger:  logger,
	}
}

// Period returns the refresh period.
func (s *Scheduler) Period() time.Duration {
	return s.period
}

// Start arms the timer. Refreshes run with ctx; cancelling it stops the
// scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.armLocked()
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	s.logger.Info("refresh scheduler started", "period", s.period)
}

// Reset cancels the pending refresh and re-arms the full period. It is a
// no-op on a stopped scheduler.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx == nil || s.ctx.Err() != nil {
		return
	}
	s.armLocked()
	s.logger.Debug("refresh timer reset")
}

// Stop disarms the timer.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.ctx = nil
}

func (s *Scheduler) armLocked() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.period, func() {
		// Run off the timer goroutine so fire can take the lock and re-arm.
		go s.fire(gen)
	})
}

// fire re-arms before refreshing so a failing refresh still leaves the next
// one scheduled.
func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.ctx == nil {
		s.mu.Unlock()
		return
	}
	ctx := s.ctx
	s.armLocked()
	s.mu.Unlock()

	s.logger.Debug("scheduled refresh")
	s.refresh(ctx)
}
