// Package app owns the dashboard state and runs fetch-and-render cycles
// for the HTTP server, the scheduler and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Zachdehooge/quake-dashboard/internal/dashboard"
	"github.com/Zachdehooge/quake-dashboard/internal/observability"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// Refresh triggers, used as metric labels.
const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerWindow   = "window"
	TriggerManual   = "manual"
)

// Feed is the source of earthquake records.
type Feed interface {
	FetchEvents(ctx context.Context, w quake.Window) ([]quake.Event, error)
	FetchSignificant(ctx context.Context) ([]quake.Event, error)
}

// Resetter re-arms the idle refresh timer.
type Resetter interface {
	Reset()
}

// Service serialises every state transition behind mu. Fetches run without
// the lock; their results go through dashboard.State.ApplyFetch, which drops
// responses for a selection that has moved on.
type Service struct {
	feed    Feed
	logger  *slog.Logger
	metrics *observability.Metrics
	loc     *time.Location

	mu    sync.Mutex
	state dashboard.State

	resetter Resetter
	ready    atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithLocation sets the time zone used for displayed times.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithResetter attaches the refresh timer that user interactions re-arm.
func WithResetter(r Resetter) Option {
	return func(s *Service) {
		s.resetter = r
	}
}

// New creates a Service in the initial state for window w.
func New(feed Feed, w quake.Window, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Service {
	s := &Service{
		feed:    feed,
		logger:  logger,
		metrics: metrics,
		loc:     time.Local,
		state:   dashboard.New(w),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetResetter attaches the refresh timer after construction. The scheduler
// needs the service's refresh method, so the two are wired in two steps.
func (s *Service) SetResetter(r Resetter) {
	s.mu.Lock()
	s.resetter = r
	s.mu.Unlock()
}

// Location returns the display time zone.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Snapshot returns the current state and the view derived from it.
func (s *Service) Snapshot() (dashboard.State, dashboard.View) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	return st, dashboard.Render(st, s.loc)
}

// View returns the view of the current state.
func (s *Service) View() dashboard.View {
	_, v := s.Snapshot()
	return v
}

// Refresh re-fetches the current window and the news feed.
func (s *Service) Refresh(ctx context.Context, trigger string) {
	s.mu.Lock()
	var req dashboard.Request
	s.state, req = s.state.Refresh()
	s.mu.Unlock()

	s.cycle(ctx, req, trigger)
}

// ScheduledRefresh is the scheduler callback.
func (s *Service) ScheduledRefresh(ctx context.Context) {
	s.Refresh(ctx, TriggerSchedule)
}

// ManualRefresh is a user-requested refresh. It re-arms the timer. The
// fetch is not cancelled with ctx; the client timeout bounds it.
func (s *Service) ManualRefresh(ctx context.Context) {
	s.interacted()
	s.Refresh(context.WithoutCancel(ctx), TriggerManual)
}

// SelectWindow switches the time window and fetches it. As with
// ManualRefresh, an abandoned caller does not cancel the fetch: its result
// is shown to every viewer.
func (s *Service) SelectWindow(ctx context.Context, w quake.Window) error {
	if !w.Valid() {
		return fmt.Errorf("%w %q", quake.ErrInvalidWindow, w.String())
	}

	s.mu.Lock()
	var req dashboard.Request
	s.state, req = s.state.SelectWindow(w)
	s.mu.Unlock()

	s.interacted()
	s.cycle(context.WithoutCancel(ctx), req, TriggerWindow)
	return nil
}

// SelectPresentation switches between markers and heat map from the
// retained records.
func (s *Service) SelectPresentation(p dashboard.Presentation) error {
	s.mu.Lock()
	next, err := s.state.SelectPresentation(p)
	if err == nil {
		s.state = next
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.interacted()
	s.logger.Debug("presentation selected", "view", p)
	return nil
}

// SelectTab switches the side panel.
func (s *Service) SelectTab(t dashboard.Tab) error {
	s.mu.Lock()
	next, err := s.state.SelectTab(t)
	if err == nil {
		s.state = next
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.interacted()
	s.logger.Debug("tab selected", "tab", t)
	return nil
}

// CheckReadiness reports ready once a fetch cycle has completed.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("no fetch cycle has completed yet")
	}
	return nil
}

func (s *Service) interacted() {
	s.mu.Lock()
	r := s.resetter
	s.mu.Unlock()
	if r != nil {
		r.Reset()
	}
}

// cycle fetches the earthquakes for req and the news feed concurrently.
// The two fail independently.
func (s *Service) cycle(ctx context.Context, req dashboard.Request, trigger string) {
	s.metrics.Refreshes.WithLabelValues(trigger).Inc()
	s.logger.Info("refresh started", "trigger", trigger, "window", req.Window, "request_id", req.ID)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.fetchEvents(ctx, req)
	}()
	go func() {
		defer wg.Done()
		s.fetchNews(ctx, req)
	}()
	wg.Wait()

	s.ready.Store(true)
}

func (s *Service) fetchEvents(ctx context.Context, req dashboard.Request) {
	events, err := s.feed.FetchEvents(ctx, req.Window)

	s.mu.Lock()
	var applied bool
	s.state, applied = s.state.ApplyFetch(req, events, err)
	current := s.state.Window
	s.mu.Unlock()

	if !applied {
		s.metrics.StaleResponses.Inc()
		s.logger.Warn("discarding stale response",
			"request_id", req.ID,
			"window", req.Window,
			"current_window", current,
		)
		return
	}

	if err != nil {
		s.metrics.Records.WithLabelValues(req.Window.String()).Set(0)
		return
	}
	s.metrics.Records.WithLabelValues(req.Window.String()).Set(float64(len(events)))
	s.logger.Info("earthquakes updated", "window", req.Window, "count", len(events), "request_id", req.ID)
}

func (s *Service) fetchNews(ctx context.Context, req dashboard.Request) {
	events, err := s.feed.FetchSignificant(ctx)

	s.mu.Lock()
	var applied bool
	s.state, applied = s.state.ApplyNews(req, events, err)
	s.mu.Unlock()

	if !applied {
		s.metrics.StaleResponses.Inc()
		s.logger.Warn("discarding stale news response", "request_id", req.ID)
		return
	}
	if err == nil {
		s.logger.Debug("significant events updated", "count", len(events), "request_id", req.ID)
	}
}
