// Package dashboard holds the view-mode state machine and the render
// pipeline. Every transition is a pure function returning a new State; the
// derived View is computed from a State by Render.
package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// Presentation selects how earthquakes are drawn on the map.
type Presentation string

const (
	Markers Presentation = "markers"
	Heatmap Presentation = "heatmap"
)

// Tab selects the side panel.
type Tab string

const (
	ListTab Tab = "list"
	NewsTab Tab = "news"
)

var (
	ErrInvalidPresentation = errors.New("invalid view: must be markers or heatmap")
	ErrInvalidTab          = errors.New("invalid tab: must be list or news")
)

// ParsePresentation parses "markers" or "heatmap".
func ParsePresentation(s string) (Presentation, error) {
	switch p := Presentation(strings.ToLower(strings.TrimSpace(s))); p {
	case Markers, Heatmap:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPresentation, s)
	}
}

// ParseTab parses "list" or "news".
func ParseTab(s string) (Tab, error) {
	switch t := Tab(strings.ToLower(strings.TrimSpace(s))); t {
	case ListTab, NewsTab:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTab, s)
	}
}

// Request tags an earthquake fetch with the selection it was issued for.
type Request struct {
	ID     uuid.UUID
	Window quake.Window
	Seq    uint64
}

// State is the whole dashboard state. Records is the last applied fetch for
// Window and is never modified in place.
type State struct {
	Window       quake.Window
	Presentation Presentation
	Tab          Tab

	Records  []quake.Event
	FetchErr error
	Loaded   bool

	News       []quake.Event
	NewsErr    error
	NewsLoaded bool

	// Fresh is set when Records was just replaced by a non-empty fetch, and
	// cleared by any view toggle. Render fits the map only while it is set.
	Fresh bool

	issued      uint64
	applied     uint64
	newsApplied uint64
}

// New returns the initial state: markers + list for window w.
func New(w quake.Window) State {
	return State{
		Window:       w,
		Presentation: Markers,
		Tab:          ListTab,
	}
}

func (s State) nextRequest() (State, Request) {
	s.issued++
	return s, Request{ID: uuid.New(), Window: s.Window, Seq: s.issued}
}

// Refresh issues a request for the current window without touching the
// displayed records.
func (s State) Refresh() (State, Request) {
	return s.nextRequest()
}

// SelectWindow switches the window, clears the records of the previous one
// and issues a request for the new one.
func (s State) SelectWindow(w quake.Window) (State, Request) {
	s.Window = w
	s.Records = nil
	s.FetchErr = nil
	s.Loaded = false
	s.Fresh = false
	return s.nextRequest()
}

// Stale reports whether a result for req must be discarded: the window moved
// on, or a newer request has already been applied.
func (s State) Stale(req Request) bool {
	return req.Window != s.Window || req.Seq <= s.applied
}

// ApplyFetch applies the result of req. It returns the unchanged state and
// false when the result is stale. A failed fetch leaves no records.
func (s State) ApplyFetch(req Request, events []quake.Event, err error) (State, bool) {
	if s.Stale(req) {
		return s, false
	}

	s.applied = req.Seq
	s.Loaded = true
	s.FetchErr = err
	if err != nil {
		s.Records = nil
		s.Fresh = false
		return s, true
	}
	s.Records = events
	s.Fresh = len(events) > 0
	return s, true
}

// ApplyNews applies the significant-events result fetched in the same cycle
// as req. It is independent of the earthquake records. A result older than
// the last applied one is dropped and false is returned.
func (s State) ApplyNews(req Request, events []quake.Event, err error) (State, bool) {
	if req.Seq <= s.newsApplied {
		return s, false
	}

	s.newsApplied = req.Seq
	s.NewsLoaded = true
	s.NewsErr = err
	if err != nil {
		s.News = nil
		return s, true
	}
	s.News = events
	return s, true
}

// SelectPresentation switches between markers and heat map. The view is
// re-derived from Records; nothing is fetched and the map is not refitted.
func (s State) SelectPresentation(p Presentation) (State, error) {
	p, err := ParsePresentation(string(p))
	if err != nil {
		return s, err
	}
	s.Presentation = p
	s.Fresh = false
	return s, nil
}

// SelectTab switches the side panel. Only visibility changes.
func (s State) SelectTab(t Tab) (State, error) {
	t, err := ParseTab(string(t))
	if err != nil {
		return s, err
	}
	s.Tab = t
	s.Fresh = false
	return s, nil
}
