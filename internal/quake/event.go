// Package quake holds the earthquake record model and the pure derivations
// the dashboard draws from it: markers, heat samples, bounds and labels.
package quake

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Event is a single earthquake as delivered by the feed. Its identity is its
// position in the fetched sequence.
type Event struct {
	Magnitude float64   `json:"magnitude"`
	Longitude float64   `json:"longitude"`
	Latitude  float64   `json:"latitude"`
	Place     string    `json:"place"`
	Time      time.Time `json:"time"`
	URL       string    `json:"url"`
}

// Window selects the time span of the feed to fetch.
type Window int

const (
	Day   Window = 1
	Week  Window = 7
	Month Window = 30
)

// ErrInvalidWindow is returned for a window other than 1, 7 or 30 days.
var ErrInvalidWindow = errors.New("invalid window")

// Windows lists the selectable windows in display order.
var Windows = []Window{Day, Week, Month}

// Feed returns the USGS summary feed name for the window.
func (w Window) Feed() string {
	switch w {
	case Week:
		return "all_week"
	case Month:
		return "all_month"
	default:
		return "all_day"
	}
}

// Label is the human period used in headers, e.g. "24 Hours".
func (w Window) Label() string {
	switch w {
	case Week:
		return "7 Days"
	case Month:
		return "30 Days"
	default:
		return "24 Hours"
	}
}

// Short is the button caption for the window.
func (w Window) Short() string {
	switch w {
	case Week:
		return "7d"
	case Month:
		return "30d"
	default:
		return "24h"
	}
}

func (w Window) String() string {
	return strconv.Itoa(int(w))
}

// Valid reports whether w is one of the known windows.
func (w Window) Valid() bool {
	return w == Day || w == Week || w == Month
}

// ParseWindow parses the day count of a window ("1", "7" or "30").
func ParseWindow(s string) (Window, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w %q: %v", ErrInvalidWindow, s, err)
	}
	w := Window(n)
	if !w.Valid() {
		return 0, fmt.Errorf("%w %q: must be 1, 7 or 30", ErrInvalidWindow, s)
	}
	return w, nil
}

// Header renders the list header, e.g. "3 Earthquakes in the Last 24 Hours".
func Header(count int, w Window) string {
	return fmt.Sprintf("%d Earthquakes in the Last %s", count, w.Label())
}
