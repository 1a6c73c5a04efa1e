package quake

import (
	"fmt"
	"math"
	"time"
)

// Tier buckets magnitudes for colouring.
type Tier string

const (
	Minor    Tier = "minor"
	Moderate Tier = "moderate"
	Severe   Tier = "severe"
)

const (
	maxMarkerRadius = 25
	radiusPerMag    = 5
	timeLayout      = "Jan 2, 2006 at 3:04 PM MST"
)

// TierOf returns the tier for a magnitude: >= 6 severe, >= 4 moderate.
func TierOf(mag float64) Tier {
	switch {
	case mag >= 6:
		return Severe
	case mag >= 4:
		return Moderate
	default:
		return Minor
	}
}

// Color is the marker and badge colour of the tier.
func (t Tier) Color() string {
	switch t {
	case Severe:
		return "#dc3545"
	case Moderate:
		return "#ffc107"
	default:
		return "#28a745"
	}
}

// Class is the CSS class suffix of the tier.
func (t Tier) Class() string {
	switch t {
	case Severe:
		return "high"
	case Moderate:
		return "medium"
	default:
		return "low"
	}
}

// Popup is the content bound to a marker.
type Popup struct {
	Magnitude string `json:"magnitude"`
	Place     string `json:"place"`
	Time      string `json:"time"`
	URL       string `json:"url"`
}

// Marker is the handle the map draws for one event. Index is the position of
// the event in the fetched sequence and of its list item.
type Marker struct {
	Index  int     `json:"index"`
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
	Color  string  `json:"color"`
	Tier   Tier    `json:"tier"`
	Popup  Popup   `json:"popup"`
}

// HeatPoint is a heat layer sample with intensity in [0, 1].
type HeatPoint struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Intensity float64 `json:"intensity"`
}

// Bounds is a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// Radius returns the marker radius for a magnitude, capped at 25.
func Radius(mag float64) float64 {
	return math.Min(mag*radiusPerMag, maxMarkerRadius)
}

// FormatMagnitude renders a magnitude with one decimal place.
func FormatMagnitude(mag float64) string {
	return fmt.Sprintf("%.1f", mag)
}

// FormatTime renders t in loc. A nil loc means time.Local.
func FormatTime(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return "Not specified"
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(timeLayout)
}

// Markers derives one marker per event, in event order.
func Markers(events []Event, loc *time.Location) []Marker {
	markers := make([]Marker, len(events))
	for i, e := range events {
		tier := TierOf(e.Magnitude)
		markers[i] = Marker{
			Index:  i,
			Lat:    e.Latitude,
			Lon:    e.Longitude,
			Radius: Radius(e.Magnitude),
			Color:  tier.Color(),
			Tier:   tier,
			Popup: Popup{
				Magnitude: FormatMagnitude(e.Magnitude),
				Place:     e.Place,
				Time:      FormatTime(e.Time, loc),
				URL:       e.URL,
			},
		}
	}
	return markers
}

// HeatPoints normalises magnitudes against the largest one in the set. It
// returns nil for an empty set so callers can skip the layer update.
// Negative magnitudes count as zero; if every magnitude is zero each sample
// gets full intensity.
func HeatPoints(events []Event) []HeatPoint {
	if len(events) == 0 {
		return nil
	}

	maxMag := 0.0
	for _, e := range events {
		maxMag = math.Max(maxMag, e.Magnitude)
	}

	points := make([]HeatPoint, len(events))
	for i, e := range events {
		intensity := 1.0
		if maxMag > 0 {
			intensity = math.Max(e.Magnitude, 0) / maxMag
		}
		points[i] = HeatPoint{Lat: e.Latitude, Lon: e.Longitude, Intensity: intensity}
	}
	return points
}

// BoundsOf computes the bounding box of all event coordinates. ok is false
// for an empty set.
func BoundsOf(events []Event) (b Bounds, ok bool) {
	if len(events) == 0 {
		return Bounds{}, false
	}
	b = Bounds{
		MinLat: events[0].Latitude,
		MaxLat: events[0].Latitude,
		MinLon: events[0].Longitude,
		MaxLon: events[0].Longitude,
	}
	for _, e := range events[1:] {
		b.MinLat = math.Min(b.MinLat, e.Latitude)
		b.MaxLat = math.Max(b.MaxLat, e.Latitude)
		b.MinLon = math.Min(b.MinLon, e.Longitude)
		b.MaxLon = math.Max(b.MaxLon, e.Longitude)
	}
	return b, true
}
