package quake_test

import (
	"testing"
	"time"

	"github.com/Zachdehooge/quake-dashboard/internal/quake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(mag, lon, lat float64) quake.Event {
	return quake.Event{
		Magnitude: mag,
		Longitude: lon,
		Latitude:  lat,
		Place:     "10 km N of Somewhere",
		Time:      time.UnixMilli(1700000000000),
		URL:       "https://example.test/eq",
	}
}

func TestTierOf_Boundaries(t *testing.T) {
	tests := []struct {
		mag  float64
		want quake.Tier
	}{
		{6.0, quake.Severe},
		{7.4, quake.Severe},
		{5.999, quake.Moderate},
		{4.0, quake.Moderate},
		{3.999, quake.Minor},
		{-0.5, quake.Minor},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quake.TierOf(tt.mag), "magnitude %v", tt.mag)
	}
}

func TestTier_ColorAndClass(t *testing.T) {
	assert.Equal(t, "#dc3545", quake.Severe.Color())
	assert.Equal(t, "#ffc107", quake.Moderate.Color())
	assert.Equal(t, "#28a745", quake.Minor.Color())
	assert.Equal(t, "high", quake.Severe.Class())
	assert.Equal(t, "medium", quake.Moderate.Class())
	assert.Equal(t, "low", quake.Minor.Class())
}

func TestRadius_Capped(t *testing.T) {
	assert.Equal(t, 10.0, quake.Radius(2))
	assert.Equal(t, 25.0, quake.Radius(5))
	assert.Equal(t, 25.0, quake.Radius(8.1))
}

func TestMarkers_OnePerEventInOrder(t *testing.T) {
	events := []quake.Event{event(4.0, 10, 20), event(6.0, -120, 35), event(2.0, 0, 0)}

	markers := quake.Markers(events, time.UTC)

	require.Len(t, markers, len(events))
	for i, m := range markers {
		assert.Equal(t, i, m.Index)
		assert.Equal(t, events[i].Latitude, m.Lat)
		assert.Equal(t, events[i].Longitude, m.Lon)
	}
	assert.Equal(t, quake.Severe, markers[1].Tier)
	assert.Equal(t, "#dc3545", markers[1].Color)
	assert.Equal(t, "6.0", markers[1].Popup.Magnitude)
	assert.Equal(t, "Nov 14, 2023 at 10:13 PM UTC", markers[0].Popup.Time)
	assert.Equal(t, "https://example.test/eq", markers[2].Popup.URL)
}

func TestMarkers_Empty(t *testing.T) {
	assert.Empty(t, quake.Markers(nil, time.UTC))
}

func TestHeatPoints_NormalisedToMax(t *testing.T) {
	events := []quake.Event{event(4.0, 1, 1), event(6.0, 2, 2), event(2.0, 3, 3)}

	points := quake.HeatPoints(events)

	require.Len(t, points, 3)
	assert.InDelta(t, 4.0/6.0, points[0].Intensity, 1e-9)
	assert.InDelta(t, 1.0, points[1].Intensity, 1e-9)
	assert.InDelta(t, 2.0/6.0, points[2].Intensity, 1e-9)
	assert.Equal(t, 3.0, points[2].Lat)
}

func TestHeatPoints_RangeProperty(t *testing.T) {
	sets := [][]float64{
		{1.2},
		{0.1, 0.2, 5.5, 3.3},
		{-0.4, 2.0, 0},
		{0, 0, 0},
		{-1, -2},
	}
	for _, mags := range sets {
		events := make([]quake.Event, len(mags))
		for i, m := range mags {
			events[i] = event(m, 0, 0)
		}

		points := quake.HeatPoints(events)

		require.Len(t, points, len(mags))
		maxIntensity := 0.0
		for _, p := range points {
			assert.GreaterOrEqual(t, p.Intensity, 0.0, "magnitudes %v", mags)
			assert.LessOrEqual(t, p.Intensity, 1.0, "magnitudes %v", mags)
			if p.Intensity > maxIntensity {
				maxIntensity = p.Intensity
			}
		}
		assert.Equal(t, 1.0, maxIntensity, "magnitudes %v", mags)
	}
}

func TestHeatPoints_EmptyIsNil(t *testing.T) {
	assert.Nil(t, quake.HeatPoints(nil))
	assert.Nil(t, quake.HeatPoints([]quake.Event{}))
}

func TestBoundsOf(t *testing.T) {
	_, ok := quake.BoundsOf(nil)
	assert.False(t, ok)

	b, ok := quake.BoundsOf([]quake.Event{event(1, -120, 35), event(1, 140, -10), event(1, 10, 60)})
	require.True(t, ok)
	assert.Equal(t, quake.Bounds{MinLat: -10, MinLon: -120, MaxLat: 60, MaxLon: 140}, b)
}

func TestFormatTime_Zero(t *testing.T) {
	assert.Equal(t, "Not specified", quake.FormatTime(time.Time{}, time.UTC))
}
