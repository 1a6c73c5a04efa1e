package generator_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zachdehooge/quake-dashboard/internal/dashboard"
	"github.com/Zachdehooge/quake-dashboard/internal/generator"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

func loadedView(t *testing.T, p dashboard.Presentation, recs ...quake.Event) dashboard.View {
	t.Helper()
	s, req := dashboard.New(quake.Day).Refresh()
	s, ok := s.ApplyFetch(req, recs, nil)
	require.True(t, ok)
	// New starts in markers; only toggle when another presentation is wanted
	// so the freshly applied result still carries its fit bounds.
	if p != dashboard.Markers {
		var err error
		s, err = s.SelectPresentation(p)
		require.NoError(t, err)
	}
	return dashboard.Render(s, time.UTC)
}

func event(mag float64, place string) quake.Event {
	return quake.Event{
		Magnitude: mag,
		Longitude: -122.5,
		Latitude:  37.7,
		Place:     place,
		Time:      time.UnixMilli(1700000000000),
		URL:       "https://example.test/ev",
	}
}

func render(t *testing.T, p generator.Page) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, generator.Render(&buf, p))
	return buf.String()
}

func TestRender_InteractivePage(t *testing.T) {
	v := loadedView(t, dashboard.Markers, event(6.1, "Near Coast"), event(2.0, "Inland"))
	page := generator.NewPage(v, 5*time.Minute, 50, time.UnixMilli(1700000000000), time.UTC)
	page.Interactive = true

	out := render(t, page)

	assert.Contains(t, out, "<title>2 Earthquakes in the Last 24 Hours | Earthquake Dashboard</title>")
	assert.Contains(t, out, `<meta http-equiv="refresh" content="300"/>`)
	assert.Contains(t, out, `action="/window"`)
	assert.Contains(t, out, `action="/refresh"`)
	assert.Contains(t, out, "leaflet@1.9.4")
	assert.Contains(t, out, "leaflet-heat.js")
	assert.Contains(t, out, `data-index="0"`)
	assert.Contains(t, out, `data-index="1"`)
	assert.Contains(t, out, "magnitude-high")
	assert.Contains(t, out, "Near Coast")
	assert.Contains(t, out, `"fitBounds":`)
	assert.Contains(t, out, "Last updated: Nov 14, 2023 at 10:13 PM UTC")
}

func TestRender_ToggledViewOmitsFitBounds(t *testing.T) {
	v := loadedView(t, dashboard.Heatmap, event(6.1, "Near Coast"))
	out := render(t, generator.NewPage(v, time.Minute, 50, time.Now(), time.UTC))
	assert.NotContains(t, out, `"fitBounds":`)

	s, req := dashboard.New(quake.Day).Refresh()
	s, ok := s.ApplyFetch(req, []quake.Event{event(6.1, "Near Coast")}, nil)
	require.True(t, ok)
	s, err := s.SelectPresentation(dashboard.Heatmap)
	require.NoError(t, err)
	s, err = s.SelectPresentation(dashboard.Markers)
	require.NoError(t, err)

	out = render(t, generator.NewPage(dashboard.Render(s, time.UTC), time.Minute, 50, time.Now(), time.UTC))
	assert.NotContains(t, out, `"fitBounds":`)
	assert.Contains(t, out, "Near Coast")
}

func TestRender_StaticPageHasNoForms(t *testing.T) {
	v := loadedView(t, dashboard.Heatmap, event(4.2, "Ridge"))
	page := generator.NewPage(v, 0, 0, time.Now(), time.UTC)

	out := render(t, page)

	assert.NotContains(t, out, "<form")
	assert.NotContains(t, out, "http-equiv")
	assert.Contains(t, out, `"heatUpdated":true`)
	assert.Contains(t, out, `"markersVisible":false`)
	assert.Regexp(t, `const fitPadding =\s*50\s*;`, out)
}

func TestRender_Placeholders(t *testing.T) {
	v := loadedView(t, dashboard.Markers)
	out := render(t, generator.NewPage(v, time.Minute, 50, time.Now(), time.UTC))

	assert.Contains(t, out, dashboard.EmptyListText)
	assert.Contains(t, out, "0 Earthquakes in the Last 24 Hours")
	assert.NotContains(t, out, `class="earthquake-item"`)
}

func TestRender_EscapesPlace(t *testing.T) {
	v := loadedView(t, dashboard.Markers, event(3.0, "<script>alert(1)</script>"))
	out := render(t, generator.NewPage(v, time.Minute, 50, time.Now(), time.UTC))

	assert.NotContains(t, out, "<script>alert(1)</script>")
}

func TestWriteFile_Atomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "earthquakes.html")
	v := loadedView(t, dashboard.Markers, event(5.0, "Trench"))

	require.NoError(t, generator.WriteFile(path, generator.NewPage(v, time.Minute, 50, time.Now(), time.UTC)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<!DOCTYPE html>"))
	assert.Contains(t, string(data), "Trench")

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteFile_BadDirectory(t *testing.T) {
	v := loadedView(t, dashboard.Markers)
	err := generator.WriteFile(filepath.Join(t.TempDir(), "missing", "out.html"), generator.NewPage(v, 0, 50, time.Now(), time.UTC))
	assert.Error(t, err)
}
