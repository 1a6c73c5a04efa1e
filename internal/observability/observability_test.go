package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLoggerTo_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("feed fetched", "feed", "all_day", "count", 3)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "feed fetched", line["msg"])
	assert.Equal(t, "all_day", line["feed"])
	assert.EqualValues(t, 3, line["count"])
}

func TestNewLoggerTo_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, "debug", "text")

	logger.Debug("tick")

	assert.Contains(t, buf.String(), "msg=tick")
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()

	m.FetchRequests.WithLabelValues("all_day", "success").Inc()
	m.StaleResponses.Inc()
	m.Records.WithLabelValues("7").Set(42)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchRequests.WithLabelValues("all_day", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StaleResponses))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.Records.WithLabelValues("7")))
}
