// Package fetcher retrieves earthquake records from the USGS GeoJSON summary feeds.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Zachdehooge/quake-dashboard/internal/observability"
	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// DefaultBaseURL is the USGS summary feed root.
const DefaultBaseURL = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary"

// SignificantFeed lists significant earthquakes of the past month.
const SignificantFeed = "significant_month"

var (
	// ErrNetwork covers transport failures and non-200 responses.
	ErrNetwork = errors.New("feed request failed")
	// ErrMalformedResponse covers bodies that are not a feature collection.
	ErrMalformedResponse = errors.New("malformed feed response")
)

// Client fetches USGS feeds. Each call makes exactly one attempt.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a feed client. An empty baseURL uses DefaultBaseURL.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: newHTTPClient(timeout),
		logger:     logger,
		metrics:    metrics,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// FetchEvents retrieves the earthquakes of the given window in feed order.
// On failure it logs, returns an empty slice and an error wrapping
// ErrNetwork or ErrMalformedResponse.
func (c *Client) FetchEvents(ctx context.Context, w quake.Window) ([]quake.Event, error) {
	return c.fetch(ctx, w.Feed())
}

// FetchSignificant retrieves the significant earthquakes of the past month.
func (c *Client) FetchSignificant(ctx context.Context) ([]quake.Event, error) {
	return c.fetch(ctx, SignificantFeed)
}

func (c *Client) fetch(ctx context.Context, feed string) ([]quake.Event, error) {
	url := fmt.Sprintf("%s/%s.geojson", c.baseURL, feed)
	start := time.Now()

	events, err := c.get(ctx, feed, url)
	c.metrics.FetchDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(feed, outcome(err)).Inc()
		c.logger.Error("feed fetch failed", "feed", feed, "url", url, "error", err)
		return []quake.Event{}, err
	}

	c.metrics.FetchRequests.WithLabelValues(feed, "success").Inc()
	c.logger.Debug("feed fetched", "feed", feed, "count", len(events))
	return events, nil
}

func (c *Client) get(ctx context.Context, feed, url string) ([]quake.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrNetwork, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrNetwork, err)
	}

	if resp.StatusCode != http.StatusOK {
		snip := body
		if len(snip) > 200 {
			snip = snip[:200]
		}
		return nil, fmt.Errorf("%w: USGS returned HTTP %d: %s", ErrNetwork, resp.StatusCode, string(snip))
	}

	return c.decode(feed, body)
}

// Feed response types. Features is a pointer so a missing field can be told
// apart from an empty collection.
type featureCollection struct {
	Features *[]feature `json:"features"`
}

type feature struct {
	Geometry *struct {
		Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
	} `json:"geometry"`
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"` // epoch millis
		URL   string   `json:"url"`
	} `json:"properties"`
}

func (c *Client) decode(feed string, body []byte) ([]quake.Event, error) {
	var fc featureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if fc.Features == nil {
		return nil, fmt.Errorf("%w: missing features", ErrMalformedResponse)
	}

	features := *fc.Features
	events := make([]quake.Event, 0, len(features))
	for i, f := range features {
		p := f.Properties
		if p.Mag == nil || f.Geometry == nil || len(f.Geometry.Coordinates) < 2 {
			c.logger.Debug("skipping incomplete feature", "feed", feed, "position", i)
			continue
		}

		events = append(events, quake.Event{
			Magnitude: *p.Mag,
			Longitude: f.Geometry.Coordinates[0],
			Latitude:  f.Geometry.Coordinates[1],
			Place:     p.Place,
			Time:      time.UnixMilli(p.Time),
			URL:       p.URL,
		})
	}
	return events, nil
}

func outcome(err error) string {
	if errors.Is(err, ErrMalformedResponse) {
		return "malformed"
	}
	return "network_error"
}
