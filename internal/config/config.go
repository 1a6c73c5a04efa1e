// Package config loads dashboard settings from defaults, an optional YAML
// file and QUAKE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/Zachdehooge/quake-dashboard/internal/quake"
)

// EnvPrefix prefixes every environment override, e.g. QUAKE_HTTP_ADDR.
const EnvPrefix = "QUAKE_"

// ConfigEnv names the variable holding the YAML file path when no explicit
// path is given.
const ConfigEnv = EnvPrefix + "CONFIG"

// MinRefreshInterval is the shortest refresh period accepted.
const MinRefreshInterval = 30 * time.Second

var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")
)

// Config holds all process settings.
type Config struct {
	HTTPAddr        string        `koanf:"http_addr"`
	LogLevel        string        `koanf:"log_level"`
	LogFormat       string        `koanf:"log_format"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// Feed settings.
	FeedBaseURL  string        `koanf:"feed_base_url"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
	UserAgent    string        `koanf:"user_agent"`

	// Dashboard settings.
	RefreshInterval time.Duration `koanf:"refresh_interval"`
	DefaultWindow   int           `koanf:"default_window"`
	Timezone        string        `koanf:"timezone"`
	FitPadding      int           `koanf:"fit_padding"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "text",
		ShutdownTimeout: 10 * time.Second,
		FeedBaseURL:     "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary",
		FetchTimeout:    15 * time.Second,
		UserAgent:       "quake-dashboard/1.0 (github.com/Zachdehooge/quake-dashboard)",
		RefreshInterval: 5 * time.Minute,
		DefaultWindow:   int(quake.Day),
		Timezone:        "Local",
		FitPadding:      50,
	}
}

// Load layers defaults, the YAML file at path (or $QUAKE_CONFIG when path is
// empty) and QUAKE_* environment variables, then validates the result.
func Load(path string) (*Config, error) {
	base := New()
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(ConfigEnv)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// QUAKE_FETCH_TIMEOUT -> fetch_timeout
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every field for a usable value.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.HTTPAddr) == "":
		return invalid("http_addr must not be empty")
	case strings.TrimSpace(c.FeedBaseURL) == "":
		return invalid("feed_base_url must not be empty")
	case c.FetchTimeout <= 0:
		return invalid("fetch_timeout must be positive")
	case c.ShutdownTimeout <= 0:
		return invalid("shutdown_timeout must be positive")
	case c.RefreshInterval < MinRefreshInterval:
		return invalid(fmt.Sprintf("refresh_interval must be at least %s", MinRefreshInterval))
	case !quake.Window(c.DefaultWindow).Valid():
		return invalid(fmt.Sprintf("default_window %d must be 1, 7 or 30", c.DefaultWindow))
	case c.FitPadding < 0:
		return invalid("fit_padding must not be negative")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid(fmt.Sprintf("unknown log_level %q", c.LogLevel))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return invalid(fmt.Sprintf("unknown timezone %q", c.Timezone))
	}
	return nil
}

// Location resolves Timezone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// Window returns DefaultWindow as a quake.Window.
func (c *Config) Window() quake.Window {
	return quake.Window(c.DefaultWindow)
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, msg)
}
