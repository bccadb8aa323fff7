package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Backend configures the orchestration backend REST API.
type Backend struct {
	BaseURL            string `toml:"base_url"`
	RequestTimeoutSec  int    `toml:"request_timeout_sec"`
	RetryMaxElapsedSec int    `toml:"retry_max_elapsed_sec"`
}

// RequestTimeout returns the per-request timeout.
func (b Backend) RequestTimeout() time.Duration {
	return time.Duration(b.RequestTimeoutSec) * time.Second
}

// RetryMaxElapsed returns the overall retry budget for one call.
func (b Backend) RetryMaxElapsed() time.Duration {
	return time.Duration(b.RetryMaxElapsedSec) * time.Second
}

// Server configures the dashboard HTTP service.
type Server struct {
	Bind string `toml:"bind"`
}

// Polling configures the three poll cadences feeding the engine.
type Polling struct {
	RunStatusSec  int `toml:"run_status_sec"`
	RunListingSec int `toml:"run_listing_sec"`
	DomainSec     int `toml:"domain_sec"`
}

// RunStatusInterval is the fast cadence used while a run is tracked.
func (p Polling) RunStatusInterval() time.Duration {
	return time.Duration(p.RunStatusSec) * time.Second
}

// RunListingInterval is the slow, always-on run discovery cadence.
func (p Polling) RunListingInterval() time.Duration {
	return time.Duration(p.RunListingSec) * time.Second
}

// DomainInterval is the cadence for the four domain listings.
func (p Polling) DomainInterval() time.Duration {
	return time.Duration(p.DomainSec) * time.Second
}

// Progress configures the display heuristics. These are presentation policy
// (the started floor and easing constants), deliberately not hard-coded.
type Progress struct {
	StartedFloor    float64 `toml:"started_floor"`
	Damping         float64 `toml:"damping"`
	StepFloor       float64 `toml:"step_floor"`
	Epsilon         float64 `toml:"epsilon"`
	FrameIntervalMS int     `toml:"frame_interval_ms"`
}

// FrameInterval is the animation frame cadence.
func (p Progress) FrameInterval() time.Duration {
	return time.Duration(p.FrameIntervalMS) * time.Millisecond
}

// Config is the full service configuration.
type Config struct {
	Backend  Backend  `toml:"backend"`
	Server   Server   `toml:"server"`
	Polling  Polling  `toml:"polling"`
	Progress Progress `toml:"progress"`
}

// Default returns the built-in configuration used when no file exists.
func Default() Config {
	return Config{
		Backend: Backend{
			BaseURL:            "http://localhost:8000",
			RequestTimeoutSec:  12,
			RetryMaxElapsedSec: 20,
		},
		Server: Server{Bind: ":8080"},
		Polling: Polling{
			RunStatusSec:  2,
			RunListingSec: 10,
			DomainSec:     5,
		},
		Progress: Progress{
			StartedFloor:    5,
			Damping:         10,
			StepFloor:       0.8,
			Epsilon:         0.5,
			FrameIntervalMS: 50,
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults when
// the file does not exist, then applies environment overrides and normalizes
// invalid values back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist):
			// keep defaults
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

// applyEnv layers environment overrides on top of file values.
func (c *Config) applyEnv() {
	if v := os.Getenv("BACKEND_URL"); v != "" {
		c.Backend.BaseURL = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Bind = ":" + v
	}
}

// normalize replaces zero or nonsensical values with defaults so a sparse
// config file never produces a stalled poller or divide-by-zero easing.
func (c *Config) normalize() {
	def := Default()
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = def.Backend.BaseURL
	}
	if c.Backend.RequestTimeoutSec <= 0 {
		c.Backend.RequestTimeoutSec = def.Backend.RequestTimeoutSec
	}
	if c.Backend.RetryMaxElapsedSec <= 0 {
		c.Backend.RetryMaxElapsedSec = def.Backend.RetryMaxElapsedSec
	}
	if c.Server.Bind == "" {
		c.Server.Bind = def.Server.Bind
	}
	if c.Polling.RunStatusSec <= 0 {
		c.Polling.RunStatusSec = def.Polling.RunStatusSec
	}
	if c.Polling.RunListingSec <= 0 {
		c.Polling.RunListingSec = def.Polling.RunListingSec
	}
	if c.Polling.DomainSec <= 0 {
		c.Polling.DomainSec = def.Polling.DomainSec
	}
	if c.Progress.StartedFloor < 0 || c.Progress.StartedFloor > 100 {
		c.Progress.StartedFloor = def.Progress.StartedFloor
	}
	if c.Progress.Damping <= 0 {
		c.Progress.Damping = def.Progress.Damping
	}
	if c.Progress.StepFloor <= 0 {
		c.Progress.StepFloor = def.Progress.StepFloor
	}
	if c.Progress.Epsilon <= 0 {
		c.Progress.Epsilon = def.Progress.Epsilon
	}
	if c.Progress.FrameIntervalMS <= 0 {
		c.Progress.FrameIntervalMS = def.Progress.FrameIntervalMS
	}
}
