package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadMissingFileUsesDefaults verifies defaults when no config exists.
func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	def := Default()
	if cfg.Polling.RunStatusSec != def.Polling.RunStatusSec {
		t.Fatalf("run_status_sec = %d, want default %d", cfg.Polling.RunStatusSec, def.Polling.RunStatusSec)
	}
	if cfg.Progress.StartedFloor != 5 {
		t.Fatalf("started_floor = %v, want 5", cfg.Progress.StartedFloor)
	}
}

// TestLoadFileOverrides verifies TOML values replace defaults and sparse
// sections are normalized.
func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[backend]
base_url = "http://backend:9000"

[polling]
run_status_sec = 1

[progress]
started_floor = 10
damping = 0
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Fatalf("base_url = %s", cfg.Backend.BaseURL)
	}
	if cfg.Polling.RunStatusInterval() != time.Second {
		t.Fatalf("run status interval = %v, want 1s", cfg.Polling.RunStatusInterval())
	}
	if cfg.Progress.StartedFloor != 10 {
		t.Fatalf("started_floor = %v, want 10", cfg.Progress.StartedFloor)
	}
	// damping = 0 would divide the easing step by zero; normalized back.
	if cfg.Progress.Damping != Default().Progress.Damping {
		t.Fatalf("damping = %v, want normalized default", cfg.Progress.Damping)
	}
}

// TestLoadEnvOverrides verifies environment wins over file and defaults.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://env-backend:7000")
	t.Setenv("PORT", "9999")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.BaseURL != "http://env-backend:7000" {
		t.Fatalf("base_url = %s", cfg.Backend.BaseURL)
	}
	if cfg.Server.Bind != ":9999" {
		t.Fatalf("bind = %s", cfg.Server.Bind)
	}
}

// TestLoadRejectsMalformedFile verifies parse errors surface.
func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[backend\nbad"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
