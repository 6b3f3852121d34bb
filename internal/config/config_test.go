package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Type != "ble" {
		t.Errorf("Expected default adapter type ble, got %q", cfg.Adapter.Type)
	}
	if cfg.PollCadence() != 900*time.Millisecond {
		t.Errorf("Expected 900ms cadence, got %v", cfg.PollCadence())
	}
	if cfg.Poll.DTCEveryN != 6 {
		t.Errorf("Expected DTC every 6th cycle, got %d", cfg.Poll.DTCEveryN)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
adapter:
  type: demo
  name_filter: OBDII
  scan_window_s: 3
poll:
  cadence_ms: 500
server:
  listen_addr: ":9090"
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Adapter.Type != "demo" || cfg.Adapter.NameFilter != "OBDII" {
		t.Errorf("Adapter overrides not applied: %+v", cfg.Adapter)
	}
	if cfg.ScanWindow() != 3*time.Second {
		t.Errorf("Expected 3s scan window, got %v", cfg.ScanWindow())
	}
	if cfg.PollCadence() != 500*time.Millisecond {
		t.Errorf("Expected 500ms cadence, got %v", cfg.PollCadence())
	}
	// Untouched sections keep defaults.
	if cfg.Redis.Port != 6379 {
		t.Errorf("Expected default redis port, got %d", cfg.Redis.Port)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("Expected :9090, got %s", cfg.Server.ListenAddr)
	}
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("adapter: ["), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected parse error")
	}
}

func TestNormalizeClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
poll:
  cadence_ms: -5
  dtc_every_n: 0
adapter:
  scan_window_s: -1
`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Poll.CadenceMs != 900 || cfg.Poll.DTCEveryN != 6 || cfg.Adapter.ScanWindowS != 5 {
		t.Errorf("Bad values not clamped: %+v", cfg.Poll)
	}
}
