package daemon

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.Host != "127.0.0.1" {
		t.Errorf("API.Host = %q, want %q", cfg.API.Host, "127.0.0.1")
	}
	if cfg.API.Port != 8080 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 8080)
	}
	if cfg.Refresh.IntervalMinutes != 30 {
		t.Errorf("Refresh.IntervalMinutes = %d, want 30", cfg.Refresh.IntervalMinutes)
	}
	if !cfg.Refresh.RunAnalysis {
		t.Error("Refresh.RunAnalysis should be true by default")
	}
	if cfg.Storage.Dir == "" {
		t.Error("Storage.Dir should have a default")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REFRESH_INTERVAL", "0")
	t.Setenv("RUN_ANALYSIS", "false")
	t.Setenv("DRAWSENSE_DATA_DIR", "/tmp/ds-test")

	cfg := DefaultConfig()
	applyEnv(&cfg)

	if cfg.API.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.API.Port)
	}
	if cfg.Refresh.IntervalMinutes != 0 {
		t.Errorf("IntervalMinutes = %d, want 0", cfg.Refresh.IntervalMinutes)
	}
	if cfg.RefreshInterval() != 0 {
		t.Errorf("RefreshInterval = %s, want 0", cfg.RefreshInterval())
	}
	if cfg.Refresh.RunAnalysis {
		t.Error("RunAnalysis should be disabled")
	}
	if cfg.Storage.Dir != "/tmp/ds-test" {
		t.Errorf("Storage.Dir = %q", cfg.Storage.Dir)
	}
}

func TestApplyEnv_IgnoresInvalid(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	t.Setenv("REFRESH_INTERVAL", "-5")

	cfg := DefaultConfig()
	applyEnv(&cfg)

	if cfg.API.Port != 8080 {
		t.Errorf("Port = %d, want default 8080", cfg.API.Port)
	}
	if cfg.Refresh.IntervalMinutes != 30 {
		t.Errorf("IntervalMinutes = %d, want default 30", cfg.Refresh.IntervalMinutes)
	}
}

func TestAddrAndInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Host = "0.0.0.0"
	cfg.API.Port = 3000
	cfg.Refresh.IntervalMinutes = 15

	if got, want := cfg.Addr(), "0.0.0.0:3000"; got != want {
		t.Errorf("Addr() = %q, want %q", got, want)
	}
	if got, want := cfg.RefreshInterval(), 15*time.Minute; got != want {
		t.Errorf("RefreshInterval() = %s, want %s", got, want)
	}
}
