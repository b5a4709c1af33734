// Package daemon runs the long-lived DrawSense process: configuration,
// the HTTP server lifecycle and the periodic refresh loop.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the daemon configuration, loaded from
// ~/.drawsense/config.toml with environment overrides on top.
type Config struct {
	API     APIConfig     `toml:"api"`
	Storage StorageConfig `toml:"storage"`
	Refresh RefreshConfig `toml:"refresh"`
	Scraper ScraperConfig `toml:"scraper"`
	ML      MLConfig      `toml:"ml"`
}

type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Dir string `toml:"dir"`
}

type RefreshConfig struct {
	// IntervalMinutes is the refresh cadence. Zero disables the loop;
	// manual /refresh still works.
	IntervalMinutes int  `toml:"interval_minutes"`
	RunAnalysis     bool `toml:"run_analysis"`
}

type ScraperConfig struct {
	BaseURL string `toml:"base_url"`
}

type MLConfig struct {
	BaseURL string `toml:"base_url"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Storage: StorageConfig{
			Dir: defaultDataDir(),
		},
		Refresh: RefreshConfig{
			IntervalMinutes: 30,
			RunAnalysis:     true,
		},
	}
}

// LoadConfig reads the config file when present and applies
// environment overrides. A missing file is not an error.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	path := configPath()
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers environment variables over the file config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			cfg.API.Port = port
		}
	}
	if v := os.Getenv("HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("REFRESH_INTERVAL"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil && mins >= 0 {
			cfg.Refresh.IntervalMinutes = mins
		}
	}
	if v := os.Getenv("RUN_ANALYSIS"); v != "" {
		cfg.Refresh.RunAnalysis = v == "true" || v == "1"
	}
	if v := os.Getenv("DRAWSENSE_DATA_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("SCRAPER_BASE_URL"); v != "" {
		cfg.Scraper.BaseURL = v
	}
	if v := os.Getenv("ML_BASE_URL"); v != "" {
		cfg.ML.BaseURL = v
	}
}

// RefreshInterval returns the loop cadence, zero when disabled.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalMinutes) * time.Minute
}

// Addr returns the host:port listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.API.Host, c.API.Port)
}

func configPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".drawsense", "config.toml")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drawsense"
	}
	return filepath.Join(home, ".drawsense")
}
