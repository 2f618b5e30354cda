package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. A missing file is not an
// error: the launcher runs fine on defaults, config is an override.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.DataDir == "" {
		cfg.DataDir = defaultDataDir()
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:8000"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 15 * time.Second
	}
	if cfg.API.RetryAttempts == 0 {
		cfg.API.RetryAttempts = 3
	}
	if cfg.API.RetryBaseDelay == 0 {
		cfg.API.RetryBaseDelay = 1 * time.Second
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = filepath.Join(cfg.DataDir, "launcher.db")
	}

	if cfg.Helper.Port == 0 {
		cfg.Helper.Port = 8084
	}
	if cfg.Helper.StartTimeout == 0 {
		cfg.Helper.StartTimeout = 30 * time.Second
	}
	if cfg.Helper.StopTimeout == 0 {
		cfg.Helper.StopTimeout = 10 * time.Second
	}

	if cfg.Downloads.Dir == "" {
		cfg.Downloads.Dir = filepath.Join(cfg.DataDir, "downloads")
	}
	if cfg.Downloads.MaxActive == 0 {
		cfg.Downloads.MaxActive = 3
	}

	if cfg.Diagnostics.Port == 0 {
		cfg.Diagnostics.Port = 9173
	}

	if cfg.Tools.Dir == "" {
		cfg.Tools.Dir = filepath.Join(cfg.DataDir, "tools")
	}

	if cfg.Reports.Dir == "" {
		cfg.Reports.Dir = filepath.Join(cfg.DataDir, "reports")
	}
	if cfg.Reports.Retention == 0 {
		cfg.Reports.Retention = 30 * 24 * time.Hour
	}
}

// LockPath is where the single-instance lock file lives.
func (c *AppConfig) LockPath() string {
	return filepath.Join(c.DataDir, "launcher.lock")
}

func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ".launcher"
	}
	return filepath.Join(base, "launcher")
}
