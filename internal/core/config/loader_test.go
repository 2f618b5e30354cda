package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_EnvSubstitution(t *testing.T) {
	// Setup env var
	os.Setenv("TEST_API_URL", "https://api.example.com")
	defer os.Unsetenv("TEST_API_URL")

	// Create temp config file
	configContent := `
api:
  base_url: ${TEST_API_URL}
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())

	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	// Load config
	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.example.com" {
		t.Errorf("Expected URL https://api.example.com, got %s", cfg.API.BaseURL)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "http://localhost:8000" {
		t.Errorf("Expected default base URL, got %s", cfg.API.BaseURL)
	}
	if cfg.API.RetryAttempts != 3 {
		t.Errorf("Expected 3 retry attempts, got %d", cfg.API.RetryAttempts)
	}
	if cfg.API.RetryBaseDelay != time.Second {
		t.Errorf("Expected 1s base delay, got %v", cfg.API.RetryBaseDelay)
	}
	if cfg.DataDir == "" {
		t.Error("Expected a default data dir")
	}
}

func TestLoad_DerivedPaths(t *testing.T) {
	configContent := `
data_dir: /tmp/launcher-test
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := cfg.Storage.Path; got != filepath.Join("/tmp/launcher-test", "launcher.db") {
		t.Errorf("Unexpected storage path %s", got)
	}
	if got := cfg.LockPath(); got != filepath.Join("/tmp/launcher-test", "launcher.lock") {
		t.Errorf("Unexpected lock path %s", got)
	}
	if got := cfg.Reports.Dir; got != filepath.Join("/tmp/launcher-test", "reports") {
		t.Errorf("Unexpected reports dir %s", got)
	}
	if got := cfg.Downloads.Dir; got != filepath.Join("/tmp/launcher-test", "downloads") {
		t.Errorf("Unexpected downloads dir %s", got)
	}
}

func TestLoad_ExplicitOverridesKept(t *testing.T) {
	configContent := `
data_dir: /tmp/launcher-test
helper:
  enabled: true
  binary: /usr/local/bin/launcher-helper
  port: 9001
downloads:
  max_active: 8
`
	tmpFile, err := os.CreateTemp("", "config_*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	defer os.Remove(tmpFile.Name())
	if _, err := tmpFile.Write([]byte(configContent)); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}
	tmpFile.Close()

	cfg, err := Load(tmpFile.Name())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Helper.Enabled {
		t.Error("Expected helper enabled")
	}
	if cfg.Helper.Port != 9001 {
		t.Errorf("Expected helper port 9001, got %d", cfg.Helper.Port)
	}
	if cfg.Helper.StartTimeout != 30*time.Second {
		t.Errorf("Expected default start timeout, got %v", cfg.Helper.StartTimeout)
	}
	if cfg.Downloads.MaxActive != 8 {
		t.Errorf("Expected max_active 8, got %d", cfg.Downloads.MaxActive)
	}
}
