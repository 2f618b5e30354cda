package config

import "time"

// AppConfig represents the top-level configuration.
type AppConfig struct {
	DataDir        string            `yaml:"data_dir"`
	NonInteractive bool              `yaml:"non_interactive"`
	Logging        LoggingConfig     `yaml:"logging"`
	API            APIConfig         `yaml:"api"`
	Storage        StorageConfig     `yaml:"storage"`
	Helper         HelperConfig      `yaml:"helper"`
	Realtime       RealtimeConfig    `yaml:"realtime"`
	Downloads      DownloadsConfig   `yaml:"downloads"`
	Diagnostics    DiagnosticsConfig `yaml:"diagnostics"`
	Tools          ToolsConfig       `yaml:"tools"`
	Reports        ReportsConfig     `yaml:"reports"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// APIConfig holds backend API client settings.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Timeout        time.Duration `yaml:"timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

// StorageConfig holds local record store settings.
type StorageConfig struct {
	// Path of the sqlite database file. Empty means <data_dir>/launcher.db.
	Path string `yaml:"path"`
}

// HelperConfig holds helper subprocess settings.
type HelperConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Binary       string        `yaml:"binary"`
	Args         []string      `yaml:"args"`
	Port         int           `yaml:"port"`
	StartTimeout time.Duration `yaml:"start_timeout"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`
}

// RealtimeConfig holds realtime socket settings.
type RealtimeConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// DownloadsConfig holds download manager settings.
type DownloadsConfig struct {
	// Dir is the default download destination. Empty means
	// <data_dir>/downloads; a preference record may override it per user.
	Dir        string `yaml:"dir"`
	AutoResume bool   `yaml:"auto_resume"`
	MaxActive  int    `yaml:"max_active"`
}

// DiagnosticsConfig holds the local diagnostics HTTP server settings.
type DiagnosticsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ToolsConfig holds companion tool provisioning settings.
type ToolsConfig struct {
	// Dir is where provisioned tools land. Empty means <data_dir>/tools.
	Dir           string `yaml:"dir"`
	RedistURL     string `yaml:"redist_url"`
	BackupToolURL string `yaml:"backup_tool_url"`
}

// ReportsConfig holds failure report retention settings.
type ReportsConfig struct {
	// Dir is where failure reports are written. Empty means
	// <data_dir>/reports.
	Dir       string        `yaml:"dir"`
	Retention time.Duration `yaml:"retention"`
}
