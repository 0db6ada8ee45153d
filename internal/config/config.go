// Package config loads the filechat configuration: a small YAML file with
// environment overrides for the values people change most. The API key is
// never stored in the file; the file only names the env var that holds it.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the file is parsed.
const (
	EnvBaseURL = "FILECHAT_BASE_URL"
	EnvModel   = "FILECHAT_MODEL"
	EnvLogPath = "FILECHAT_LOG"
)

// GatewayConfig configures the remote document store endpoint and the query
// defaults sent with every question.
type GatewayConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	MaxResults  int    `yaml:"max_results"`
	Streaming   bool   `yaml:"streaming"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// APIKey resolves the credential from the environment variable the config
// names. An empty result means the user has not provided one.
func (g GatewayConfig) APIKey() string {
	if g.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(g.APIKeyEnv)
}

// Timeout returns the per-request HTTP timeout.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// IndexingConfig bounds the attach-and-poll loop and upload concurrency.
type IndexingConfig struct {
	PollInitialMs     int `yaml:"poll_initial_ms"`
	PollMaxIntervalMs int `yaml:"poll_max_interval_ms"`
	PollTimeoutSecs   int `yaml:"poll_timeout_secs"`
	ParallelUploads   int `yaml:"parallel_uploads"`
}

func (c IndexingConfig) PollInitial() time.Duration {
	return time.Duration(c.PollInitialMs) * time.Millisecond
}

func (c IndexingConfig) PollMaxInterval() time.Duration {
	return time.Duration(c.PollMaxIntervalMs) * time.Millisecond
}

func (c IndexingConfig) PollBudget() time.Duration {
	return time.Duration(c.PollTimeoutSecs) * time.Second
}

// LoggingConfig configures the rotating log file. Logs never go to stdout;
// the terminal belongs to the UI.
type LoggingConfig struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Gateway  GatewayConfig  `yaml:"gateway"`
	Indexing IndexingConfig `yaml:"indexing"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads a config from a specified path. A missing file yields the
// defaults. The file is parsed over the defaults, so absent keys keep their
// default values and explicit ones (including false and zero) win.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	normalize(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDefault tries ./filechat.yaml first, then ~/.config/filechat/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "filechat.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	applyEnvOverrides(cfg)
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "filechat", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Gateway: GatewayConfig{
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "gpt-5",
			MaxResults:  20,
			Streaming:   true,
			TimeoutSecs: 120,
		},
		Indexing: IndexingConfig{
			PollInitialMs:     500,
			PollMaxIntervalMs: 5000,
			PollTimeoutSecs:   300,
			ParallelUploads:   2,
		},
		Logging: LoggingConfig{
			Path:  "filechat.log",
			Level: "info",
		},
	}
}

// normalize clamps values that would break their consumers.
func normalize(cfg *AppConfig) {
	if cfg.Gateway.MaxResults < 1 {
		cfg.Gateway.MaxResults = 1
	}
	if cfg.Gateway.TimeoutSecs < 1 {
		cfg.Gateway.TimeoutSecs = 120
	}
	if cfg.Indexing.ParallelUploads < 1 {
		cfg.Indexing.ParallelUploads = 1
	}
	if cfg.Indexing.PollInitialMs < 1 {
		cfg.Indexing.PollInitialMs = 500
	}
	if cfg.Indexing.PollMaxIntervalMs < cfg.Indexing.PollInitialMs {
		cfg.Indexing.PollMaxIntervalMs = cfg.Indexing.PollInitialMs
	}
	if cfg.Indexing.PollTimeoutSecs < 1 {
		cfg.Indexing.PollTimeoutSecs = 300
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv(EnvModel); v != "" {
		cfg.Gateway.Model = v
	}
	if v := os.Getenv(EnvLogPath); v != "" {
		cfg.Logging.Path = v
	}
}
