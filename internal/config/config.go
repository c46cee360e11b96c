package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Object models the crawler can walk
const (
	ModelUnity = "unity"
	ModelHTML  = "html"
)

// Report formats
const (
	FormatText = "text"
	FormatTSV  = "tsv"
	FormatJSON = "json"
)

// DefaultPath is read when no config file is named explicitly
const DefaultPath = "refweaver.json"

// Config holds all runtime configuration parameters
type Config struct {
	Model              string   `json:"model"`
	ProjectRoot        string   `json:"project_root"`
	RepoRoot           string   `json:"repo_root"`
	UseGit             bool     `json:"use_git"`
	GitBinary          string   `json:"git_binary"`
	GitTimeoutMs       int      `json:"git_timeout_ms"`
	IndexDBPath        string   `json:"index_db_path"`
	ExcludeTypes       []string `json:"exclude_types"`
	ProgressIntervalMs int      `json:"progress_interval_ms"`
	WatchDebounceMs    int      `json:"watch_debounce_ms"`
	MetricsPath        string   `json:"metrics_path"`
	LogLevel           string   `json:"log_level"`
	Format             string   `json:"format"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{UseGit: true}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads configuration from a JSON file and applies defaults.
// A missing file at DefaultPath is not an error.
func LoadConfig(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	file, err := os.Open(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Config{UseGit: true}
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.Model == "" {
		cfg.Model = ModelUnity
	}
	if cfg.ProjectRoot == "" {
		cfg.ProjectRoot = "."
	}
	if cfg.RepoRoot == "" {
		cfg.RepoRoot = cfg.ProjectRoot
	}
	if cfg.GitBinary == "" {
		cfg.GitBinary = "git"
	}
	if cfg.GitTimeoutMs == 0 {
		cfg.GitTimeoutMs = 10000
	}
	if cfg.IndexDBPath == "" {
		cfg.IndexDBPath = ":memory:"
	}
	if cfg.ProgressIntervalMs == 0 {
		cfg.ProgressIntervalMs = 1000
	}
	if cfg.WatchDebounceMs == 0 {
		cfg.WatchDebounceMs = 500
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Format == "" {
		cfg.Format = FormatText
	}
}

// Validate checks that values are sensible. Call it after flag overrides.
func Validate(cfg *Config) error {
	switch cfg.Model {
	case ModelUnity, ModelHTML:
	default:
		return fmt.Errorf("model must be %q or %q, got %q", ModelUnity, ModelHTML, cfg.Model)
	}
	switch cfg.Format {
	case FormatText, FormatTSV, FormatJSON:
	default:
		return fmt.Errorf("format must be one of text, tsv, json, got %q", cfg.Format)
	}
	if cfg.GitTimeoutMs < 100 {
		return fmt.Errorf("git_timeout_ms must be >= 100")
	}
	if cfg.ProgressIntervalMs < 100 {
		return fmt.Errorf("progress_interval_ms must be >= 100")
	}
	if cfg.WatchDebounceMs < 10 {
		return fmt.Errorf("watch_debounce_ms must be >= 10")
	}
	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}
