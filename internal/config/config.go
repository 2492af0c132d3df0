package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config holds every knob the download pipeline reads. CLI flags override
// individual fields after Load; the pipeline receives the merged value and
// never touches disk itself.
type Config struct {
	TMDBAPIKey       string   `json:"tmdb_api_key"`
	Language         string   `json:"language"`
	BackupLanguages  []string `json:"backup_languages"`
	MediaTypes       []string `json:"media_types"`
	Quality          string   `json:"quality"`
	OutputDir        string   `json:"output_dir"`
	Overwrite        bool     `json:"overwrite"`
	MaxRetries       int      `json:"max_retries"`
	DelayMillis      int      `json:"delay_millis"`
	SaveMetadata     bool     `json:"save_metadata"`
	ZipOutput        bool     `json:"zip_output"`
	LogRetentionDays int      `json:"log_retention_days"`
	EnableLogging    bool     `json:"enable_logging"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		TMDBAPIKey:       "",
		Language:         "en-US",
		BackupLanguages:  []string{"es", "fr", "de", "ja"},
		MediaTypes:       []string{"movie", "tv"},
		Quality:          "original",
		OutputDir:        "posters",
		Overwrite:        false,
		MaxRetries:       3,
		DelayMillis:      500,
		SaveMetadata:     true,
		ZipOutput:        false,
		LogRetentionDays: 30,
		EnableLogging:    true,
	}
}

// Delay returns the inter-request pause as a duration, clamped to the
// 100ms-2s band the metadata API tolerates.
func (cfg *Config) Delay() time.Duration {
	d := time.Duration(cfg.DelayMillis) * time.Millisecond
	if d < 100*time.Millisecond {
		return 100 * time.Millisecond
	}
	if d > 2*time.Second {
		return 2 * time.Second
	}
	return d
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".coverpics", "config.json"), nil
}

// Load reads the configuration from disk
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return default config if file doesn't exist
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Booleans defaulting to true need a presence check; a zero value in cfg
	// cannot distinguish "false" from "absent".
	var present struct {
		SaveMetadata  *bool `json:"save_metadata"`
		EnableLogging *bool `json:"enable_logging"`
	}
	if err := json.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Fill in any missing fields with defaults
	defaults := DefaultConfig()
	if present.SaveMetadata == nil {
		cfg.SaveMetadata = defaults.SaveMetadata
	}
	if present.EnableLogging == nil {
		cfg.EnableLogging = defaults.EnableLogging
	}
	if cfg.Language == "" {
		cfg.Language = defaults.Language
	}
	if len(cfg.BackupLanguages) == 0 {
		cfg.BackupLanguages = defaults.BackupLanguages
	}
	if len(cfg.MediaTypes) == 0 {
		cfg.MediaTypes = defaults.MediaTypes
	}
	if cfg.Quality == "" {
		cfg.Quality = defaults.Quality
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DelayMillis == 0 {
		cfg.DelayMillis = defaults.DelayMillis
	}
	if cfg.LogRetentionDays == 0 {
		cfg.LogRetentionDays = defaults.LogRetentionDays
	}

	return &cfg, nil
}

// Save writes the configuration to disk
func (cfg *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return cfg.SaveTo(path)
}

// SaveTo writes the configuration to an explicit path.
func (cfg *Config) SaveTo(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
