package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFromMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("LoadFrom() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromBackfillsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"tmdb_api_key": "secret", "quality": "w500"}`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.TMDBAPIKey != "secret" {
		t.Errorf("TMDBAPIKey = %q, want secret", cfg.TMDBAPIKey)
	}
	if cfg.Quality != "w500" {
		t.Errorf("Quality = %q, want w500", cfg.Quality)
	}

	defaults := DefaultConfig()
	if cfg.Language != defaults.Language {
		t.Errorf("Language = %q, want default %q", cfg.Language, defaults.Language)
	}
	if diff := cmp.Diff(defaults.BackupLanguages, cfg.BackupLanguages); diff != "" {
		t.Errorf("BackupLanguages mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxRetries != defaults.MaxRetries {
		t.Errorf("MaxRetries = %d, want default %d", cfg.MaxRetries, defaults.MaxRetries)
	}
	if cfg.LogRetentionDays != defaults.LogRetentionDays {
		t.Errorf("LogRetentionDays = %d, want default %d", cfg.LogRetentionDays, defaults.LogRetentionDays)
	}
}

func TestLoadFromKeepsTrueBooleanDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	partial := `{"tmdb_api_key": "secret"}`
	if err := os.WriteFile(path, []byte(partial), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if !cfg.SaveMetadata {
		t.Error("SaveMetadata = false, want default true when absent from file")
	}
	if !cfg.EnableLogging {
		t.Error("EnableLogging = false, want default true when absent from file")
	}
}

func TestLoadFromHonorsExplicitFalseBooleans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	explicit := `{"save_metadata": false, "enable_logging": false}`
	if err := os.WriteFile(path, []byte(explicit), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	if cfg.SaveMetadata {
		t.Error("SaveMetadata = true, want explicit false kept")
	}
	if cfg.EnableLogging {
		t.Error("EnableLogging = true, want explicit false kept")
	}
}

func TestLoadFromRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() error = nil, want parse error")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")

	cfg := DefaultConfig()
	cfg.TMDBAPIKey = "key-123"
	cfg.Quality = "w185"
	cfg.Overwrite = true
	cfg.ZipOutput = true

	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDelayClamping(t *testing.T) {
	tests := []struct {
		millis int
		want   time.Duration
	}{
		{millis: 500, want: 500 * time.Millisecond},
		{millis: 50, want: 100 * time.Millisecond},
		{millis: 5000, want: 2 * time.Second},
		{millis: 100, want: 100 * time.Millisecond},
		{millis: 2000, want: 2 * time.Second},
	}

	for _, tt := range tests {
		cfg := Config{DelayMillis: tt.millis}
		if got := cfg.Delay(); got != tt.want {
			t.Errorf("Delay() with %dms = %v, want %v", tt.millis, got, tt.want)
		}
	}
}
