package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	content := `
defaults:
  max_retries: 5
quality:
  min_score: 0.9
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Defaults.MaxRetries != 5 {
		t.Errorf("max retries = %d, want 5 from file", cfg.Defaults.MaxRetries)
	}
	if cfg.Defaults.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s default", cfg.Defaults.Timeout)
	}
	if cfg.Quality.MinScore != 0.9 {
		t.Errorf("min score = %v, want 0.9 from file", cfg.Quality.MinScore)
	}
	if !cfg.Quality.Enabled {
		t.Error("quality should be enabled by default")
	}
	if cfg.Progress.ThresholdPercent != 25 || cfg.Progress.Staleness != time.Minute {
		t.Errorf("progress defaults wrong: %+v", cfg.Progress)
	}
	if cfg.Backoff.Base != time.Second || cfg.Backoff.Cap != 30*time.Second {
		t.Errorf("backoff defaults wrong: %+v", cfg.Backoff)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workflow.yaml")
	if err := os.WriteFile(path, []byte("defaults:\n  max_retries: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("BRIGHTDESK_DEFAULTS_MAX_RETRIES", "7")
	t.Setenv("BRIGHTDESK_ESCALATION_TARGET", "oncall")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.MaxRetries != 7 {
		t.Errorf("max retries = %d, want env override 7", cfg.Defaults.MaxRetries)
	}
	if cfg.Escalation.Target != "oncall" {
		t.Errorf("target = %q, want env override", cfg.Escalation.Target)
	}
}

func TestLoadFileMissingFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("explicit file must exist")
	}
}

func TestLoadToleratesMissingConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	cwd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Defaults.MaxRetries != 3 {
		t.Errorf("max retries = %d, want stock default 3", cfg.Defaults.MaxRetries)
	}
}
