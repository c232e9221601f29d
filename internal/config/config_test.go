package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if cfg.Processing.ConfidenceThreshold != defaultConfidenceThreshold {
		t.Fatalf("unexpected confidence threshold %v", cfg.Processing.ConfidenceThreshold)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format %q", cfg.Logging.Format)
	}
}

func TestLoadParsesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"
template_dir = "` + dir + `/templates"

[processing]
max_workers = 4
era_cutoff = "2025-01-30"

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Processing.MaxWorkers != 4 {
		t.Fatalf("max workers = %d", cfg.Processing.MaxWorkers)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging not normalized: %+v", cfg.Logging)
	}

	cutoff, err := cfg.EraCutoffTime()
	if err != nil {
		t.Fatalf("EraCutoffTime: %v", err)
	}
	want := time.Date(2025, 1, 30, 0, 0, 0, 0, time.UTC)
	if !cutoff.Equal(want) {
		t.Fatalf("cutoff = %v, want %v", cutoff, want)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Paths.DataDir = "/tmp/cc"
	cfg.Paths.LogDir = "/tmp/cc/logs"
	cfg.Processing.ConfidenceThreshold = 1.5
	cfg.Processing.MaxWorkers = -1
	cfg.Processing.EraCutoff = "yesterday"
	cfg.Logging.Format = "xml"
	cfg.Logging.Level = "info"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, fragment := range []string{
		"confidence_threshold",
		"max_workers",
		"era_cutoff",
		"logging.format",
	} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("error %q missing %q", msg, fragment)
		}
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load of sample: %v", err)
	}
	if !exists {
		t.Fatal("sample config should exist")
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected format %q", cfg.Logging.Format)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := expandPath("~/x")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "x") {
		t.Fatalf("expandPath = %q", got)
	}
}
