package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// clearEnv keeps the caller's environment from leaking into Load.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvOperator, "")
	t.Setenv(EnvPublisher, "")
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Publisher != DefaultPublisher {
		t.Fatalf("Publisher = %q, want %q", cfg.Publisher, DefaultPublisher)
	}
	if !cfg.GzipEnabled() {
		t.Fatal("GzipEnabled() = false, want true")
	}
	if cfg.Jobs != 1 {
		t.Fatalf("Jobs = %d, want 1", cfg.Jobs)
	}
	if !reflect.DeepEqual(cfg.MimePreference, []string{"filetype", "mimetype"}) {
		t.Fatalf("MimePreference = %v", cfg.MimePreference)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	data := `{"operator": "archivist", "gzip": false, "jobs": 4, "mime_preference": ["mimetype"]}`
	if err := os.WriteFile(configPath, []byte(data), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Operator != "archivist" {
		t.Errorf("Operator = %q, want %q", cfg.Operator, "archivist")
	}
	if cfg.GzipEnabled() {
		t.Error("GzipEnabled() = true, want false")
	}
	if cfg.Jobs != 4 {
		t.Errorf("Jobs = %d, want 4", cfg.Jobs)
	}
	if !reflect.DeepEqual(cfg.MimePreference, []string{"mimetype"}) {
		t.Errorf("MimePreference = %v, want [mimetype]", cfg.MimePreference)
	}
	if cfg.Publisher != DefaultPublisher {
		t.Errorf("Publisher = %q, want default", cfg.Publisher)
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	if err := os.WriteFile(configPath, []byte(`{not json}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvOperator, "night shift")
	t.Setenv(EnvPublisher, "Example Library")
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.json"), []byte(`{"operator": "file"}`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Operator != "night shift" {
		t.Errorf("Operator = %q, want env value", cfg.Operator)
	}
	if cfg.Publisher != "Example Library" {
		t.Errorf("Publisher = %q, want env value", cfg.Publisher)
	}
}

func TestBaseDir_FromEnv(t *testing.T) {
	t.Setenv(EnvHome, "/srv/sidecar")

	dir, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if dir != "/srv/sidecar" {
		t.Errorf("BaseDir() = %q, want /srv/sidecar", dir)
	}
}

func TestDetectorEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisabledDetectors = []string{"soft404"}

	if cfg.DetectorEnabled("soft404") {
		t.Error("soft404 should be disabled")
	}
	if !cfg.DetectorEnabled("charset") {
		t.Error("charset should be enabled")
	}
}

func TestMerge_ArraysDeduplicated(t *testing.T) {
	base := &Config{DisabledTools: []string{"cdxj_merge", " run_history "}}
	overlay := &Config{DisabledTools: []string{"run_history", "sidecar_classify"}}

	got := Merge(base, overlay)
	want := []string{"cdxj_merge", "run_history", "sidecar_classify"}
	if !reflect.DeepEqual(got.DisabledTools, want) {
		t.Errorf("DisabledTools = %v, want %v", got.DisabledTools, want)
	}
}

func TestMerge_ExplicitGzipFalseKept(t *testing.T) {
	off := false
	got := Merge(DefaultConfig(), &Config{Gzip: &off})
	if got.GzipEnabled() {
		t.Error("explicit gzip=false lost in Merge")
	}
}

func TestMergeStringSlice_Empty(t *testing.T) {
	if got := mergeStringSlice(nil, []string{" ", ""}); got != nil {
		t.Errorf("mergeStringSlice() = %v, want nil", got)
	}
}
