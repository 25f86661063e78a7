package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_Validates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default() config should validate, got %v", err)
	}
}

func TestValidate_MaxInstances(t *testing.T) {
	cfg := Default()
	cfg.MaxInstances = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for max_instances = 0")
	}
}

func TestValidate_MemoryLimit(t *testing.T) {
	cfg := Default()
	cfg.MemoryLimitBytes = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for memory_limit_bytes below minimum")
	}
}

func TestValidate_StackSize(t *testing.T) {
	cfg := Default()
	cfg.StackSizeBytes = 100
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for stack_size_bytes below minimum")
	}
}

func TestValidate_MinInstancesBounds(t *testing.T) {
	cfg := Default()
	cfg.MinInstances = cfg.MaxInstances + 1
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for min_instances > max_instances")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panelrt.yaml")
	if err := os.WriteFile(path, []byte("max_instances: 20\ndebug: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxInstances != 20 {
		t.Errorf("MaxInstances = %d, want 20", cfg.MaxInstances)
	}
	if !cfg.Debug {
		t.Error("Debug should be true")
	}
	if cfg.CacheDir != DefaultCacheDir {
		t.Errorf("CacheDir = %q, want default %q", cfg.CacheDir, DefaultCacheDir)
	}
	if cfg.TimeoutMs != DefaultTimeoutMs {
		t.Errorf("TimeoutMs = %d, want default %d", cfg.TimeoutMs, DefaultTimeoutMs)
	}
}

func TestLoad_InvalidConfigRejected(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "panelrt.yaml")
	if err := os.WriteFile(path, []byte("max_instances: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error from Load")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
