package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultsOnFirstRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DefaultModel != "deepseek" {
		t.Fatalf("unexpected default model %q", cfg.DefaultModel)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("defaults not persisted: %v", err)
	}

	mc, ok := cfg.Models["deepseek"]
	if !ok || !mc.Enabled || mc.BaseURL == "" {
		t.Fatalf("unexpected deepseek entry: %+v", mc)
	}
	if mc.APIKey != "" {
		t.Fatal("defaults must not carry an api key")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := Default()
	mc := cfg.Models["deepseek"]
	mc.APIKey = "sk-test"
	cfg.Models["deepseek"] = mc
	cfg.DefaultModel = "moonshot"

	if err := Save(dir, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultModel != "moonshot" {
		t.Fatalf("default model did not round-trip: %q", loaded.DefaultModel)
	}
	if loaded.Models["deepseek"].APIKey != "sk-test" {
		t.Fatalf("api key did not round-trip: %+v", loaded.Models["deepseek"])
	}
}

func TestModelResolution(t *testing.T) {
	t.Parallel()

	cfg := Default()
	name, _, ok := cfg.Model("")
	if !ok || name != "deepseek" {
		t.Fatalf("empty name should resolve to default, got %q ok=%v", name, ok)
	}
	if _, _, ok := cfg.Model("nope"); ok {
		t.Fatal("unknown model must not resolve")
	}
}
