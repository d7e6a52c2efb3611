package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveStoreDirEnvOverride(t *testing.T) {
	t.Setenv(EnvStoreDir, "/custom/location")
	dir, err := ResolveStoreDir()
	if err != nil {
		t.Fatalf("ResolveStoreDir failed: %v", err)
	}
	if dir != "/custom/location" {
		t.Errorf("ResolveStoreDir = %q, want env override", dir)
	}
}

func TestResolveStoreDirWalksUp(t *testing.T) {
	t.Setenv(EnvStoreDir, "")
	root := t.TempDir()
	storeDir := filepath.Join(root, StoreDirName)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	t.Chdir(nested)

	dir, err := ResolveStoreDir()
	if err != nil {
		t.Fatalf("ResolveStoreDir failed: %v", err)
	}
	// Resolve symlinks so macOS /private/var temp paths compare equal.
	got, _ := filepath.EvalSymlinks(dir)
	want, _ := filepath.EvalSymlinks(storeDir)
	if got != want {
		t.Errorf("ResolveStoreDir = %q, want %q", got, want)
	}
}

func TestResolveStoreDirFallsBackToCwd(t *testing.T) {
	t.Setenv(EnvStoreDir, "")
	dir := t.TempDir()
	t.Chdir(dir)

	resolved, err := ResolveStoreDir()
	if err != nil {
		t.Fatalf("ResolveStoreDir failed: %v", err)
	}
	if filepath.Base(resolved) != StoreDirName {
		t.Errorf("ResolveStoreDir = %q, want %s under cwd", resolved, StoreDirName)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ScorerName() != DefaultScorer {
		t.Errorf("ScorerName = %q, want %q", cfg.ScorerName(), DefaultScorer)
	}
	if cfg.Port() != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port())
	}
	if !cfg.GitSyncEnabled() {
		t.Error("Git sync must default to enabled")
	}
}

func TestLoadAndSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	disabled := false
	original := &Config{
		Scorer:         "embedding",
		EmbeddingModel: "text-embedding-3-small",
		ServerPort:     9191,
		GitSync:        &disabled,
	}
	if err := Save(dir, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Scorer != "embedding" || cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("Loaded scorer config = %+v", cfg)
	}
	if cfg.Port() != 9191 {
		t.Errorf("Port = %d, want 9191", cfg.Port())
	}
	if cfg.GitSyncEnabled() {
		t.Error("Git sync must be disabled after round trip")
	}
}

func TestLoadRejectsBadYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("scorer: ["), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("Expected an error for invalid YAML")
	}
}
