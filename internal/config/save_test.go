package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestSaveCreatesFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Editor.Command = "test-editor"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}

	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("config file contains invalid JSON: %v", err)
	}
	if loaded.Editor.Command != "test-editor" {
		t.Errorf("editor command = %q, want test-editor", loaded.Editor.Command)
	}
}

func TestSaveCreatesParentDir(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "deep", "config.json")

	if err := Save(DefaultConfig(), path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatalf("config file was not created: %s", path)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Providers["claude"] = ProviderConfig{Type: "cli", Command: "claude", Model: "sonnet"}
	cfg.AI.Provider = "claude"
	cfg.AI.MaxTokens = 8000
	cfg.Loops.MaxConcurrent = 2

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Providers["claude"].Command != "claude" {
		t.Errorf("claude provider command = %q", loaded.Providers["claude"].Command)
	}
	if loaded.AI.Provider != "claude" {
		t.Errorf("ai provider = %q, want claude", loaded.AI.Provider)
	}
	if loaded.AI.MaxTokens != 8000 {
		t.Errorf("max tokens = %d, want 8000", loaded.AI.MaxTokens)
	}
	if loaded.Loops.MaxConcurrent != 2 {
		t.Errorf("max concurrent = %d, want 2", loaded.Loops.MaxConcurrent)
	}
}

func TestSaveOverwritesExisting(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.json")

	cfg := DefaultConfig()
	cfg.Editor.Command = "first-value"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	cfg.Editor.Command = "second-value"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	var loaded Config
	if err := json.Unmarshal(data, &loaded); err != nil {
		t.Fatalf("parsing config: %v", err)
	}
	if loaded.Editor.Command != "second-value" {
		t.Errorf("editor command = %q, want second-value", loaded.Editor.Command)
	}
}
