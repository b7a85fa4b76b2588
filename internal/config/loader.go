package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config,
// defaults. Missing files are not errors; malformed JSON is.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// LoadDefault loads configuration from conventional paths.
// Global: ~/.forgeflow/config.json
// Project: <workspace>/.forgeflow/config.json
func LoadDefault(workspace string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}

	globalPath := filepath.Join(homeDir, ".forgeflow", "config.json")
	projectPath := filepath.Join(workspace, ".forgeflow", "config.json")

	return Load(globalPath, projectPath)
}

// overlay mirrors Config with optional scalar fields, so a config file
// can set a value to zero and still win over the defaults beneath it.
type overlay struct {
	Providers map[string]ProviderConfig `json:"providers"`
	AI        struct {
		Provider       *string  `json:"provider"`
		MaxTokens      *int     `json:"max_tokens"`
		Temperature    *float64 `json:"temperature"`
		TimeoutSeconds *int     `json:"timeout_seconds"`
	} `json:"ai"`
	Editor struct {
		Command        *string `json:"command"`
		PollSeconds    *int    `json:"poll_seconds"`
		MonitorMinutes *int    `json:"monitor_minutes"`
	} `json:"editor"`
	Loops struct {
		MonitorSeconds  *int `json:"monitor_seconds"`
		OptimizeSeconds *int `json:"optimize_seconds"`
		MaxConcurrent   *int `json:"max_concurrent"`
	} `json:"loops"`
}

// mergeConfigFile reads a JSON config file and merges it into the base
// config. Missing files are silently skipped.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded overlay
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for key, provider := range loaded.Providers {
		base.Providers[key] = provider
	}

	if loaded.AI.Provider != nil {
		base.AI.Provider = *loaded.AI.Provider
	}
	if loaded.AI.MaxTokens != nil {
		base.AI.MaxTokens = *loaded.AI.MaxTokens
	}
	if loaded.AI.Temperature != nil {
		base.AI.Temperature = *loaded.AI.Temperature
	}
	if loaded.AI.TimeoutSeconds != nil {
		base.AI.TimeoutSeconds = *loaded.AI.TimeoutSeconds
	}

	if loaded.Editor.Command != nil {
		base.Editor.Command = *loaded.Editor.Command
	}
	if loaded.Editor.PollSeconds != nil {
		base.Editor.PollSeconds = *loaded.Editor.PollSeconds
	}
	if loaded.Editor.MonitorMinutes != nil {
		base.Editor.MonitorMinutes = *loaded.Editor.MonitorMinutes
	}

	if loaded.Loops.MonitorSeconds != nil {
		base.Loops.MonitorSeconds = *loaded.Loops.MonitorSeconds
	}
	if loaded.Loops.OptimizeSeconds != nil {
		base.Loops.OptimizeSeconds = *loaded.Loops.OptimizeSeconds
	}
	if loaded.Loops.MaxConcurrent != nil {
		base.Loops.MaxConcurrent = *loaded.Loops.MaxConcurrent
	}

	return nil
}
