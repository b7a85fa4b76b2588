package config

import "time"

// ProviderConfig defines one analysis backend. Providers are keyed by
// name so a project config can add or override a single provider without
// restating the rest.
type ProviderConfig struct {
	Type    string `json:"type"`               // "openai" or "cli"
	Command string `json:"command,omitempty"`  // CLI binary for type "cli"
	Model   string `json:"model,omitempty"`    // Model override
	APIKey  string `json:"api_key,omitempty"`  // API key for type "openai"; empty falls back to env
	BaseURL string `json:"base_url,omitempty"` // Endpoint override for type "openai"
}

// AIConfig selects the active provider and its generation settings.
type AIConfig struct {
	Provider       string  `json:"provider"` // Key into Providers map
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	TimeoutSeconds int     `json:"timeout_seconds,omitempty"`
}

// EditorConfig controls how tasks are handed to the external editor and
// how long each task is observed.
type EditorConfig struct {
	Command        string `json:"command"` // Editor binary, launched with the workspace path
	PollSeconds    int    `json:"poll_seconds,omitempty"`
	MonitorMinutes int    `json:"monitor_minutes,omitempty"`
}

// LoopConfig controls the background loops and dispatch concurrency.
type LoopConfig struct {
	MonitorSeconds  int `json:"monitor_seconds,omitempty"`
	OptimizeSeconds int `json:"optimize_seconds,omitempty"`
	MaxConcurrent   int `json:"max_concurrent,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Providers map[string]ProviderConfig `json:"providers"`
	AI        AIConfig                  `json:"ai"`
	Editor    EditorConfig              `json:"editor"`
	Loops     LoopConfig                `json:"loops"`
}

// PollInterval returns the editor status poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Editor.PollSeconds) * time.Second
}

// MonitorDuration returns the per-task observation window.
func (c *Config) MonitorDuration() time.Duration {
	return time.Duration(c.Editor.MonitorMinutes) * time.Minute
}

// MonitorInterval returns the background scan interval.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Loops.MonitorSeconds) * time.Second
}

// OptimizeInterval returns the strategy review interval.
func (c *Config) OptimizeInterval() time.Duration {
	return time.Duration(c.Loops.OptimizeSeconds) * time.Second
}

// ActiveProvider returns the provider selected by AI.Provider, or false
// when the key is absent.
func (c *Config) ActiveProvider() (ProviderConfig, bool) {
	p, ok := c.Providers[c.AI.Provider]
	return p, ok
}
