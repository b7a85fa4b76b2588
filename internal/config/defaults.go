package config

// DefaultConfig returns the built-in configuration. Every field here can
// be overridden by the global or project config file.
func DefaultConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"openai": {
				Type:  "openai",
				Model: "gpt-4o-mini",
			},
			"cursor-agent": {
				Type:    "cli",
				Command: "cursor-agent",
			},
		},
		AI: AIConfig{
			Provider:       "openai",
			MaxTokens:      4000,
			Temperature:    0.7,
			TimeoutSeconds: 120,
		},
		Editor: EditorConfig{
			Command:        "cursor",
			PollSeconds:    5,
			MonitorMinutes: 10,
		},
		Loops: LoopConfig{
			MonitorSeconds:  30,
			OptimizeSeconds: 300,
			MaxConcurrent:   1,
		},
	}
}
