// Package ai talks to language model providers. It carries two adapters, a
// hosted HTTP API and a local CLI subprocess, behind one Client interface,
// and wraps calls in retry and circuit breaker protection.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/proc"
)

// Request is a single generation call.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Client generates text for a prompt.
type Client interface {
	// Generate sends the prompt and returns the model's text response.
	Generate(ctx context.Context, req Request) (string, error)

	// Name identifies the provider, used for logging and per-provider
	// circuit breakers.
	Name() string
}

// Config selects and configures a provider.
type Config struct {
	Provider    string        `json:"provider"`    // "openai" or "cli"
	APIKey      string        `json:"api_key"`     // hosted providers
	BaseURL     string        `json:"base_url"`    // hosted providers, optional
	Model       string        `json:"model"`       // model identifier
	Command     string        `json:"command"`     // cli provider binary, default "claude"
	WorkDir     string        `json:"work_dir"`    // cli provider working directory
	MaxTokens   int           `json:"max_tokens"`  // default 4000
	Temperature float64       `json:"temperature"` // default 0.7
	Timeout     time.Duration `json:"-"`           // per-call timeout, default 120s
}

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 120 * time.Second

func (c Config) maxTokens() int {
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4000
}

func (c Config) temperature() float64 {
	if c.Temperature > 0 {
		return c.Temperature
	}
	return 0.7
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}

// New builds the provider the config names.
func New(cfg Config, mgr *proc.Manager) (Client, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg)
	case "cli":
		return NewCLIClient(cfg, mgr)
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", cfg.Provider)
	}
}
