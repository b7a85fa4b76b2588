package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/forgeflow/forgeflow/internal/proc"
)

// CLIClient drives a local coding assistant CLI as a subprocess. Every call
// spawns one invocation; the session id keeps the conversation continuous,
// the first call passing --session-id and every later call --resume.
type CLIClient struct {
	command   string
	sessionID string
	workDir   string
	model     string
	timeout   Config
	started   bool
	mgr       *proc.Manager
}

// cliResponse is the JSON envelope the CLI prints with --output-format json.
type cliResponse struct {
	SessionID string `json:"session_id"`
	Result    struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"result"`
}

// NewCLIClient returns a subprocess-backed client. The manager is optional;
// when nil, invocations are not tracked for shutdown cleanup.
func NewCLIClient(cfg Config, mgr *proc.Manager) (*CLIClient, error) {
	command := cfg.Command
	if command == "" {
		command = "claude"
	}
	workDir := cfg.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("cli: resolve working directory: %w", err)
		}
		workDir = wd
	}
	return &CLIClient{
		command:   command,
		sessionID: uuid.NewString(),
		workDir:   workDir,
		model:     cfg.Model,
		timeout:   cfg,
		mgr:       mgr,
	}, nil
}

func (c *CLIClient) Name() string { return "cli" }

// SessionID returns the conversation identifier for this client.
func (c *CLIClient) SessionID() string { return c.sessionID }

// Generate runs one CLI invocation and returns the concatenated text blocks
// from its JSON output.
func (c *CLIClient) Generate(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout.timeout())
	defer cancel()

	cmd := proc.Command(ctx, c.command, c.buildArgs(req.Prompt)...)
	cmd.Dir = c.workDir

	stdout, stderr, err := proc.Run(ctx, cmd, c.mgr)
	if err != nil {
		return "", fmt.Errorf("cli: %s invocation failed: %w", c.command, err)
	}

	var parsed cliResponse
	if err := json.Unmarshal(stdout, &parsed); err != nil {
		return "", fmt.Errorf("cli: parse %s output: %w (stderr: %s)", c.command, err, stderr)
	}

	var text string
	for _, block := range parsed.Result.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	c.started = true
	return text, nil
}

func (c *CLIClient) buildArgs(prompt string) []string {
	args := []string{"-p", prompt, "--output-format", "json"}
	if c.started {
		args = append(args, "--resume", c.sessionID)
	} else {
		args = append(args, "--session-id", c.sessionID)
	}
	if c.model != "" {
		args = append(args, "--model", c.model)
	}
	return args
}
