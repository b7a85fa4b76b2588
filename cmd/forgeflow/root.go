package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/forgeflow/forgeflow/internal/ai"
	"github.com/forgeflow/forgeflow/internal/config"
	"github.com/forgeflow/forgeflow/internal/editor"
	"github.com/forgeflow/forgeflow/internal/events"
	"github.com/forgeflow/forgeflow/internal/monitor"
	"github.com/forgeflow/forgeflow/internal/orchestrator"
	"github.com/forgeflow/forgeflow/internal/persistence"
	"github.com/forgeflow/forgeflow/internal/planner"
	"github.com/forgeflow/forgeflow/internal/proc"
	"github.com/forgeflow/forgeflow/internal/task"
)

type rootOptions struct {
	requirement string
	workspace   string
	configPath  string
	provider    string
	editorCmd   string
	noPersist   bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "forgeflow",
		Short: "Turn a free-text requirement into scheduled development tasks",
		Long: `forgeflow analyzes a software requirement, plans a dependency-ordered
task list, drives an external editor through each task via filesystem
queue files, and monitors the workspace to validate what was built.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.requirement, "requirement", "r", "", "free-text software requirement (required)")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "./workspace", "workspace directory the editor works in")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "extra config file merged over global and project config")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "AI provider key, overrides the configured one")
	cmd.Flags().StringVar(&opts.editorCmd, "editor", "", "editor binary, overrides the configured one")
	cmd.Flags().BoolVar(&opts.noPersist, "no-persist", false, "skip the run database")
	_ = cmd.MarkFlagRequired("requirement")

	return cmd
}

func run(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if opts.provider != "" {
		cfg.AI.Provider = opts.provider
	}
	if opts.editorCmd != "" {
		cfg.Editor.Command = opts.editorCmd
	}

	mgr := proc.NewManager()
	defer func() {
		if err := mgr.KillAll(); err != nil {
			log.Printf("WARNING: killing subprocesses: %v", err)
		}
	}()

	req := analyze(ctx, cfg, mgr, opts.requirement)
	tasks := planner.Plan(req, time.Now())
	fmt.Printf("Planned %d tasks for a %s project (%s complexity)\n",
		len(tasks), req.ProjectType, req.Complexity)

	runID := uuid.NewString()
	var store persistence.Store
	if !opts.noPersist {
		store, err = openStore(ctx, opts.workspace, runID, req)
		if err != nil {
			log.Printf("WARNING: run database unavailable, continuing without persistence: %v", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	driver, err := editor.NewDriver(opts.workspace, editor.Options{
		Command:         cfg.Editor.Command,
		PollInterval:    cfg.PollInterval(),
		MonitorDuration: cfg.MonitorDuration(),
	}, mgr)
	if err != nil {
		return fmt.Errorf("setting up editor driver: %w", err)
	}

	mon, err := monitor.New(opts.workspace)
	if err != nil {
		return fmt.Errorf("setting up monitor: %w", err)
	}

	bus := events.NewBus()
	defer bus.Close()
	go printEvents(bus.SubscribeAll(64))

	runner, err := orchestrator.NewRunner(orchestrator.Config{
		RunID:            runID,
		Workspace:        opts.workspace,
		MaxConcurrent:    cfg.Loops.MaxConcurrent,
		MonitorInterval:  cfg.MonitorInterval(),
		OptimizeInterval: cfg.OptimizeInterval(),
		Dispatcher:       driver,
		Monitor:          mon,
		Bus:              bus,
		Store:            store,
	}, req, tasks)
	if err != nil {
		return err
	}

	report, runErr := runner.Run(ctx)
	fmt.Println()
	fmt.Print(report.Render())

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) {
		log.Println("Run interrupted, partial report above")
	}
	return nil
}

func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath == "" {
		cfg, err := config.LoadDefault(opts.workspace)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	// --config replaces the project-level file; the global file still
	// merges underneath it.
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting home directory: %w", err)
	}
	globalPath := filepath.Join(homeDir, ".forgeflow", "config.json")

	cfg, err := config.Load(globalPath, opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// analyze runs AI requirement analysis, degrading to the keyword
// fallback when no provider is reachable.
func analyze(ctx context.Context, cfg *config.Config, mgr *proc.Manager, requirement string) *task.Requirement {
	provider, ok := cfg.ActiveProvider()
	if !ok {
		log.Printf("WARNING: provider %q not configured, using fallback analysis", cfg.AI.Provider)
		return ai.FallbackRequirement(requirement)
	}

	apiKey := provider.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	client, err := ai.New(ai.Config{
		Provider:    provider.Type,
		APIKey:      apiKey,
		BaseURL:     provider.BaseURL,
		Model:       provider.Model,
		Command:     provider.Command,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: cfg.AI.Temperature,
		Timeout:     time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	}, mgr)
	if err != nil {
		log.Printf("WARNING: AI client unavailable, using fallback analysis: %v", err)
		return ai.FallbackRequirement(requirement)
	}

	req, err := ai.NewAnalyzer(client).AnalyzeRequirement(ctx, requirement)
	if err != nil {
		log.Printf("WARNING: requirement analysis failed, using fallback: %v", err)
		return ai.FallbackRequirement(requirement)
	}
	return req
}

func openStore(ctx context.Context, workspace, runID string, req *task.Requirement) (persistence.Store, error) {
	dbPath := filepath.Join(workspace, ".forgeflow", "forgeflow.db")
	store, err := persistence.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	err = store.CreateRun(ctx, &persistence.Run{
		ID:          runID,
		Requirement: req.Original,
		ProjectType: req.ProjectType,
		Complexity:  string(req.Complexity),
		Workspace:   workspace,
		Status:      "running",
		StartedAt:   time.Now(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// printEvents renders bus traffic as terminal progress lines.
func printEvents(ch <-chan events.Event) {
	for ev := range ch {
		switch e := ev.(type) {
		case events.TaskDispatchedEvent:
			fmt.Printf("-> %s (%s)\n", e.Name, e.Type)
		case events.TaskCompletedEvent:
			fmt.Printf("   done: %s in %s\n", e.Name, e.Duration.Round(time.Second))
		case events.TaskFailedEvent:
			fmt.Printf("   failed: %s: %v\n", e.Name, e.Err)
		case events.SnapshotEvent:
			fmt.Printf("   scan: %d files changed, quality %.2f, trend %s\n",
				e.FilesChanged, e.AverageQuality, e.Trend)
		case events.AdjustmentEvent:
			fmt.Printf("   strategy: %v\n", e.Kinds)
		case events.RunProgressEvent:
			fmt.Printf("   progress: %d/%d completed\n", e.Completed, e.Total)
		}
	}
}
