// Package editor drives the external code editor through tasks. The editor
// is an opaque binary launched with the workspace as its sole argument; all
// feedback comes from the filesystem, either the per-task status file in
// the queue directory or observed file changes in the workspace.
package editor

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/forgeflow/forgeflow/internal/proc"
	"github.com/forgeflow/forgeflow/internal/task"
)

// Result is what one task dispatch produced, as far as the filesystem shows.
type Result struct {
	TaskID            string
	Signaled          bool     // the status file reported a terminal status
	Failed            bool     // the reported terminal status was "failed"
	Progress          int      // last progress seen in the status file
	CompletedSubtasks []string // subtasks the status file marked done
	FilesChanged      int      // workspace changes observed while waiting
	TimedOut          bool     // monitor duration elapsed with no terminal signal
}

// Driver dispatches tasks to the editor and waits for observable effects.
type Driver struct {
	command         string
	workspace       string
	mgr             *proc.Manager
	pollInterval    time.Duration
	monitorDuration time.Duration

	editorRunning bool
}

// Options configure a Driver. Zero values take defaults: 5s polling and a
// 10 minute observation window.
type Options struct {
	Command         string // editor binary, default "cursor"
	PollInterval    time.Duration
	MonitorDuration time.Duration
}

// NewDriver creates a driver for one workspace.
func NewDriver(workspace string, opts Options, mgr *proc.Manager) (*Driver, error) {
	if workspace == "" {
		return nil, fmt.Errorf("editor: workspace path required")
	}
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, fmt.Errorf("editor: create workspace: %w", err)
	}

	command := opts.Command
	if command == "" {
		command = "cursor"
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	monitorDuration := opts.MonitorDuration
	if monitorDuration <= 0 {
		monitorDuration = 10 * time.Minute
	}

	return &Driver{
		command:         command,
		workspace:       workspace,
		mgr:             mgr,
		pollInterval:    pollInterval,
		monitorDuration: monitorDuration,
	}, nil
}

// Workspace returns the directory the driver operates on.
func (d *Driver) Workspace() string { return d.workspace }

// Execute dispatches one task: writes its guidance and status files, makes
// sure the editor is open on the workspace, and waits for a terminal signal
// or the observation window to run out. A timeout is not a task failure; it
// resolves to zero observed change and the caller falls back to heuristic
// verification.
func (d *Driver) Execute(ctx context.Context, t *task.Task, req *task.Requirement) (Result, error) {
	if err := WriteDispatch(d.workspace, t, Guidance(t, req), time.Now()); err != nil {
		return Result{TaskID: t.ID}, err
	}

	if err := d.ensureEditor(ctx); err != nil {
		// Missing editor binary degrades to pure observation; the queue
		// files still let a human act on the task.
		log.Printf("WARNING: could not launch editor %q: %v", d.command, err)
	}

	return d.await(ctx, t)
}

// ensureEditor launches the editor on the workspace once per driver.
func (d *Driver) ensureEditor(ctx context.Context) error {
	if d.editorRunning {
		return nil
	}
	cmd := proc.Command(ctx, d.command, d.workspace)
	if err := cmd.Start(); err != nil {
		return err
	}
	if d.mgr != nil {
		d.mgr.Track(cmd)
	}
	// The editor outlives individual tasks; its exit is reaped in the
	// background so a closed window never leaves a zombie.
	go func() {
		cmd.Wait()
		if d.mgr != nil {
			d.mgr.Untrack(cmd)
		}
	}()
	d.editorRunning = true
	return nil
}

// await polls the task's status file until it reports a terminal status,
// the monitor duration elapses, or the context is cancelled. Workspace
// change notifications wake the poll early but the file stays authoritative.
// Progress crossing a stage boundary appends the stage's follow-up prompt to
// the guidance file; a completion signal appends the confirmation prompt.
func (d *Driver) await(ctx context.Context, t *task.Task) (Result, error) {
	taskID := t.ID
	result := Result{TaskID: taskID}
	lastStage := progressStage(t.Progress)

	watcher, err := NewWatcher(d.workspace)
	if err != nil {
		log.Printf("WARNING: workspace watcher unavailable, falling back to pure polling: %v", err)
	} else {
		defer watcher.Close()
	}
	var changes <-chan string
	if watcher != nil {
		changes = watcher.Changes
	}

	deadline := time.NewTimer(d.monitorDuration)
	defer deadline.Stop()
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		if status, err := ReadStatus(d.workspace, taskID); err == nil {
			result.Progress = status.Progress
			result.CompletedSubtasks = status.CompletedSubtasks
			switch task.Status(status.Status) {
			case task.StatusCompleted:
				result.Signaled = true
				if err := AppendGuidance(d.workspace, taskID, CompletionPrompt(t)); err != nil {
					log.Printf("WARNING: could not write completion prompt for %s: %v", taskID, err)
				}
				return result, nil
			case task.StatusFailed:
				result.Signaled = true
				result.Failed = true
				return result, nil
			}
			if stage := progressStage(status.Progress); stage > lastStage {
				if err := AppendGuidance(d.workspace, taskID, FollowUp(t, status.Progress)); err != nil {
					log.Printf("WARNING: could not write follow-up prompt for %s: %v", taskID, err)
				}
				lastStage = stage
			}
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-deadline.C:
			result.TimedOut = true
			return result, nil
		case _, ok := <-changes:
			if ok {
				result.FilesChanged++
			} else {
				changes = nil
			}
		case <-ticker.C:
		}
	}
}
