package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgeflow/forgeflow/internal/editor"
	"github.com/forgeflow/forgeflow/internal/events"
	"github.com/forgeflow/forgeflow/internal/monitor"
	"github.com/forgeflow/forgeflow/internal/optimizer"
	"github.com/forgeflow/forgeflow/internal/persistence"
	"github.com/forgeflow/forgeflow/internal/scheduler"
	"github.com/forgeflow/forgeflow/internal/task"
)

// Dispatcher hands one task to the development environment and reports
// what the filesystem showed while waiting.
type Dispatcher interface {
	Execute(ctx context.Context, t *task.Task, req *task.Requirement) (editor.Result, error)
}

// Config configures a Runner.
type Config struct {
	RunID            string
	Workspace        string
	MaxConcurrent    int           // dispatch width, default 1
	MonitorInterval  time.Duration // background scan cadence, default 30s
	OptimizeInterval time.Duration // strategy review cadence, default 5m

	Dispatcher Dispatcher
	Monitor    *monitor.Monitor
	Bus        *events.Bus       // optional
	Store      persistence.Store // optional
}

// Runner drives a planned task list to completion: dispatching ready
// tasks, watching the workspace, and applying strategy adjustments
// between dispatches.
//
// The drive loop is the only goroutine that mutates the task list. The
// background loops communicate through the adjustment channel, so an
// adjustment decided mid-dispatch lands before the next task starts.
type Runner struct {
	cfg   Config
	req   *task.Requirement
	tasks []*task.Task

	adjustCh    chan *optimizer.Adjustment
	adjustments []optimizer.Adjustment
}

// NewRunner creates a runner over a finalized plan.
func NewRunner(cfg Config, req *task.Requirement, tasks []*task.Task) (*Runner, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("orchestrator: dispatcher required")
	}
	if cfg.Monitor == nil {
		return nil, fmt.Errorf("orchestrator: monitor required")
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = 30 * time.Second
	}
	if cfg.OptimizeInterval <= 0 {
		cfg.OptimizeInterval = 5 * time.Minute
	}

	return &Runner{
		cfg:      cfg,
		req:      req,
		tasks:    tasks,
		adjustCh: make(chan *optimizer.Adjustment, 4),
	}, nil
}

// Tasks returns the current task list. Call only after Run has returned.
func (r *Runner) Tasks() []*task.Task { return r.tasks }

// Run drives the plan until every reachable task is terminal or the
// context is cancelled. The returned report is valid even on
// cancellation; the error is the cancellation cause, if any.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	startedAt := time.Now()
	r.persistTasks(ctx)

	loopCtx, stopLoops := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error { return r.monitorLoop(gctx) })
	g.Go(func() error { return r.optimizeLoop(gctx) })

	runErr := r.drive(ctx)

	stopLoops()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("WARNING: background loop ended with error: %v", err)
	}

	// Final bookkeeping runs on a fresh context so a cancelled run still
	// gets its report and terminal persistence.
	finCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	report := r.buildReport(startedAt)
	r.finishRun(finCtx, report)
	return report, runErr
}

// drive is the sequential dispatch loop.
func (r *Runner) drive(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		r.applyPendingAdjustments(ctx)

		ready := scheduler.Ready(r.tasks, r.cfg.MaxConcurrent)
		if len(ready) == 0 {
			// Remaining pending tasks are blocked behind failed
			// dependencies; nothing more can run.
			return nil
		}

		for _, t := range ready {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.dispatch(ctx, t)
			r.publishProgress()
		}
	}
}

// dispatch runs one task through the editor and resolves its terminal
// status from the observed result.
func (r *Runner) dispatch(ctx context.Context, t *task.Task) {
	if err := scheduler.SetStatus(r.tasks, t.ID, task.StatusInProgress, 0); err != nil {
		log.Printf("ERROR: could not start task %q: %v", t.ID, err)
		return
	}
	r.persistStatus(ctx, t.ID, task.StatusInProgress, 0)
	r.publish(events.TopicTask, events.TaskDispatchedEvent{
		ID: t.ID, Name: t.Name, Type: t.Type, Timestamp: time.Now(),
	})
	startedAt := time.Now()

	result, err := r.cfg.Dispatcher.Execute(ctx, t, r.req)
	if err != nil {
		r.resolve(ctx, t, task.StatusFailed, result.Progress, err)
		return
	}

	switch {
	case result.Signaled && result.Failed:
		r.resolve(ctx, t, task.StatusFailed, result.Progress,
			fmt.Errorf("editor reported failure for task %s", t.ID))
	case result.Signaled:
		r.resolve(ctx, t, task.StatusCompleted, result.Progress, nil)
		r.publish(events.TopicTask, events.TaskCompletedEvent{
			ID: t.ID, Name: t.Name, Duration: time.Since(startedAt), Timestamp: time.Now(),
		})
	default:
		// No terminal signal inside the observation window. Decide from
		// workspace evidence instead of treating the silence as failure.
		if r.verified(t, result) {
			r.resolve(ctx, t, task.StatusCompleted, result.Progress, nil)
			r.publish(events.TopicTask, events.TaskCompletedEvent{
				ID: t.ID, Name: t.Name, Duration: time.Since(startedAt), Timestamp: time.Now(),
			})
		} else {
			r.resolve(ctx, t, task.StatusFailed, result.Progress,
				fmt.Errorf("no completion signal or workspace evidence for task %s", t.ID))
		}
	}
}

// verified checks the workspace for evidence that a silent task actually
// happened: observed file changes, or the named feature showing up in
// source.
func (r *Runner) verified(t *task.Task, result editor.Result) bool {
	if result.FilesChanged > 0 {
		return true
	}
	return optimizer.FeatureImplemented(r.cfg.Workspace, t.Name)
}

func (r *Runner) resolve(ctx context.Context, t *task.Task, status task.Status, progress int, cause error) {
	if status == task.StatusCompleted {
		progress = 100
	}
	if err := scheduler.SetStatus(r.tasks, t.ID, status, progress); err != nil {
		log.Printf("ERROR: could not resolve task %q: %v", t.ID, err)
		return
	}
	r.persistStatus(ctx, t.ID, status, progress)
	if status == task.StatusFailed {
		log.Printf("WARNING: task %q failed: %v", t.ID, cause)
		r.publish(events.TopicTask, events.TaskFailedEvent{
			ID: t.ID, Name: t.Name, Err: cause, Timestamp: time.Now(),
		})
	}
}

// applyPendingAdjustments drains the adjustment channel and applies
// every queued strategy change to the task list.
func (r *Runner) applyPendingAdjustments(ctx context.Context) {
	for {
		select {
		case adj := <-r.adjustCh:
			r.tasks = optimizer.Apply(r.tasks, adj)
			r.adjustments = append(r.adjustments, *adj)
			r.persistTasks(ctx)
			r.persistAdjustment(ctx, adj)
			r.publish(events.TopicStrategy, events.AdjustmentEvent{
				Kinds: adj.Kinds, Triggers: adj.Triggers, Timestamp: time.Now(),
			})
		default:
			return
		}
	}
}

func (r *Runner) publishProgress() {
	p := scheduler.AggregateProgress(r.tasks)
	r.publish(events.TopicTask, events.RunProgressEvent{
		Total: p.Total, Completed: p.Completed, InProgress: p.InProgress,
		Failed: p.Failed, Pending: p.Pending, Timestamp: time.Now(),
	})
}

func (r *Runner) publish(topic string, event events.Event) {
	if r.cfg.Bus != nil {
		r.cfg.Bus.Publish(topic, event)
	}
}

func (r *Runner) persistTasks(ctx context.Context) {
	if r.cfg.Store == nil {
		return
	}
	for _, t := range r.tasks {
		if err := r.cfg.Store.SaveTask(ctx, r.cfg.RunID, t); err != nil {
			log.Printf("WARNING: could not persist task %q: %v", t.ID, err)
		}
	}
}

func (r *Runner) persistStatus(ctx context.Context, taskID string, status task.Status, progress int) {
	if r.cfg.Store == nil {
		return
	}
	if err := r.cfg.Store.UpdateTaskStatus(ctx, r.cfg.RunID, taskID, status, progress); err != nil {
		log.Printf("WARNING: could not persist status of task %q: %v", taskID, err)
	}
}

func (r *Runner) persistAdjustment(ctx context.Context, adj *optimizer.Adjustment) {
	if r.cfg.Store == nil {
		return
	}
	rec := &persistence.AdjustmentRecord{
		AppliedAt: adj.Time, Kinds: adj.Kinds, Triggers: adj.Triggers,
	}
	if err := r.cfg.Store.SaveAdjustment(ctx, r.cfg.RunID, rec); err != nil {
		log.Printf("WARNING: could not persist adjustment: %v", err)
	}
}

func (r *Runner) finishRun(ctx context.Context, report *Report) {
	if r.cfg.Store == nil {
		return
	}
	status := "completed"
	if report.Progress.Failed > 0 || report.Progress.Pending > 0 {
		status = "incomplete"
	}
	if err := r.cfg.Store.FinishRun(ctx, r.cfg.RunID, status, report.FinishedAt); err != nil {
		log.Printf("WARNING: could not finish run record: %v", err)
	}
}
