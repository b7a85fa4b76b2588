package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forgeflow/forgeflow/internal/editor"
	"github.com/forgeflow/forgeflow/internal/events"
	"github.com/forgeflow/forgeflow/internal/monitor"
	"github.com/forgeflow/forgeflow/internal/optimizer"
	"github.com/forgeflow/forgeflow/internal/persistence"
	"github.com/forgeflow/forgeflow/internal/task"
)

// stubDispatcher scripts per-task outcomes. Tasks without an entry
// resolve as cleanly signaled completions.
type stubDispatcher struct {
	mu      sync.Mutex
	calls   []string
	results map[string]editor.Result
	errs    map[string]error
	delay   time.Duration // per-task dispatch latency
	block   bool          // block until the context is cancelled
}

func (d *stubDispatcher) Execute(ctx context.Context, t *task.Task, req *task.Requirement) (editor.Result, error) {
	d.mu.Lock()
	d.calls = append(d.calls, t.ID)
	d.mu.Unlock()

	if d.block {
		<-ctx.Done()
		return editor.Result{TaskID: t.ID}, ctx.Err()
	}
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return editor.Result{TaskID: t.ID}, ctx.Err()
		}
	}
	if err := d.errs[t.ID]; err != nil {
		return editor.Result{TaskID: t.ID}, err
	}
	if r, ok := d.results[t.ID]; ok {
		return r, nil
	}
	return editor.Result{TaskID: t.ID, Signaled: true, Progress: 100}, nil
}

func (d *stubDispatcher) callOrder() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

func testRequirement() *task.Requirement {
	return &task.Requirement{
		Original:    "Build an online store",
		ProjectType: "web_app",
		Complexity:  task.ComplexityMedium,
	}
}

func testPlan() []*task.Task {
	return []*task.Task{
		{ID: "project_setup", Name: "Project setup", Type: "setup",
			Priority: 5, Status: task.StatusPending, ExecutionOrder: 1},
		{ID: "database_setup", Name: "Database setup", Type: "database",
			Priority: 4, Status: task.StatusPending, ExecutionOrder: 2,
			Dependencies: []string{"project_setup"}},
	}
}

func newTestRunner(t *testing.T, tasks []*task.Task, d Dispatcher, cfg Config) *Runner {
	t.Helper()

	if cfg.Workspace == "" {
		cfg.Workspace = t.TempDir()
	}
	if cfg.Monitor == nil {
		m, err := monitor.New(cfg.Workspace)
		if err != nil {
			t.Fatalf("creating monitor: %v", err)
		}
		cfg.Monitor = m
	}
	cfg.Dispatcher = d
	if cfg.RunID == "" {
		cfg.RunID = "run-test"
	}
	// Keep background loops quiet unless a test opts in.
	if cfg.MonitorInterval == 0 {
		cfg.MonitorInterval = time.Hour
	}
	if cfg.OptimizeInterval == 0 {
		cfg.OptimizeInterval = time.Hour
	}

	r, err := NewRunner(cfg, testRequirement(), tasks)
	if err != nil {
		t.Fatalf("creating runner: %v", err)
	}
	return r
}

func TestRunCompletesPlanInOrder(t *testing.T) {
	d := &stubDispatcher{}
	r := newTestRunner(t, testPlan(), d, Config{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	order := d.callOrder()
	if len(order) != 2 || order[0] != "project_setup" || order[1] != "database_setup" {
		t.Errorf("dispatch order = %v, want [project_setup database_setup]", order)
	}
	if report.Progress.Completed != 2 || report.Progress.Failed != 0 {
		t.Errorf("progress = %+v, want 2 completed", report.Progress)
	}
	for _, tk := range r.Tasks() {
		if tk.Status != task.StatusCompleted {
			t.Errorf("task %s status = %q, want completed", tk.ID, tk.Status)
		}
		if tk.Progress != 100 {
			t.Errorf("task %s progress = %d, want 100", tk.ID, tk.Progress)
		}
	}
}

func TestRunFailureBlocksDependents(t *testing.T) {
	d := &stubDispatcher{
		results: map[string]editor.Result{
			"project_setup": {TaskID: "project_setup", Signaled: true, Failed: true},
		},
	}
	r := newTestRunner(t, testPlan(), d, Config{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := d.callOrder(); len(got) != 1 {
		t.Errorf("dispatched %v, want only the failing task", got)
	}
	if report.Progress.Failed != 1 || report.Progress.Pending != 1 {
		t.Errorf("progress = %+v, want 1 failed and 1 pending", report.Progress)
	}
}

func TestRunDispatchErrorFailsTask(t *testing.T) {
	d := &stubDispatcher{
		errs: map[string]error{"project_setup": fmt.Errorf("queue dir unwritable")},
	}
	r := newTestRunner(t, testPlan()[:1], d, Config{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Progress.Failed != 1 {
		t.Errorf("progress = %+v, want 1 failed", report.Progress)
	}
}

func TestRunTimeoutWithFileEvidenceCompletes(t *testing.T) {
	d := &stubDispatcher{
		results: map[string]editor.Result{
			"project_setup": {TaskID: "project_setup", TimedOut: true, FilesChanged: 3, Progress: 60},
		},
	}
	r := newTestRunner(t, testPlan()[:1], d, Config{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Progress.Completed != 1 {
		t.Errorf("progress = %+v, want 1 completed", report.Progress)
	}
	if r.Tasks()[0].Progress != 100 {
		t.Errorf("progress = %d, want 100 on completion", r.Tasks()[0].Progress)
	}
}

func TestRunTimeoutWithoutEvidenceFails(t *testing.T) {
	d := &stubDispatcher{
		results: map[string]editor.Result{
			"project_setup": {TaskID: "project_setup", TimedOut: true},
		},
	}
	r := newTestRunner(t, testPlan()[:1], d, Config{})

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Progress.Failed != 1 {
		t.Errorf("progress = %+v, want 1 failed", report.Progress)
	}
}

func TestRunAppliesQueuedAdjustment(t *testing.T) {
	d := &stubDispatcher{}
	tasks := []*task.Task{
		{ID: "project_setup", Name: "Project setup", Type: "setup",
			Priority: 5, Status: task.StatusCompleted, ExecutionOrder: 1, Progress: 100},
		{ID: "database_setup", Name: "Database setup", Type: "database",
			Priority: 4, Status: task.StatusPending, ExecutionOrder: 2},
	}
	r := newTestRunner(t, tasks, d, Config{})

	r.adjustCh <- &optimizer.Adjustment{
		Time:     time.Now(),
		Kinds:    []string{"quality_focus"},
		Triggers: []string{"overall score 0.40 below 0.60"},
	}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	byID := map[string]*task.Task{}
	for _, tk := range r.Tasks() {
		byID[tk.ID] = tk
	}
	for _, id := range []string{"quality_review", "test_enhancement"} {
		tk, ok := byID[id]
		if !ok {
			t.Fatalf("adjustment should have inserted %s", id)
		}
		if tk.Status != task.StatusCompleted {
			t.Errorf("%s status = %q, want completed after dispatch", id, tk.Status)
		}
	}
	if len(report.Adjustments) != 1 {
		t.Errorf("report adjustments = %d, want 1", len(report.Adjustments))
	}
}

func TestRunPublishesLifecycleEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Subscribe(events.TopicTask, 32)

	d := &stubDispatcher{}
	r := newTestRunner(t, testPlan()[:1], d, Config{Bus: bus})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	seen := map[string]bool{}
	for {
		select {
		case ev := <-ch:
			seen[ev.EventType()] = true
		case <-time.After(100 * time.Millisecond):
			for _, want := range []string{
				events.EventTypeTaskDispatched,
				events.EventTypeTaskCompleted,
				events.EventTypeRunProgress,
			} {
				if !seen[want] {
					t.Errorf("missing event %q, saw %v", want, seen)
				}
			}
			return
		}
	}
}

func TestRunEmitsSnapshotEvents(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()
	ch := bus.Subscribe(events.TopicMonitor, 32)

	workspace := t.TempDir()
	mon, err := monitor.New(workspace)
	if err != nil {
		t.Fatalf("creating monitor: %v", err)
	}

	// Appears after the baseline scan, so it counts as a created file.
	if err := os.WriteFile(filepath.Join(workspace, "app.go"), []byte("package app\n"), 0644); err != nil {
		t.Fatalf("writing source file: %v", err)
	}

	d := &stubDispatcher{delay: 120 * time.Millisecond}
	r := newTestRunner(t, testPlan()[:1], d, Config{
		Workspace:       workspace,
		Monitor:         mon,
		Bus:             bus,
		MonitorInterval: 20 * time.Millisecond,
	})

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case ev := <-ch:
		snap, ok := ev.(events.SnapshotEvent)
		if !ok {
			t.Fatalf("monitor topic carried %T, want SnapshotEvent", ev)
		}
		if snap.FilesChanged < 1 {
			t.Errorf("files changed = %d, want at least the created file", snap.FilesChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot event published")
	}
}

func TestReportRenderCountsFiles(t *testing.T) {
	report := &Report{
		RunID:      "run-test",
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
		FinalSnapshot: monitor.Snapshot{
			FilesCreated:   []string{"src/app.go", "src/db.go"},
			FilesModified:  []string{"README.md"},
			AverageQuality: 0.8,
		},
		QualityTrend: "stable",
	}

	out := report.Render()
	if !strings.Contains(out, "2 created, 1 modified") {
		t.Errorf("render should count files, got:\n%s", out)
	}
}

func TestRunContextCancellation(t *testing.T) {
	d := &stubDispatcher{block: true}
	r := newTestRunner(t, testPlan(), d, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	report, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if report == nil {
		t.Fatal("report should be produced even on cancellation")
	}
}

func TestRunPersistsOutcome(t *testing.T) {
	ctx := context.Background()
	store, err := persistence.NewMemoryStore(ctx)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	defer store.Close()

	if err := store.CreateRun(ctx, &persistence.Run{
		ID: "run-test", Requirement: "Build an online store",
		ProjectType: "web_app", Complexity: "medium",
		Workspace: "/tmp/ws", Status: "running", StartedAt: time.Now(),
	}); err != nil {
		t.Fatalf("creating run: %v", err)
	}

	d := &stubDispatcher{}
	r := newTestRunner(t, testPlan(), d, Config{Store: store})

	if _, err := r.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	saved, err := store.ListTasks(ctx, "run-test")
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("persisted %d tasks, want 2", len(saved))
	}
	for _, tk := range saved {
		if tk.Status != task.StatusCompleted {
			t.Errorf("persisted task %s status = %q, want completed", tk.ID, tk.Status)
		}
	}

	run, err := store.GetRun(ctx, "run-test")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Status != "completed" {
		t.Errorf("run status = %q, want completed", run.Status)
	}
	if run.FinishedAt == nil {
		t.Error("run finished_at should be set")
	}
}

func TestRunnerRequiresDispatcherAndMonitor(t *testing.T) {
	m, err := monitor.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating monitor: %v", err)
	}

	if _, err := NewRunner(Config{Monitor: m}, testRequirement(), nil); err == nil {
		t.Error("expected error without dispatcher")
	}
	if _, err := NewRunner(Config{Dispatcher: &stubDispatcher{}}, testRequirement(), nil); err == nil {
		t.Error("expected error without monitor")
	}
}
