package orchestrator

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/forgeflow/forgeflow/internal/monitor"
	"github.com/forgeflow/forgeflow/internal/optimizer"
	"github.com/forgeflow/forgeflow/internal/scheduler"
	"github.com/forgeflow/forgeflow/internal/task"
)

// TaskOutcome is one task's final state in the report.
type TaskOutcome struct {
	ID       string
	Name     string
	Status   task.Status
	Progress int
}

// Report summarizes a finished (or cancelled) run.
type Report struct {
	RunID       string
	Requirement string
	ProjectType string
	StartedAt   time.Time
	FinishedAt  time.Time

	Progress    scheduler.Progress
	Tasks       []TaskOutcome
	Adjustments []optimizer.Adjustment

	FinalSnapshot monitor.Snapshot
	QualityTrend  string
	StrategyTrend string
	Validation    optimizer.ValidationReport
}

// buildReport takes a final workspace scan, validates the project
// against the requirement, and folds in everything the run recorded.
func (r *Runner) buildReport(startedAt time.Time) *Report {
	snap, err := r.cfg.Monitor.Scan(time.Now())
	if err != nil {
		log.Printf("WARNING: final workspace scan failed: %v", err)
		if latest, ok := r.cfg.Monitor.Latest(); ok {
			snap = latest
		}
	}

	scores := make([]float64, 0)
	for _, s := range r.cfg.Monitor.History() {
		scores = append(scores, optimizer.Assess(s).OverallScore)
	}

	report := &Report{
		RunID:         r.cfg.RunID,
		StartedAt:     startedAt,
		FinishedAt:    time.Now(),
		Progress:      scheduler.AggregateProgress(r.tasks),
		Adjustments:   r.adjustments,
		FinalSnapshot: snap,
		QualityTrend:  string(r.cfg.Monitor.QualityTrend()),
		StrategyTrend: optimizer.OptimizationTrend(scores),
		Validation:    optimizer.ValidateProject(r.cfg.Workspace, r.req, r.tasks, snap),
	}
	if r.req != nil {
		report.Requirement = r.req.Original
		report.ProjectType = r.req.ProjectType
	}
	for _, t := range r.tasks {
		report.Tasks = append(report.Tasks, TaskOutcome{
			ID: t.ID, Name: t.Name, Status: t.Status, Progress: t.Progress,
		})
	}
	return report
}

// Render formats the report for terminal output.
func (r *Report) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run %s finished in %s\n", r.RunID, r.FinishedAt.Sub(r.StartedAt).Round(time.Second))
	if r.Requirement != "" {
		fmt.Fprintf(&b, "Requirement: %s\n", r.Requirement)
		fmt.Fprintf(&b, "Project type: %s\n", r.ProjectType)
	}
	fmt.Fprintf(&b, "\nTasks: %d total, %d completed, %d failed, %d pending\n",
		r.Progress.Total, r.Progress.Completed, r.Progress.Failed, r.Progress.Pending)
	for _, t := range r.Tasks {
		fmt.Fprintf(&b, "  [%-11s] %s (%d%%)\n", t.Status, t.Name, t.Progress)
	}

	fmt.Fprintf(&b, "\nWorkspace: %d created, %d modified, quality %.2f, trend %s\n",
		len(r.FinalSnapshot.FilesCreated), len(r.FinalSnapshot.FilesModified),
		r.FinalSnapshot.AverageQuality, r.QualityTrend)

	if len(r.Adjustments) > 0 {
		fmt.Fprintf(&b, "\nStrategy adjustments (%s):\n", r.StrategyTrend)
		for _, adj := range r.Adjustments {
			fmt.Fprintf(&b, "  %s: %s\n",
				adj.Time.Format("15:04:05"), strings.Join(adj.Kinds, ", "))
		}
	}

	v := r.Validation
	fmt.Fprintf(&b, "\nValidation: %s (%.2f)\n", v.Status, v.Overall)
	fmt.Fprintf(&b, "  structure %.2f, quality %.2f, functionality %.2f, documentation %.2f\n",
		v.Structure, v.Quality, v.Functionality, v.Documentation)
	for _, issue := range v.Issues {
		fmt.Fprintf(&b, "  issue: %s\n", issue)
	}

	return b.String()
}
