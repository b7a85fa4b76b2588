package optimizer

import (
	"sort"
	"time"

	"github.com/forgeflow/forgeflow/internal/task"
)

// Adjustment kinds, applied in the order listed here.
const (
	AdjustPriorities = "priority_adjustment"
	AdjustQuality    = "quality_focus"
)

// Adjustment is one strategy decision. It travels over a channel from the
// optimization loop to the drive loop, which is the only writer of the task
// list.
type Adjustment struct {
	Time     time.Time `json:"time"`
	Kinds    []string  `json:"kinds"`
	Triggers []string  `json:"triggers"`
}

// overallFocusThreshold is the score below which quality work is injected;
// progressFocusThreshold is the completion rate below which priorities are
// re-sorted toward core tasks.
const (
	optimizeThreshold      = 0.7
	overallFocusThreshold  = 0.6
	progressFocusThreshold = 0.5
)

// coreTaskTypes are the type tags whose incomplete tasks get boosted by a
// priority adjustment.
var coreTaskTypes = map[string]bool{
	"setup":         true,
	"database":      true,
	"core_features": true,
}

// Decide maps an assessment and the current completion rate onto zero or
// more adjustments. A healthy project (score at or above the optimize
// threshold with no issues) yields nil.
func Decide(a Assessment, completionRate float64, now time.Time) *Adjustment {
	if a.OverallScore >= optimizeThreshold && len(a.Issues) == 0 {
		return nil
	}

	adj := &Adjustment{Time: now, Triggers: append([]string(nil), a.Issues...)}
	if a.OverallScore < overallFocusThreshold {
		adj.Kinds = append(adj.Kinds, AdjustQuality)
	}
	if completionRate < progressFocusThreshold {
		adj.Kinds = append(adj.Kinds, AdjustPriorities)
	}
	if len(adj.Kinds) == 0 {
		return nil
	}
	return adj
}

// Apply mutates the task list according to the adjustment and returns it.
// The caller owns the list; Apply must only run from the single writer.
func Apply(tasks []*task.Task, adj *Adjustment) []*task.Task {
	if adj == nil {
		return tasks
	}
	for _, kind := range adj.Kinds {
		switch kind {
		case AdjustPriorities:
			tasks = boostCorePriorities(tasks)
		case AdjustQuality:
			tasks = insertQualityTasks(tasks)
		}
	}
	return tasks
}

// boostCorePriorities raises incomplete core tasks to at least priority 5
// and re-sorts the list by descending priority, stable on the finalized
// execution order.
func boostCorePriorities(tasks []*task.Task) []*task.Task {
	for _, t := range tasks {
		if coreTaskTypes[t.Type] && t.Status != task.StatusCompleted {
			boosted := t.Priority + 1
			if boosted < 5 {
				boosted = 5
			}
			t.Priority = boosted
			t.Adjusted = true
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority > tasks[j].Priority
		}
		return tasks[i].ExecutionOrder < tasks[j].ExecutionOrder
	})
	return tasks
}

// insertQualityTasks places a code review task and a test enhancement task
// at the boundary between completed and not-yet-completed tasks. Inserting
// twice is a no-op.
func insertQualityTasks(tasks []*task.Task) []*task.Task {
	for _, t := range tasks {
		if t.ID == "quality_review" || t.ID == "test_enhancement" {
			return tasks
		}
	}

	qualityTasks := []*task.Task{
		{
			ID:             "quality_review",
			Name:           "Code quality review",
			Description:    "Review and improve the quality of existing code",
			Type:           "quality",
			Priority:       5,
			EstimatedHours: 2,
			Status:         task.StatusPending,
			Subtasks: []string{
				"Check code style consistency",
				"Reduce function complexity",
				"Add missing comments",
				"Refactor duplicated code",
			},
			Adjusted: true,
		},
		{
			ID:             "test_enhancement",
			Name:           "Test coverage improvement",
			Description:    "Add unit and integration tests",
			Type:           "testing",
			Priority:       4,
			EstimatedHours: 3,
			Status:         task.StatusPending,
			Subtasks: []string{
				"Write unit tests for core features",
				"Add boundary-condition tests",
				"Implement integration tests",
				"Verify test coverage",
			},
			Adjusted: true,
		},
	}

	boundary := 0
	for _, t := range tasks {
		if t.Status == task.StatusCompleted {
			boundary++
		}
	}

	out := make([]*task.Task, 0, len(tasks)+len(qualityTasks))
	out = append(out, tasks[:boundary]...)
	out = append(out, qualityTasks...)
	out = append(out, tasks[boundary:]...)
	return out
}
