package scheduler

import (
	"fmt"
	"time"

	"github.com/forgeflow/forgeflow/internal/task"
)

// Ready returns up to maxConcurrent tasks that can run now: status pending
// and every dependency resolved to a completed task. A dependency id with
// no matching task counts as unmet (fail closed). Results keep list order.
func Ready(tasks []*task.Task, maxConcurrent int) []*task.Task {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	ready := []*task.Task{}
	for _, t := range tasks {
		if t.Status != task.StatusPending {
			continue
		}
		met := true
		for _, dep := range t.Dependencies {
			d, ok := byID[dep]
			if !ok || d.Status != task.StatusCompleted {
				met = false
				break
			}
		}
		if met {
			ready = append(ready, t)
			if len(ready) == maxConcurrent {
				break
			}
		}
	}
	return ready
}

// SetStatus transitions a task in place. StartedAt is set the first time a
// task enters in_progress (never overwritten); CompletedAt is set on the
// transition to completed. progress in [0,100] updates the task's progress
// field; pass a negative value to leave it untouched. Completion does not
// force progress to 100 -- the two fields stay independent.
func SetStatus(tasks []*task.Task, id string, status task.Status, progress int) error {
	var target *task.Task
	for _, t := range tasks {
		if t.ID == id {
			target = t
			break
		}
	}
	if target == nil {
		return fmt.Errorf("task %q not found", id)
	}

	if !target.Status.CanTransition(status) {
		return fmt.Errorf("task %q: illegal status transition %s -> %s", id, target.Status, status)
	}

	now := time.Now()
	if status == task.StatusInProgress && target.StartedAt == nil {
		target.StartedAt = &now
	}
	if status == task.StatusCompleted && target.CompletedAt == nil {
		target.CompletedAt = &now
	}
	target.Status = status

	if progress >= 0 {
		if progress > 100 {
			progress = 100
		}
		target.Progress = progress
	}
	return nil
}

// Progress is the aggregate view over a task list.
type Progress struct {
	OverallProgress float64     `json:"overall_progress"`
	Status          task.Status `json:"status"`
	Total           int         `json:"total"`
	Completed       int         `json:"completed"`
	Pending         int         `json:"pending"`
	InProgress      int         `json:"in_progress"`
	Failed          int         `json:"failed"`
}

// AggregateProgress summarizes the list: overall progress is the completed
// fraction scaled to 100 (zero for an empty list); the aggregate status is
// completed only when every task is completed, in_progress when any task
// is, and pending otherwise.
func AggregateProgress(tasks []*task.Task) Progress {
	p := Progress{Status: task.StatusPending, Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case task.StatusCompleted:
			p.Completed++
		case task.StatusInProgress:
			p.InProgress++
		case task.StatusFailed:
			p.Failed++
		default:
			p.Pending++
		}
	}

	if p.Total > 0 {
		p.OverallProgress = 100 * float64(p.Completed) / float64(p.Total)
	}

	switch {
	case p.Total > 0 && p.Completed == p.Total:
		p.Status = task.StatusCompleted
	case p.InProgress > 0:
		p.Status = task.StatusInProgress
	}
	return p
}
