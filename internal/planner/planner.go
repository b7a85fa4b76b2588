// Package planner expands a structured requirement into a validated,
// ordered, time-estimated task list: template skeleton plus one generated
// task per requirement feature.
package planner

import (
	"fmt"
	"log"
	"time"

	"github.com/forgeflow/forgeflow/internal/scheduler"
	"github.com/forgeflow/forgeflow/internal/task"
)

// featureBaseHours is the unscaled estimate for a generated feature task.
const featureBaseHours = 4

// defaultFeatureDeps are the template tasks a generated feature task hangs
// off, when they exist in the chosen template.
var defaultFeatureDeps = []string{"database_setup", "frontend_setup"}

// Plan builds the full task list for a requirement: template tasks for the
// project type, one generated task per feature, repaired, topologically
// sorted, and finalized with time estimates.
//
// Plan never fails outright: if generation or ordering goes wrong it falls
// back to a minimal two-task plan, privileging forward progress over a
// precise breakdown.
func Plan(req *task.Requirement, now time.Time) []*task.Task {
	tasks, err := build(req)
	if err != nil {
		log.Printf("WARNING: task generation failed, using fallback plan: %v", err)
		return finalize(Fallback(), req, now)
	}

	if dropped := scheduler.Repair(tasks); dropped > 0 {
		log.Printf("WARNING: dropped %d invalid dependency edges during plan repair", dropped)
	}

	ordered, err := scheduler.TopoSort(tasks)
	if err != nil {
		log.Printf("WARNING: ordering failed after repair, using fallback plan: %v", err)
		return finalize(Fallback(), req, now)
	}

	return finalize(ordered, req, now)
}

// build merges the project-type template with generated feature tasks.
func build(req *task.Requirement) ([]*task.Task, error) {
	if req == nil {
		return nil, fmt.Errorf("nil requirement")
	}

	template := templateFor(req.ProjectType)
	templateIDs := make(map[string]bool, len(template))
	tasks := make([]*task.Task, 0, len(template)+len(req.Features))
	for _, tt := range template {
		templateIDs[tt.ID] = true
		tasks = append(tasks, tt.instantiate())
	}

	// Feature tasks depend on whichever default anchors the template
	// actually has; anchors absent from this template are filtered rather
	// than left dangling.
	featureDeps := []string{}
	for _, dep := range defaultFeatureDeps {
		if templateIDs[dep] {
			featureDeps = append(featureDeps, dep)
		}
	}

	featureNames := []string{}
	featureHours := 0
	seen := make(map[string]bool)
	for _, f := range req.Features {
		id := "feature_" + task.Slug(f.Name)
		for seen[id] {
			id += "_x"
		}
		seen[id] = true

		priority := f.Priority
		if priority <= 0 {
			priority = 3
		}

		tasks = append(tasks, &task.Task{
			ID:             id,
			Name:           f.Name,
			Description:    f.Description,
			Type:           "feature",
			Priority:       priority,
			EstimatedHours: featureBaseHours,
			Dependencies:   append([]string(nil), featureDeps...),
			Status:         task.StatusPending,
		})
		featureNames = append(featureNames, f.Name)
		featureHours += featureBaseHours
	}

	// The core_features template task, when present, becomes the rollup of
	// the generated features: their names as its subtasks, their summed
	// hours as its estimate. Keeps the headline task count meaningful while
	// the granular tasks hold their own spots in the order.
	if len(featureNames) > 0 {
		for _, t := range tasks {
			if t.ID == "core_features" {
				t.Subtasks = append([]string(nil), featureNames...)
				t.EstimatedHours = featureHours
				break
			}
		}
	}

	return tasks, nil
}

// Fallback returns the minimal valid plan used when requirement-driven
// generation fails: a setup task and a core development task with a single
// explicit dependency edge.
func Fallback() []*task.Task {
	return []*task.Task{
		{
			ID:             "project_setup",
			Name:           "Project setup",
			Description:    "Create the base project structure",
			Type:           "setup",
			Priority:       1,
			EstimatedHours: 2,
			Status:         task.StatusPending,
		},
		{
			ID:             "core_development",
			Name:           "Core development",
			Description:    "Implement the requested functionality",
			Type:           "feature",
			Priority:       5,
			EstimatedHours: 8,
			Dependencies:   []string{"project_setup"},
			Status:         task.StatusPending,
		},
	}
}

// finalize applies the complexity multiplier to every estimate, assigns
// 1-based execution order, and chains estimated start/end times linearly:
// each task starts when its predecessor in the linear schedule ends. This
// models the single-worker execution the orchestrator actually performs,
// not a critical path over the graph.
func finalize(ordered []*task.Task, req *task.Requirement, now time.Time) []*task.Task {
	multiplier := task.ComplexityMedium.Multiplier()
	if req != nil {
		multiplier = req.Complexity.Multiplier()
	}

	cursor := now
	for i, t := range ordered {
		t.EstimatedHours = int(float64(t.EstimatedHours) * multiplier)
		t.ExecutionOrder = i + 1

		start := cursor
		end := start.Add(time.Duration(t.EstimatedHours) * time.Hour)
		t.EstimatedStart = &start
		t.EstimatedEnd = &end
		cursor = end
	}
	return ordered
}
