package planner

import (
	"testing"
	"time"

	"github.com/forgeflow/forgeflow/internal/scheduler"
	"github.com/forgeflow/forgeflow/internal/task"
)

func taskByID(tasks []*task.Task, id string) *task.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func TestPlanWebApp(t *testing.T) {
	req := &task.Requirement{
		ProjectType: "web_app",
		Complexity:  task.ComplexityMedium,
		Features: []task.Feature{
			{Name: "User login", Priority: 4},
			{Name: "Dashboard"},
		},
	}

	tasks := Plan(req, time.Now())

	// 7 template tasks + 2 feature tasks.
	if len(tasks) != 9 {
		t.Fatalf("got %d tasks, want 9", len(tasks))
	}

	if result := scheduler.Validate(tasks); !result.Valid {
		t.Fatalf("plan does not validate: %+v", result)
	}

	login := taskByID(tasks, "feature_user_login")
	if login == nil {
		t.Fatal("feature_user_login missing")
	}
	wantDeps := map[string]bool{"database_setup": true, "frontend_setup": true}
	if len(login.Dependencies) != 2 {
		t.Fatalf("feature deps = %v, want database_setup and frontend_setup", login.Dependencies)
	}
	for _, dep := range login.Dependencies {
		if !wantDeps[dep] {
			t.Errorf("unexpected feature dependency %q", dep)
		}
	}
	if login.Priority != 4 {
		t.Errorf("feature priority = %d, want 4", login.Priority)
	}

	core := taskByID(tasks, "core_features")
	if core == nil {
		t.Fatal("core_features missing")
	}
	if len(core.Subtasks) != 2 || core.Subtasks[0] != "User login" || core.Subtasks[1] != "Dashboard" {
		t.Errorf("core_features subtasks = %v, want feature names", core.Subtasks)
	}
	if core.EstimatedHours != 2*featureBaseHours {
		t.Errorf("core_features hours = %d, want %d", core.EstimatedHours, 2*featureBaseHours)
	}
}

func TestPlanExecutionOrderIsPermutation(t *testing.T) {
	req := &task.Requirement{
		ProjectType: "web_app",
		Features:    []task.Feature{{Name: "Search"}},
	}
	tasks := Plan(req, time.Now())

	seen := make(map[int]bool)
	for _, tk := range tasks {
		if tk.ExecutionOrder < 1 || tk.ExecutionOrder > len(tasks) {
			t.Errorf("task %q execution order %d out of range 1..%d", tk.ID, tk.ExecutionOrder, len(tasks))
		}
		if seen[tk.ExecutionOrder] {
			t.Errorf("duplicate execution order %d", tk.ExecutionOrder)
		}
		seen[tk.ExecutionOrder] = true
	}

	position := make(map[string]int)
	for _, tk := range tasks {
		position[tk.ID] = tk.ExecutionOrder
	}
	for _, tk := range tasks {
		for _, dep := range tk.Dependencies {
			if position[dep] >= position[tk.ID] {
				t.Errorf("dependency %q ordered after dependent %q", dep, tk.ID)
			}
		}
	}
}

func TestPlanComplexityMultiplier(t *testing.T) {
	tests := []struct {
		complexity task.Complexity
		wantHours  int // project_setup starts at 2h
	}{
		{task.ComplexityLow, 1},    // 2 * 0.8 = 1.6, floored
		{task.ComplexityMedium, 2}, // 2 * 1.0
		{task.ComplexityHigh, 2},   // 2 * 1.3 = 2.6, floored
	}
	for _, tt := range tests {
		t.Run(string(tt.complexity), func(t *testing.T) {
			req := &task.Requirement{ProjectType: "web_app", Complexity: tt.complexity}
			tasks := Plan(req, time.Now())
			setup := taskByID(tasks, "project_setup")
			if setup == nil {
				t.Fatal("project_setup missing")
			}
			if setup.EstimatedHours != tt.wantHours {
				t.Errorf("hours = %d, want %d", setup.EstimatedHours, tt.wantHours)
			}
		})
	}
}

func TestPlanLinearSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	req := &task.Requirement{ProjectType: "data_analysis", Complexity: task.ComplexityMedium}
	tasks := Plan(req, now)

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	first, second := tasks[0], tasks[1]
	if !first.EstimatedStart.Equal(now) {
		t.Errorf("first task starts %v, want %v", first.EstimatedStart, now)
	}
	// Strictly chained: the second task starts when the first ends, even
	// though its graph dependency might allow overlap under more workers.
	if !second.EstimatedStart.Equal(*first.EstimatedEnd) {
		t.Errorf("second task starts %v, want first end %v", second.EstimatedStart, first.EstimatedEnd)
	}
}

func TestPlanFiltersAbsentTemplateAnchors(t *testing.T) {
	// mobile_app has neither database_setup nor frontend_setup; a feature
	// task must come out with no dangling defaults.
	req := &task.Requirement{
		ProjectType: "mobile_app",
		Features:    []task.Feature{{Name: "Push notifications"}},
	}
	tasks := Plan(req, time.Now())

	feature := taskByID(tasks, "feature_push_notifications")
	if feature == nil {
		t.Fatal("feature task missing")
	}
	if len(feature.Dependencies) != 0 {
		t.Errorf("feature deps = %v, want none", feature.Dependencies)
	}
	if result := scheduler.Validate(tasks); !result.Valid {
		t.Errorf("plan does not validate: %+v", result)
	}
}

func TestPlanUnknownProjectTypeUsesWebApp(t *testing.T) {
	req := &task.Requirement{ProjectType: "quantum_compiler"}
	tasks := Plan(req, time.Now())
	if taskByID(tasks, "frontend_setup") == nil {
		t.Error("unknown project type should fall back to the web_app template")
	}
}

func TestPlanNilRequirementFallsBack(t *testing.T) {
	tasks := Plan(nil, time.Now())
	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want minimal 2-task fallback", len(tasks))
	}
	if taskByID(tasks, "project_setup") == nil || taskByID(tasks, "core_development") == nil {
		t.Error("fallback plan should contain project_setup and core_development")
	}
	core := taskByID(tasks, "core_development")
	if len(core.Dependencies) != 1 || core.Dependencies[0] != "project_setup" {
		t.Errorf("fallback dependency edge = %v, want [project_setup]", core.Dependencies)
	}
	for _, tk := range tasks {
		if tk.ExecutionOrder == 0 {
			t.Errorf("fallback task %q not finalized", tk.ID)
		}
	}
}

func TestPlanDuplicateFeatureNames(t *testing.T) {
	req := &task.Requirement{
		ProjectType: "web_app",
		Features:    []task.Feature{{Name: "Search"}, {Name: "Search"}},
	}
	tasks := Plan(req, time.Now())

	ids := make(map[string]int)
	for _, tk := range tasks {
		ids[tk.ID]++
		if ids[tk.ID] > 1 {
			t.Errorf("duplicate task id %q", tk.ID)
		}
	}
}
