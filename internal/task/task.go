// Package task defines the shared data model for schedulable development
// work: tasks, requirements, and the closed status state machine.
package task

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status is the closed lifecycle state of a task. Transitions move forward
// only: pending -> in_progress -> completed|failed. A task never re-enters
// pending once it has reached a terminal state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is an end state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal forward
// transition. Re-asserting the current status is allowed (idempotent
// updates). Completion always passes through in_progress; a pending task
// can only start or fail.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// Complexity is the coarse requirement complexity estimate produced by
// requirement analysis. It scales task time estimates at finalize time.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Multiplier returns the estimated-hours scale factor for the complexity.
// Unknown values behave as medium.
func (c Complexity) Multiplier() float64 {
	switch c {
	case ComplexityLow:
		return 0.8
	case ComplexityHigh:
		return 1.3
	default:
		return 1.0
	}
}

// Task is the unit of schedulable work.
//
// Progress and Status are deliberately independent: a task may be marked
// completed with Progress below 100 (and vice versa). Scheduling decisions
// consult Status only; Progress is a display-level signal updated out of
// band by the filesystem status channel.
type Task struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`

	// Type is an open tag ("setup", "frontend", "backend", "database",
	// "feature", "testing", "deployment", "quality", ...) used for display
	// and light heuristics only.
	Type string `json:"type,omitempty"`

	Priority       int      `json:"priority"`
	EstimatedHours int      `json:"estimated_hours" validate:"gte=0"`
	Dependencies   []string `json:"dependencies,omitempty"`
	Subtasks       []string `json:"subtasks,omitempty"`

	Status   Status `json:"status" validate:"omitempty,oneof=pending in_progress completed failed"`
	Progress int    `json:"progress" validate:"gte=0,lte=100"`

	// ExecutionOrder is the 1-based position in the finalized topological
	// order. Zero until the plan is finalized.
	ExecutionOrder int `json:"execution_order,omitempty"`

	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	EstimatedStart *time.Time `json:"estimated_start,omitempty"`
	EstimatedEnd   *time.Time `json:"estimated_end,omitempty"`

	// Adjusted marks tasks touched by a strategy adjustment.
	Adjusted bool `json:"adjusted,omitempty"`
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Dependencies != nil {
		cp.Dependencies = append([]string(nil), t.Dependencies...)
	}
	if t.Subtasks != nil {
		cp.Subtasks = append([]string(nil), t.Subtasks...)
	}
	copyTime := func(p *time.Time) *time.Time {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	cp.StartedAt = copyTime(t.StartedAt)
	cp.CompletedAt = copyTime(t.CompletedAt)
	cp.EstimatedStart = copyTime(t.EstimatedStart)
	cp.EstimatedEnd = copyTime(t.EstimatedEnd)
	return &cp
}

// CloneAll deep-copies a task list.
func CloneAll(tasks []*Task) []*Task {
	out := make([]*Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// Feature is one requested capability extracted from the free-text
// requirement by the analysis collaborator.
type Feature struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Priority    int    `json:"priority,omitempty" validate:"gte=0,lte=5"`
}

// Requirement is the structured output of requirement analysis.
type Requirement struct {
	Original       string              `json:"original_requirement,omitempty"`
	ProjectType    string              `json:"project_type" validate:"required"`
	Features       []Feature           `json:"features" validate:"dive"`
	TechStack      map[string][]string `json:"tech_stack,omitempty"`
	Complexity     Complexity          `json:"complexity" validate:"omitempty,oneof=low medium high"`
	EstimatedHours int                 `json:"estimated_hours,omitempty" validate:"gte=0"`
}

var validate = validator.New()

// Validate checks struct-level invariants via validation tags. Graph-level
// invariants (referential integrity, acyclicity) are the scheduler's job.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) {
			msgs := make([]string, 0, len(errs))
			for _, e := range errs {
				msgs = append(msgs, fmt.Sprintf("field %q failed rule %q", e.StructNamespace(), e.Tag()))
			}
			return fmt.Errorf("%s", strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}

// Slug converts a free-text feature name into a stable task id fragment.
func Slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('_')
		}
	}
	s := strings.Trim(b.String(), "_")
	if s == "" {
		s = "feature"
	}
	return s
}
