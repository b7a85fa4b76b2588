// Package events carries run lifecycle notifications between the
// orchestrator, the background loops, and the CLI's progress printer.
package events

import (
	"time"
)

// Event is the common surface of everything published on the bus.
type Event interface {
	EventType() string
	TaskID() string
}

// Topics.
const (
	TopicTask     = "task"
	TopicMonitor  = "monitor"
	TopicStrategy = "strategy"
)

// Event types.
const (
	EventTypeTaskDispatched = "task.dispatched"
	EventTypeTaskCompleted  = "task.completed"
	EventTypeTaskFailed     = "task.failed"
	EventTypeSnapshot       = "monitor.snapshot"
	EventTypeAdjustment     = "strategy.adjustment"
	EventTypeRunProgress    = "run.progress"
)

// TaskDispatchedEvent is published when a task is handed to the editor.
type TaskDispatchedEvent struct {
	ID        string
	Name      string
	Type      string
	Timestamp time.Time
}

func (e TaskDispatchedEvent) EventType() string { return EventTypeTaskDispatched }
func (e TaskDispatchedEvent) TaskID() string    { return e.ID }

// TaskCompletedEvent is published when a task reaches completed.
type TaskCompletedEvent struct {
	ID        string
	Name      string
	Duration  time.Duration
	Timestamp time.Time
}

func (e TaskCompletedEvent) EventType() string { return EventTypeTaskCompleted }
func (e TaskCompletedEvent) TaskID() string    { return e.ID }

// TaskFailedEvent is published when a task reaches failed.
type TaskFailedEvent struct {
	ID        string
	Name      string
	Err       error
	Timestamp time.Time
}

func (e TaskFailedEvent) EventType() string { return EventTypeTaskFailed }
func (e TaskFailedEvent) TaskID() string    { return e.ID }

// SnapshotEvent is published after each monitoring scan.
type SnapshotEvent struct {
	FilesChanged   int
	AverageQuality float64
	CompletionRate float64
	Trend          string
	Timestamp      time.Time
}

func (e SnapshotEvent) EventType() string { return EventTypeSnapshot }
func (e SnapshotEvent) TaskID() string    { return "" }

// AdjustmentEvent is published when the optimization loop decides on a
// strategy change.
type AdjustmentEvent struct {
	Kinds     []string
	Triggers  []string
	Timestamp time.Time
}

func (e AdjustmentEvent) EventType() string { return EventTypeAdjustment }
func (e AdjustmentEvent) TaskID() string    { return "" }

// RunProgressEvent summarizes overall task state after each transition.
type RunProgressEvent struct {
	Total      int
	Completed  int
	InProgress int
	Failed     int
	Pending    int
	Timestamp  time.Time
}

func (e RunProgressEvent) EventType() string { return EventTypeRunProgress }
func (e RunProgressEvent) TaskID() string    { return "" }
