package editor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forgeflow/forgeflow/internal/task"
)

// StatusFile is the per-task JSON record in the queue directory. It is
// written once at dispatch and overwritten externally (by a human or editor
// automation) to signal progress. Polled, not pushed.
type StatusFile struct {
	TaskID            string   `json:"task_id"`
	Status            string   `json:"status"`
	CreatedAt         string   `json:"created_at"`
	Progress          int      `json:"progress"`
	CompletedSubtasks []string `json:"completed_subtasks"`
}

// QueueDir returns the task-queue directory inside a workspace.
func QueueDir(workspace string) string {
	return filepath.Join(workspace, ".forgeflow", "queue")
}

func statusPath(workspace, taskID string) string {
	return filepath.Join(QueueDir(workspace), taskID+".json")
}

func guidancePath(workspace, taskID string) string {
	return filepath.Join(QueueDir(workspace), taskID+".md")
}

// WriteDispatch places a task on the filesystem queue: the guidance prompt
// as Markdown and the initial status record alongside it.
func WriteDispatch(workspace string, t *task.Task, guidance string, now time.Time) error {
	dir := QueueDir(workspace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create queue directory: %w", err)
	}

	content := fmt.Sprintf("# Task: %s\n\n%s\n", t.Name, guidance)
	if err := os.WriteFile(guidancePath(workspace, t.ID), []byte(content), 0o644); err != nil {
		return fmt.Errorf("write guidance file: %w", err)
	}

	status := StatusFile{
		TaskID:            t.ID,
		Status:            string(task.StatusInProgress),
		CreatedAt:         now.UTC().Format(time.RFC3339),
		Progress:          t.Progress,
		CompletedSubtasks: []string{},
	}
	return WriteStatus(workspace, status)
}

// AppendGuidance appends a prompt section to a task's guidance file. The
// editor side re-reads the file, so staged follow-ups accumulate below the
// initial prompt.
func AppendGuidance(workspace, taskID, text string) error {
	f, err := os.OpenFile(guidancePath(workspace, taskID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open guidance file: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "\n---\n\n%s\n", text); err != nil {
		return fmt.Errorf("append guidance: %w", err)
	}
	return nil
}

// WriteStatus writes a status record, replacing any existing one.
func WriteStatus(workspace string, status StatusFile) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("encode status file: %w", err)
	}
	if err := os.WriteFile(statusPath(workspace, status.TaskID), data, 0o644); err != nil {
		return fmt.Errorf("write status file: %w", err)
	}
	return nil
}

// ReadStatus reads the current status record for a task. A missing file is
// an error the caller treats as "no signal yet".
func ReadStatus(workspace, taskID string) (StatusFile, error) {
	data, err := os.ReadFile(statusPath(workspace, taskID))
	if err != nil {
		return StatusFile{}, fmt.Errorf("read status file: %w", err)
	}
	var status StatusFile
	if err := json.Unmarshal(data, &status); err != nil {
		return StatusFile{}, fmt.Errorf("parse status file for %s: %w", taskID, err)
	}
	return status, nil
}
