package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/forgeflow/forgeflow/internal/task"
)

// SaveTask saves or updates a task within a run, including its
// dependency edges. Uses ON CONFLICT to make saves idempotent.
func (s *SQLiteStore) SaveTask(ctx context.Context, runID string, t *task.Task) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	subtasks, err := json.Marshal(t.Subtasks)
	if err != nil {
		return fmt.Errorf("failed to encode subtasks: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, run_id, name, description, type, priority, estimated_hours,
			subtasks, status, progress, execution_order, adjusted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(run_id, id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			type = excluded.type,
			priority = excluded.priority,
			estimated_hours = excluded.estimated_hours,
			subtasks = excluded.subtasks,
			status = excluded.status,
			progress = excluded.progress,
			execution_order = excluded.execution_order,
			adjusted = excluded.adjusted,
			updated_at = CURRENT_TIMESTAMP
	`, t.ID, runID, t.Name, t.Description, t.Type, t.Priority, t.EstimatedHours,
		string(subtasks), string(t.Status), t.Progress, t.ExecutionOrder, t.Adjusted)
	if err != nil {
		return fmt.Errorf("failed to upsert task: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`DELETE FROM task_dependencies WHERE run_id = ? AND task_id = ?`, runID, t.ID)
	if err != nil {
		return fmt.Errorf("failed to delete old dependencies: %w", err)
	}

	for _, depID := range t.Dependencies {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO task_dependencies (run_id, task_id, depends_on_id)
			VALUES (?, ?, ?)
		`, runID, t.ID, depID)
		if err != nil {
			return fmt.Errorf("failed to insert dependency %s -> %s: %w", t.ID, depID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetTask retrieves a task by ID within a run, including its dependencies.
func (s *SQLiteStore) GetTask(ctx context.Context, runID, taskID string) (*task.Task, error) {
	t := &task.Task{}
	var subtasks string
	var status string
	var adjusted int

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, type, priority, estimated_hours,
			subtasks, status, progress, execution_order, adjusted
		FROM tasks
		WHERE run_id = ? AND id = ?
	`, runID, taskID).Scan(&t.ID, &t.Name, &t.Description, &t.Type, &t.Priority,
		&t.EstimatedHours, &subtasks, &status, &t.Progress, &t.ExecutionOrder, &adjusted)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %s", taskID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task: %w", err)
	}

	t.Status = task.Status(status)
	t.Adjusted = adjusted != 0
	if subtasks != "" {
		if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
			return nil, fmt.Errorf("failed to decode subtasks: %w", err)
		}
	}

	deps, err := s.taskDependencies(ctx, runID, taskID)
	if err != nil {
		return nil, err
	}
	t.Dependencies = deps

	return t, nil
}

// UpdateTaskStatus updates the status and progress of a task.
func (s *SQLiteStore) UpdateTaskStatus(ctx context.Context, runID, taskID string, status task.Status, progress int) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, progress = ?, updated_at = CURRENT_TIMESTAMP
		WHERE run_id = ? AND id = ?
	`, string(status), progress, runID, taskID)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("task not found: %s", taskID)
	}

	return nil
}

// ListTasks returns all tasks of a run in execution order, with their
// dependencies.
func (s *SQLiteStore) ListTasks(ctx context.Context, runID string) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, type, priority, estimated_hours,
			subtasks, status, progress, execution_order, adjusted
		FROM tasks
		WHERE run_id = ?
		ORDER BY execution_order
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*task.Task
	for rows.Next() {
		t := &task.Task{}
		var subtasks string
		var status string
		var adjusted int

		err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Type, &t.Priority,
			&t.EstimatedHours, &subtasks, &status, &t.Progress, &t.ExecutionOrder, &adjusted)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		t.Status = task.Status(status)
		t.Adjusted = adjusted != 0
		if subtasks != "" {
			if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
				return nil, fmt.Errorf("failed to decode subtasks: %w", err)
			}
		}

		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	for _, t := range tasks {
		deps, err := s.taskDependencies(ctx, runID, t.ID)
		if err != nil {
			return nil, err
		}
		t.Dependencies = deps
	}

	return tasks, nil
}

func (s *SQLiteStore) taskDependencies(ctx context.Context, runID, taskID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT depends_on_id
		FROM task_dependencies
		WHERE run_id = ? AND task_id = ?
		ORDER BY depends_on_id
	`, runID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var deps []string
	for rows.Next() {
		var depID string
		if err := rows.Scan(&depID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		deps = append(deps, depID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dependencies: %w", err)
	}

	return deps, nil
}
