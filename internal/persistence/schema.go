package persistence

import (
	"context"
)

// initSchema creates all required tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		requirement TEXT NOT NULL,
		project_type TEXT NOT NULL,
		complexity TEXT NOT NULL,
		workspace TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT NOT NULL,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		description TEXT,
		type TEXT,
		priority INTEGER NOT NULL,
		estimated_hours INTEGER NOT NULL,
		subtasks TEXT,
		status TEXT NOT NULL,
		progress INTEGER NOT NULL,
		execution_order INTEGER NOT NULL,
		adjusted INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (run_id, id),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS task_dependencies (
		run_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		depends_on_id TEXT NOT NULL,
		PRIMARY KEY (run_id, task_id, depends_on_id),
		FOREIGN KEY (run_id, task_id) REFERENCES tasks(run_id, id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_task_dependencies_task
		ON task_dependencies(run_id, task_id);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		taken_at DATETIME NOT NULL,
		files_created INTEGER NOT NULL,
		files_modified INTEGER NOT NULL,
		average_quality REAL NOT NULL,
		coverage REAL NOT NULL,
		completion_rate REAL NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_run_taken
		ON snapshots(run_id, taken_at);

	CREATE TABLE IF NOT EXISTS adjustments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		applied_at DATETIME NOT NULL,
		kinds TEXT NOT NULL,
		triggers TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}
