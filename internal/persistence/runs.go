package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CreateRun inserts a new run row. Run IDs are caller-assigned and must
// be unique.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, requirement, project_type, complexity, workspace, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Requirement, run.ProjectType, run.Complexity, run.Workspace,
		run.Status, run.StartedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status and finish time of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ? WHERE id = ?
	`, status, finishedAt.UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	run := &Run{}
	var finishedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, requirement, project_type, complexity, workspace, status, started_at, finished_at
		FROM runs
		WHERE id = ?
	`, runID).Scan(&run.ID, &run.Requirement, &run.ProjectType, &run.Complexity,
		&run.Workspace, &run.Status, &run.StartedAt, &finishedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

// SaveSnapshot appends one monitoring snapshot to the run's history.
// Snapshots are append-only.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, rec *SnapshotRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, taken_at, files_created, files_modified,
			average_quality, coverage, completion_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, runID, rec.TakenAt.UTC(), rec.FilesCreated, rec.FilesModified,
		rec.AverageQuality, rec.Coverage, rec.CompletionRate)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns a run's snapshots in chronological order.
// Returns an empty slice, not nil, when no history exists.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, runID string) ([]SnapshotRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Double sort so same-second snapshots keep insertion order.
	rows, err := s.db.QueryContext(ctx, `
		SELECT taken_at, files_created, files_modified, average_quality, coverage, completion_rate
		FROM snapshots
		WHERE run_id = ?
		ORDER BY taken_at ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	records := []SnapshotRecord{}
	for rows.Next() {
		var rec SnapshotRecord
		err := rows.Scan(&rec.TakenAt, &rec.FilesCreated, &rec.FilesModified,
			&rec.AverageQuality, &rec.Coverage, &rec.CompletionRate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}

	return records, nil
}

// SaveAdjustment appends one applied strategy change to the run's history.
func (s *SQLiteStore) SaveAdjustment(ctx context.Context, runID string, rec *AdjustmentRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	kinds, err := json.Marshal(rec.Kinds)
	if err != nil {
		return fmt.Errorf("failed to encode kinds: %w", err)
	}
	triggers, err := json.Marshal(rec.Triggers)
	if err != nil {
		return fmt.Errorf("failed to encode triggers: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO adjustments (run_id, applied_at, kinds, triggers)
		VALUES (?, ?, ?, ?)
	`, runID, rec.AppliedAt.UTC(), string(kinds), string(triggers))
	if err != nil {
		return fmt.Errorf("failed to save adjustment: %w", err)
	}
	return nil
}

// ListAdjustments returns a run's strategy changes in chronological order.
func (s *SQLiteStore) ListAdjustments(ctx context.Context, runID string) ([]AdjustmentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT applied_at, kinds, triggers
		FROM adjustments
		WHERE run_id = ?
		ORDER BY applied_at ASC, id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer rows.Close()

	records := []AdjustmentRecord{}
	for rows.Next() {
		var rec AdjustmentRecord
		var kinds, triggers string
		if err := rows.Scan(&rec.AppliedAt, &kinds, &triggers); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		if err := json.Unmarshal([]byte(kinds), &rec.Kinds); err != nil {
			return nil, fmt.Errorf("failed to decode kinds: %w", err)
		}
		if err := json.Unmarshal([]byte(triggers), &rec.Triggers); err != nil {
			return nil, fmt.Errorf("failed to decode triggers: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating adjustments: %w", err)
	}

	return records, nil
}
