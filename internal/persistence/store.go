package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forgeflow/forgeflow/internal/task"
	_ "modernc.org/sqlite"
)

// Run is one orchestration attempt over a workspace.
type Run struct {
	ID          string
	Requirement string
	ProjectType string
	Complexity  string
	Workspace   string
	Status      string
	StartedAt   time.Time
	FinishedAt  *time.Time
}

// SnapshotRecord is one row of the monitoring history.
type SnapshotRecord struct {
	TakenAt        time.Time
	FilesCreated   int
	FilesModified  int
	AverageQuality float64
	Coverage       float64
	CompletionRate float64
}

// AdjustmentRecord is one applied strategy change.
type AdjustmentRecord struct {
	AppliedAt time.Time
	Kinds     []string
	Triggers  []string
}

// Store defines the persistence interface for runs, tasks, and the
// monitoring history.
type Store interface {
	// Run lifecycle
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, runID, status string, finishedAt time.Time) error
	GetRun(ctx context.Context, runID string) (*Run, error)

	// Task plan
	SaveTask(ctx context.Context, runID string, t *task.Task) error
	GetTask(ctx context.Context, runID, taskID string) (*task.Task, error)
	UpdateTaskStatus(ctx context.Context, runID, taskID string, status task.Status, progress int) error
	ListTasks(ctx context.Context, runID string) ([]*task.Task, error)

	// Monitoring history
	SaveSnapshot(ctx context.Context, runID string, rec *SnapshotRecord) error
	ListSnapshots(ctx context.Context, runID string) ([]SnapshotRecord, error)
	SaveAdjustment(ctx context.Context, runID string, rec *AdjustmentRecord) error
	ListAdjustments(ctx context.Context, runID string) ([]AdjustmentRecord, error)

	// Lifecycle
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed store at the given path.
// Creates parent directories if needed. Enables WAL mode, foreign keys,
// and a busy timeout.
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create parent directories: %w", err)
	}

	// modernc.org/sqlite does not support _foreign_keys in the connection
	// string; that pragma is applied separately below.
	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return initStore(ctx, db)
}

// NewMemoryStore creates an in-memory SQLite store for testing.
// Uses a shared cache so multiple connections see the same database.
func NewMemoryStore(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", "file::memory:?mode=memory&cache=shared")
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	return initStore(ctx, db)
}

func initStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Two connections: one for primary queries, one for the dependency
	// subqueries inside ListTasks.
	db.SetMaxOpenConns(2)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
