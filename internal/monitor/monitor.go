// Package monitor observes a workspace directory over time and keeps a
// rolling, bounded view of its state: files changed since monitoring began,
// a heuristic per-file quality score, a test-coverage proxy, and a single
// completion-rate estimate derived from all three.
//
// Every score here is a heuristic proxy, not a ground-truth measure, and
// must be read with that precision in mind.
package monitor

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Snapshot is one observation of the workspace.
type Snapshot struct {
	Time           time.Time     `json:"time"`
	FilesCreated   []string      `json:"files_created"`
	FilesModified  []string      `json:"files_modified"`
	AverageQuality float64       `json:"average_quality"`
	Coverage       float64       `json:"coverage"`
	CompletionRate float64       `json:"completion_rate"`
	Files          []FileQuality `json:"files,omitempty"`
	Errors         []FileError   `json:"errors,omitempty"`
}

// FileError records a file excluded from scoring.
type FileError struct {
	Path string `json:"path"`
	Err  string `json:"error"`
}

// Trend is the three-state quality direction signal.
type Trend string

const (
	TrendImproving Trend = "improving"
	TrendDeclining Trend = "declining"
	TrendStable    Trend = "stable"
)

// trendDeadBand is the minimum quality delta that counts as movement.
const trendDeadBand = 0.1

// History is capped at historyMax entries; exceeding it drops the oldest
// half so long-running monitoring stays memory-bounded.
const (
	historyMax  = 100
	historyKeep = 50
)

var sourceExtensions = map[string]bool{
	".go": true, ".py": true, ".js": true, ".jsx": true, ".ts": true,
	".tsx": true, ".java": true, ".rb": true, ".rs": true, ".c": true,
	".cc": true, ".cpp": true, ".h": true, ".css": true, ".html": true,
	".sql": true, ".sh": true,
}

// Monitor watches one workspace. Safe for concurrent use: the background
// monitoring loop and the optimization loop both read from it.
type Monitor struct {
	workspace string

	mu        sync.Mutex
	startedAt time.Time
	baseline  map[string]time.Time
	history   []Snapshot
}

// New creates a monitor and records the workspace baseline, the state
// against which later scans count created and modified files.
func New(workspace string) (*Monitor, error) {
	m := &Monitor{workspace: workspace}
	baseline, err := m.scanModTimes()
	if err != nil {
		return nil, err
	}
	m.baseline = baseline
	m.startedAt = time.Now()
	return m, nil
}

// Workspace returns the observed directory.
func (m *Monitor) Workspace() string { return m.workspace }

func (m *Monitor) scanModTimes() (map[string]time.Time, error) {
	modTimes := make(map[string]time.Time)
	err := filepath.WalkDir(m.workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if d.IsDir() {
			if skipDir(d.Name()) && path != m.workspace {
				return filepath.SkipDir
			}
			return nil
		}
		if !sourceExtensions[filepath.Ext(path)] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		modTimes[path] = info.ModTime()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return modTimes, nil
}

func skipDir(name string) bool {
	switch name {
	case ".forgeflow", ".git", "node_modules", "vendor", "__pycache__":
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}

// Scan walks the workspace once and appends a snapshot: which source files
// appeared or changed since the baseline, their average quality, a coverage
// proxy, and the combined completion-rate estimate.
func (m *Monitor) Scan(now time.Time) (Snapshot, error) {
	current, err := m.scanModTimes()
	if err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var created, modified []string
	for path, mod := range current {
		base, existed := m.baseline[path]
		switch {
		case !existed:
			created = append(created, path)
		case mod.After(base):
			modified = append(modified, path)
		}
	}
	sort.Strings(created)
	sort.Strings(modified)

	snap := Snapshot{
		Time:          now,
		FilesCreated:  created,
		FilesModified: modified,
	}

	var qualitySum float64
	var scored int
	for _, path := range append(append([]string(nil), created...), modified...) {
		fq, err := AnalyzeFile(path)
		if err != nil {
			// Excluded from both numerator and denominator.
			snap.Errors = append(snap.Errors, FileError{Path: path, Err: err.Error()})
			continue
		}
		snap.Files = append(snap.Files, fq)
		qualitySum += fq.Score
		scored++
	}
	if scored > 0 {
		snap.AverageQuality = qualitySum / float64(scored)
	}

	snap.Coverage = coverageProxy(current)
	snap.CompletionRate = CompletionRate(len(created)+len(modified), now.Sub(m.startedAt), snap.AverageQuality)

	m.history = append(m.history, snap)
	if len(m.history) > historyMax {
		m.history = append([]Snapshot(nil), m.history[len(m.history)-historyKeep:]...)
	}
	return snap, nil
}

// CompletionRate combines three independently-capped signals into a [0,1]
// estimate: file-change progress min(0.1 x changed, 0.7), time progress
// capped at 0.3 after one hour, and quality contributing up to 0.2.
func CompletionRate(filesChanged int, elapsed time.Duration, averageQuality float64) float64 {
	fileProgress := 0.1 * float64(filesChanged)
	if fileProgress > 0.7 {
		fileProgress = 0.7
	}
	timeProgress := elapsed.Hours()
	if timeProgress > 0.3 {
		timeProgress = 0.3
	}
	qualityProgress := averageQuality * 0.2
	return clamp01(fileProgress + timeProgress + qualityProgress)
}

// coverageProxy estimates test coverage as the ratio of test files to
// non-test source files, clamped to [0,1]. Crude, and labeled as such.
func coverageProxy(files map[string]time.Time) float64 {
	var tests, sources int
	for path := range files {
		name := filepath.Base(path)
		if strings.HasSuffix(name, "_test.go") || strings.HasPrefix(name, "test_") ||
			strings.Contains(name, ".test.") || strings.Contains(name, ".spec.") {
			tests++
		} else {
			sources++
		}
	}
	if sources == 0 {
		return 0
	}
	return clamp01(float64(tests) / float64(sources))
}

// QualityTrend compares the two most recent snapshots with a dead-band:
// deltas within 0.1 read as stable. Fewer than two snapshots is stable by
// definition.
func (m *Monitor) QualityTrend() Trend {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) < 2 {
		return TrendStable
	}
	prev := m.history[len(m.history)-2].AverageQuality
	last := m.history[len(m.history)-1].AverageQuality
	switch {
	case last > prev+trendDeadBand:
		return TrendImproving
	case last < prev-trendDeadBand:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// Latest returns the most recent snapshot, if any.
func (m *Monitor) Latest() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.history) == 0 {
		return Snapshot{}, false
	}
	return m.history[len(m.history)-1], true
}

// History returns a copy of the retained snapshots.
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Snapshot(nil), m.history...)
}
