package optimizer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgeflow/forgeflow/internal/monitor"
)

func TestAssessHealthySnapshot(t *testing.T) {
	snap := monitor.Snapshot{
		AverageQuality: 0.9,
		Coverage:       0.8,
		FilesCreated:   []string{"a.go", "b.go"},
		Files: []monitor.FileQuality{
			{Path: "a.go", Structured: true, Complexity: 0.1, Documentation: 0.9},
			{Path: "b.go", Structured: true, Complexity: 0.1, Documentation: 0.7},
		},
	}

	a := Assess(snap)

	assert.InDelta(t, 0.9, a.CodeQuality, 1e-9)
	assert.InDelta(t, 0.8, a.TestCoverage, 1e-9)
	assert.InDelta(t, 0.9, a.Complexity, 1e-9)
	assert.InDelta(t, 0.8, a.Documentation, 1e-9)
	// 0.9*0.3 + 0.8*0.2 + 0.9*0.2 + 0.8*0.3
	assert.InDelta(t, 0.85, a.OverallScore, 1e-9)
	assert.Empty(t, a.Issues)
	assert.Equal(t, 2, a.FileCount)
}

func TestAssessRaisesIssuesBelowThresholds(t *testing.T) {
	snap := monitor.Snapshot{
		AverageQuality: 0.4,
		Coverage:       0.2,
		Files: []monitor.FileQuality{
			{Path: "a.go", Structured: true, Complexity: 0.9, Documentation: 0.1},
		},
	}

	a := Assess(snap)

	// Every metric is below its threshold.
	assert.Len(t, a.Issues, 4)
	assert.Len(t, a.Recommendations, 4)
	assert.Less(t, a.OverallScore, 0.6)
}

func TestAssessNoStructuredFiles(t *testing.T) {
	snap := monitor.Snapshot{
		AverageQuality: 0.8,
		Coverage:       0.7,
		Files: []monitor.FileQuality{
			{Path: "app.js", Structured: false, Score: 0.8},
		},
	}

	a := Assess(snap)

	// Complexity scores neutrally when nothing was parsed.
	assert.InDelta(t, 1.0, a.Complexity, 1e-9)
	assert.InDelta(t, 0.0, a.Documentation, 1e-9)
}

func TestOptimizationTrend(t *testing.T) {
	assert.Equal(t, "insufficient_data", OptimizationTrend(nil))
	assert.Equal(t, "insufficient_data", OptimizationTrend([]float64{0.5}))
	assert.Equal(t, "improving", OptimizationTrend([]float64{0.5, 0.6}))
	assert.Equal(t, "declining", OptimizationTrend([]float64{0.6, 0.5}))
	assert.Equal(t, "stable", OptimizationTrend([]float64{0.5, 0.5}))
	// Only the last two points are compared.
	assert.Equal(t, "declining", OptimizationTrend([]float64{0.1, 0.9, 0.8}))
}
