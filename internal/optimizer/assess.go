// Package optimizer turns monitoring snapshots into quality assessments and
// strategy adjustments, and validates the finished workspace against the
// analyzed requirement. Its decision logic is a rule table over fixed
// thresholds, not a model.
package optimizer

import (
	"fmt"

	"github.com/forgeflow/forgeflow/internal/monitor"
)

// Thresholds below which a metric raises an issue.
var qualityThresholds = map[string]float64{
	"code_quality":  0.7,
	"test_coverage": 0.6,
	"documentation": 0.5,
	"complexity":    0.8,
}

// Metric weights for the overall score.
var assessmentWeights = map[string]float64{
	"code_quality":  0.3,
	"test_coverage": 0.2,
	"complexity":    0.2,
	"documentation": 0.3,
}

// Assessment is a weighted quality judgment over one snapshot.
type Assessment struct {
	OverallScore    float64  `json:"overall_score"`
	CodeQuality     float64  `json:"code_quality"`
	TestCoverage    float64  `json:"test_coverage"`
	Complexity      float64  `json:"complexity_score"` // simplicity: 1 - mean complexity
	Documentation   float64  `json:"documentation_score"`
	FileCount       int      `json:"file_count"`
	Issues          []string `json:"issues,omitempty"`
	Recommendations []string `json:"recommendations,omitempty"`
}

// Assess scores a snapshot against the fixed thresholds. Complexity and
// documentation signals come from the snapshot's structured files; a
// snapshot with no structured files scores them neutrally.
func Assess(snap monitor.Snapshot) Assessment {
	var complexitySum, docSum float64
	var structured int
	for _, f := range snap.Files {
		if !f.Structured {
			continue
		}
		complexitySum += f.Complexity
		docSum += f.Documentation
		structured++
	}

	a := Assessment{
		CodeQuality:  snap.AverageQuality,
		TestCoverage: snap.Coverage,
		Complexity:   1.0,
		FileCount:    len(snap.FilesCreated) + len(snap.FilesModified),
	}
	if structured > 0 {
		a.Complexity = 1 - complexitySum/float64(structured)
		a.Documentation = docSum / float64(structured)
	}

	a.OverallScore = a.CodeQuality*assessmentWeights["code_quality"] +
		a.TestCoverage*assessmentWeights["test_coverage"] +
		a.Complexity*assessmentWeights["complexity"] +
		a.Documentation*assessmentWeights["documentation"]

	if a.CodeQuality < qualityThresholds["code_quality"] {
		a.Issues = append(a.Issues, fmt.Sprintf("code quality is low (%.2f < %.2f)", a.CodeQuality, qualityThresholds["code_quality"]))
		a.Recommendations = append(a.Recommendations, "refactor for structure and readability")
	}
	if a.TestCoverage < qualityThresholds["test_coverage"] {
		a.Issues = append(a.Issues, fmt.Sprintf("test coverage is insufficient (%.2f < %.2f)", a.TestCoverage, qualityThresholds["test_coverage"]))
		a.Recommendations = append(a.Recommendations, "add unit and integration tests")
	}
	if a.Documentation < qualityThresholds["documentation"] {
		a.Issues = append(a.Issues, fmt.Sprintf("documentation is incomplete (%.2f < %.2f)", a.Documentation, qualityThresholds["documentation"]))
		a.Recommendations = append(a.Recommendations, "document the main functions and types")
	}
	if a.Complexity < qualityThresholds["complexity"] {
		a.Issues = append(a.Issues, fmt.Sprintf("code complexity is high (%.2f < %.2f)", a.Complexity, qualityThresholds["complexity"]))
		a.Recommendations = append(a.Recommendations, "split complex functions into smaller ones")
	}
	return a
}

// OptimizationTrend compares the last two overall scores across a run's
// optimization history. Unlike the monitor's snapshot trend, fewer than two
// points here is reported as an explicit sentinel, and the comparison has
// no dead-band.
func OptimizationTrend(scores []float64) string {
	if len(scores) < 2 {
		return "insufficient_data"
	}
	last, prev := scores[len(scores)-1], scores[len(scores)-2]
	switch {
	case last > prev:
		return "improving"
	case last < prev:
		return "declining"
	default:
		return "stable"
	}
}
