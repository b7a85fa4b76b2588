package optimizer

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/forgeflow/forgeflow/internal/monitor"
	"github.com/forgeflow/forgeflow/internal/task"
)

// Check weights for the overall validation score.
var validationWeights = map[string]float64{
	"structure":     0.2,
	"quality":       0.3,
	"functionality": 0.4,
	"documentation": 0.1,
}

// ValidationReport is the final project assessment in the run report.
type ValidationReport struct {
	Structure     float64  `json:"structure_score"`
	Quality       float64  `json:"quality_score"`
	Functionality float64  `json:"functionality_score"`
	Documentation float64  `json:"documentation_score"`
	Overall       float64  `json:"overall_score"`
	Status        string   `json:"status"` // passed, warning, failed
	Issues        []string `json:"issues,omitempty"`
}

// expectedStructure lists the files and directories a finished project of
// each type should carry.
var expectedStructure = map[string]struct {
	files []string
	dirs  []string
}{
	"web_app":       {files: []string{"package.json", "README.md"}, dirs: []string{"src", "public"}},
	"mobile_app":    {files: []string{"package.json", "README.md"}, dirs: []string{"src", "assets"}},
	"data_analysis": {files: []string{"requirements.txt", "README.md"}, dirs: []string{"src", "data"}},
}

// ValidateProject runs the four weighted checks over a finished workspace:
// expected structure 0.2, code quality 0.3, functionality 0.4, and
// documentation 0.1. Overall status is passed at or above 0.8, warning at
// or above 0.6, failed below.
func ValidateProject(workspace string, req *task.Requirement, tasks []*task.Task, snap monitor.Snapshot) ValidationReport {
	report := ValidationReport{
		Quality: snap.AverageQuality,
	}

	var structureIssues []string
	report.Structure, structureIssues = structureScore(workspace, projectType(req))
	report.Issues = append(report.Issues, structureIssues...)

	var functionalityIssues []string
	report.Functionality, functionalityIssues = functionalityScore(workspace, req, tasks)
	report.Issues = append(report.Issues, functionalityIssues...)

	report.Documentation = documentationScore(workspace)

	report.Overall = report.Structure*validationWeights["structure"] +
		report.Quality*validationWeights["quality"] +
		report.Functionality*validationWeights["functionality"] +
		report.Documentation*validationWeights["documentation"]

	switch {
	case report.Overall >= 0.8:
		report.Status = "passed"
	case report.Overall >= 0.6:
		report.Status = "warning"
	default:
		report.Status = "failed"
	}
	return report
}

func projectType(req *task.Requirement) string {
	if req == nil || req.ProjectType == "" {
		return "web_app"
	}
	return req.ProjectType
}

// structureScore is the fraction of expected files and directories present.
func structureScore(workspace, project string) (float64, []string) {
	expected, ok := expectedStructure[project]
	if !ok {
		expected = expectedStructure["web_app"]
	}

	var present int
	var issues []string
	total := len(expected.files) + len(expected.dirs)
	for _, f := range expected.files {
		if info, err := os.Stat(filepath.Join(workspace, f)); err == nil && !info.IsDir() {
			present++
		} else {
			issues = append(issues, fmt.Sprintf("missing file: %s", f))
		}
	}
	for _, d := range expected.dirs {
		if info, err := os.Stat(filepath.Join(workspace, d)); err == nil && info.IsDir() {
			present++
		} else {
			issues = append(issues, fmt.Sprintf("missing directory: %s", d))
		}
	}
	if total == 0 {
		return 1.0, nil
	}
	return float64(present) / float64(total), issues
}

// functionalityScore averages task completion rate with the fraction of
// requirement features whose keywords appear somewhere in workspace source.
func functionalityScore(workspace string, req *task.Requirement, tasks []*task.Task) (float64, []string) {
	score := 1.0
	if len(tasks) > 0 {
		var completed int
		for _, t := range tasks {
			if t.Status == task.StatusCompleted {
				completed++
			}
		}
		score = float64(completed) / float64(len(tasks))
	}

	var issues []string
	if req != nil && len(req.Features) > 0 {
		var implemented int
		for _, f := range req.Features {
			if FeatureImplemented(workspace, f.Name) {
				implemented++
			} else {
				issues = append(issues, fmt.Sprintf("feature not implemented: %s", f.Name))
			}
		}
		featureScore := float64(implemented) / float64(len(req.Features))
		score = (score + featureScore) / 2
	}
	return score, issues
}

// FeatureImplemented is a keyword presence scan: the feature name is split
// into lowercase words and any source file containing one of them counts as
// evidence. A deliberately loose check, used only as a final best-effort
// verification.
func FeatureImplemented(workspace, featureName string) bool {
	keywords := strings.Split(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(featureName)), " ", "_"), "_")

	found := false
	filepath.WalkDir(workspace, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if d.Name() == ".forgeflow" || d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".go", ".py", ".js", ".ts", ".jsx", ".tsx":
		default:
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		content := strings.ToLower(string(data))
		for _, kw := range keywords {
			if kw != "" && strings.Contains(content, kw) {
				found = true
				return filepath.SkipAll
			}
		}
		return nil
	})
	return found
}

// documentationScore checks required and optional documentation files plus
// README substance: required docs weigh 0.6, README sections 0.3, optional
// docs 0.1.
func documentationScore(workspace string) float64 {
	requiredDocs := []string{"README.md"}
	optionalDocs := []string{"CHANGELOG.md", "CONTRIBUTING.md", "LICENSE"}

	var requiredPresent int
	for _, doc := range requiredDocs {
		if _, err := os.Stat(filepath.Join(workspace, doc)); err == nil {
			requiredPresent++
		}
	}

	var optionalPresent int
	for _, doc := range optionalDocs {
		if _, err := os.Stat(filepath.Join(workspace, doc)); err == nil {
			optionalPresent++
		}
	}

	var readmeScore float64
	if data, err := os.ReadFile(filepath.Join(workspace, "README.md")); err == nil {
		content := strings.ToLower(string(data))
		sections := []string{"# ", "## ", "install", "usage", "example"}
		var found int
		for _, s := range sections {
			if strings.Contains(content, s) {
				found++
			}
		}
		readmeScore = float64(found) / float64(len(sections))
	}

	requiredScore := float64(requiredPresent) / float64(len(requiredDocs))
	optionalScore := float64(optionalPresent) / float64(len(optionalDocs))
	return requiredScore*0.6 + readmeScore*0.3 + optionalScore*0.1
}
