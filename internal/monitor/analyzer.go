package monitor

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
)

// FileQuality is the per-file outcome of quality analysis. All signals are
// in [0,1]. Structured files carry the three component signals; loose files
// only the combined score.
type FileQuality struct {
	Path          string  `json:"path"`
	Score         float64 `json:"score"`
	Complexity    float64 `json:"complexity,omitempty"`
	Documentation float64 `json:"documentation,omitempty"`
	Style         float64 `json:"style,omitempty"`
	Structured    bool    `json:"structured"`
}

// looseFileThreshold is the line count under which a loosely-analyzed file
// earns its length credit.
const looseFileThreshold = 300

// AnalyzeFile scores one source file. Go files get a parsed, structured
// analysis; every other source file gets surface heuristics. A file that
// cannot be read or parsed returns an error and is excluded from aggregates
// by the caller, never scored as zero.
func AnalyzeFile(path string) (FileQuality, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileQuality{}, fmt.Errorf("read %s: %w", path, err)
	}
	if filepath.Ext(path) == ".go" {
		return analyzeGoFile(path, data)
	}
	return analyzeLooseFile(path, data), nil
}

// analyzeGoFile derives three independent signals from the parsed AST and
// raw text:
//
//   - complexity: branching, loop, and function constructs divided by 10,
//     clamped to [0,1]
//   - documentation: fraction of functions and type declarations carrying
//     a doc comment
//   - style: starts at 1.0 and loses 0.2 for >10% overlong lines, 0.1 for
//     <5% blank lines, 0.2 for <10% comment lines, floored at 0
//
// The combined score weighs style 0.4, documentation 0.3, and simplicity
// (one minus complexity) 0.3.
func analyzeGoFile(path string, data []byte) (FileQuality, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, data, parser.ParseComments)
	if err != nil {
		return FileQuality{}, fmt.Errorf("parse %s: %w", path, err)
	}

	var constructs int
	ast.Inspect(file, func(n ast.Node) bool {
		switch n.(type) {
		case *ast.IfStmt, *ast.ForStmt, *ast.RangeStmt,
			*ast.SwitchStmt, *ast.TypeSwitchStmt, *ast.SelectStmt,
			*ast.FuncDecl, *ast.FuncLit:
			constructs++
		}
		return true
	})
	complexity := clamp01(float64(constructs) / 10)

	var documented, declarations int
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			declarations++
			if d.Doc != nil {
				documented++
			}
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				declarations++
				if d.Doc != nil || ts.Doc != nil {
					documented++
				}
			}
		}
	}
	documentation := 0.0
	if declarations > 0 {
		documentation = float64(documented) / float64(declarations)
	}

	style := styleSignal(string(data))

	return FileQuality{
		Path:          path,
		Score:         clamp01(0.4*style + 0.3*documentation + 0.3*(1-complexity)),
		Complexity:    complexity,
		Documentation: documentation,
		Style:         style,
		Structured:    true,
	}, nil
}

// styleSignal scores surface formatting. Penalties are fixed increments per
// violated rule, not proportional.
func styleSignal(content string) float64 {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if total == 0 {
		return 1.0
	}

	var overlong, blank, comment int
	for _, line := range lines {
		if len(line) > 100 {
			overlong++
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			blank++
		}
		if strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "/*") || strings.HasPrefix(trimmed, "*") || strings.HasPrefix(trimmed, "#") {
			comment++
		}
	}

	score := 1.0
	if float64(overlong)/float64(total) > 0.10 {
		score -= 0.2
	}
	if float64(blank)/float64(total) < 0.05 {
		score -= 0.1
	}
	if float64(comment)/float64(total) < 0.10 {
		score -= 0.2
	}
	if score < 0 {
		score = 0
	}
	return score
}

// analyzeLooseFile scores a file we cannot parse structurally. Four surface
// signals each contribute a fixed weight: function-like constructs 0.3,
// comment markers 0.3, error handling 0.2, and staying under the length
// threshold 0.2.
func analyzeLooseFile(path string, data []byte) FileQuality {
	content := string(data)
	lines := strings.Count(content, "\n") + 1

	var score float64
	if hasAny(content, "function ", "def ", "func ", "=>", "fn ") {
		score += 0.3
	}
	if hasAny(content, "//", "/*", "# ", "\"\"\"", "<!--") {
		score += 0.3
	}
	if hasAny(content, "try", "catch", "except", "rescue", "recover(") {
		score += 0.2
	}
	if lines < looseFileThreshold {
		score += 0.2
	}

	return FileQuality{
		Path:  path,
		Score: clamp01(score),
	}
}

func hasAny(content string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(content, m) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
