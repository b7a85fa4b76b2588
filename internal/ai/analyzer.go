package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/forgeflow/forgeflow/internal/task"
)

const analysisPrompt = `As a software architect and product manager, analyze the following user requirement and provide a technical breakdown.

User requirement: %s

Return the analysis as JSON with these fields:
1. project_type: one of "web_app", "mobile_app", "data_analysis"
2. features: list of core features, each with name, description, priority (1-5)
3. tech_stack: recommended stack with frontend, backend, database, tools
4. complexity: overall assessment, one of "low", "medium", "high"
5. estimated_hours: total development estimate in hours

Keep the analysis practical and grounded in common best practices.`

// Analyzer turns free-text requirements into structured Requirements by
// prompting a Client and parsing its JSON answer.
type Analyzer struct {
	client   Client
	breakers *BreakerRegistry
	retry    RetryConfig
}

// NewAnalyzer wraps a client with the default resilience policy.
func NewAnalyzer(client Client) *Analyzer {
	return &Analyzer{
		client:   client,
		breakers: NewBreakerRegistry(),
		retry:    DefaultRetryConfig(),
	}
}

// stringList accepts both a JSON array of strings and a single string.
// Models emit either shape for tech stack entries.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*s = []string{one}
	return nil
}

type analysisResult struct {
	ProjectType    string                `json:"project_type"`
	Features       []task.Feature        `json:"features"`
	TechStack      map[string]stringList `json:"tech_stack"`
	Complexity     string                `json:"complexity"`
	EstimatedHours int                   `json:"estimated_hours"`
}

// AnalyzeRequirement asks the model to analyze the requirement and parses
// the response into a Requirement. A provider failure propagates as an
// error; an unparseable response degrades to FallbackRequirement so that a
// chatty model never blocks planning.
func (a *Analyzer) AnalyzeRequirement(ctx context.Context, requirement string) (*task.Requirement, error) {
	prompt := fmt.Sprintf(analysisPrompt, requirement)

	response, err := generateWithRetry(ctx, a.client, Request{Prompt: prompt}, a.breakers.Get(a.client.Name()), a.retry)
	if err != nil {
		return nil, fmt.Errorf("requirement analysis via %s: %w", a.client.Name(), err)
	}

	var parsed analysisResult
	if err := json.Unmarshal([]byte(ExtractJSON(response)), &parsed); err != nil {
		log.Printf("WARNING: could not parse analysis response, using fallback requirement: %v", err)
		return FallbackRequirement(requirement), nil
	}

	req := &task.Requirement{
		Original:       requirement,
		ProjectType:    normalizeProjectType(parsed.ProjectType),
		Features:       parsed.Features,
		TechStack:      make(map[string][]string, len(parsed.TechStack)),
		Complexity:     normalizeComplexity(parsed.Complexity),
		EstimatedHours: parsed.EstimatedHours,
	}
	for k, v := range parsed.TechStack {
		req.TechStack[k] = v
	}
	for i := range req.Features {
		if req.Features[i].Priority < 1 || req.Features[i].Priority > 5 {
			req.Features[i].Priority = 3
		}
	}

	if err := task.Validate(req); err != nil {
		log.Printf("WARNING: analysis result failed validation, using fallback requirement: %v", err)
		return FallbackRequirement(requirement), nil
	}
	return req, nil
}

// FallbackRequirement is the degraded analysis used when the model's answer
// cannot be parsed: no feature breakdown, a generic stack, medium
// complexity. Planning then produces the bare project template.
func FallbackRequirement(requirement string) *task.Requirement {
	return &task.Requirement{
		Original:    requirement,
		ProjectType: "web_app",
		TechStack: map[string][]string{
			"frontend": {"html", "css", "javascript"},
			"backend":  {"python"},
			"database": {"sqlite"},
		},
		Complexity: task.ComplexityMedium,
	}
}

func normalizeProjectType(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mobile_app":
		return "mobile_app"
	case "data_analysis":
		return "data_analysis"
	default:
		return "web_app"
	}
}

func normalizeComplexity(s string) task.Complexity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(task.ComplexityLow):
		return task.ComplexityLow
	case string(task.ComplexityHigh):
		return task.ComplexityHigh
	default:
		return task.ComplexityMedium
	}
}
