package editor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forgeflow/forgeflow/internal/task"
)

// promptTemplate holds the initial guidance text for one kind of task plus
// the canned follow-ups used as the task progresses.
type promptTemplate struct {
	initial   string
	followUps []string
}

var promptTemplates = map[string]promptTemplate{
	"project_setup": {
		initial: `I need to set up a %s project.

Project requirement:
%s

Tech stack:
%s

Please help me:
1. Create the project directory structure
2. Initialize the project configuration
3. Install the necessary dependencies

Walk me through the initialization step by step.`,
		followUps: []string{
			"Does the project structure look right? Anything worth adjusting?",
			"Now that dependencies are installed, let's configure the development environment.",
			"Let's verify the project starts cleanly.",
		},
	},
	"feature_implementation": {
		initial: `Now let's implement the following feature:

Feature: %s
Description: %s
Technical requirements: %s

Subtasks:
%s

Please guide me through building this feature step by step.`,
		followUps: []string{
			"Does this implementation look correct? Anything worth optimizing?",
			"Should we add error handling and input validation here?",
			"Let's write tests covering this feature.",
			"Let's run the feature and confirm it works end to end.",
		},
	},
	"testing": {
		initial: `We need tests for %s:

Description: %s

Please help me:
1. Design the test cases
2. Write the test code
3. Check what the tests cover`,
		followUps: []string{
			"Do the test cases cover the important scenarios?",
			"Should we add boundary-condition tests?",
			"Let's run the tests and look at the results.",
		},
	},
	"debugging": {
		initial: `I ran into a problem while working on %s:

Error: %s

Please help me analyze and fix it. We need to:
1. Identify the likely causes
2. Apply a fix
3. Add a guard against regressions`,
		followUps: []string{
			"Did that fix resolve the issue?",
			"Are there other latent problems worth checking?",
			"Let's add a safeguard so this doesn't recur.",
		},
	},
	"code_review": {
		initial: `Please review the quality of the work for %s.

Description: %s

Focus on:
1. Code structure and readability
2. Performance opportunities
3. Potential security issues
4. Best-practice suggestions`,
		followUps: []string{
			"I'll apply your suggestions now.",
			"Do these changes follow best practices?",
			"Anything else worth improving?",
		},
	},
}

// templateKey maps a task's open type tag onto one of the closed prompt
// registers. Unknown tags read as feature work.
func templateKey(taskType string) string {
	switch taskType {
	case "setup":
		return "project_setup"
	case "testing":
		return "testing"
	case "debug":
		return "debugging"
	case "review", "quality":
		return "code_review"
	default:
		return "feature_implementation"
	}
}

// Guidance renders the initial prompt for a task, filling the template for
// its type from the task and the analyzed requirement.
func Guidance(t *task.Task, req *task.Requirement) string {
	key := templateKey(t.Type)
	tmpl := promptTemplates[key]

	switch key {
	case "project_setup":
		return fmt.Sprintf(tmpl.initial, projectType(req), requirementSummary(req), formatTechStack(req))
	case "testing", "code_review":
		return fmt.Sprintf(tmpl.initial, t.Name, description(t))
	case "debugging":
		return fmt.Sprintf(tmpl.initial, t.Name, description(t))
	default:
		return fmt.Sprintf(tmpl.initial, t.Name, description(t), techRequirements(t, req), formatSubtasks(t.Subtasks))
	}
}

// FollowUp returns the staged follow-up prompt for a task given its current
// progress percentage: stages shift at 25, 50, and 75 percent. Progress past
// the final stage reuses the last prompt.
func FollowUp(t *task.Task, progress int) string {
	tmpl := promptTemplates[templateKey(t.Type)]
	stage := progressStage(progress)
	if stage >= len(tmpl.followUps) {
		stage = len(tmpl.followUps) - 1
	}
	return tmpl.followUps[stage]
}

// CompletionPrompt is the confirmation message written when a task looks
// finished.
func CompletionPrompt(t *task.Task) string {
	return fmt.Sprintf(`Task %q looks complete.

Let's confirm:
1. Does every part of it work?
2. Does the code quality hold up?
3. Anything left to optimize?
4. Is the documentation updated?

If all of that checks out, we move on to the next task.`, t.Name)
}

func progressStage(progress int) int {
	switch {
	case progress < 25:
		return 0
	case progress < 50:
		return 1
	case progress < 75:
		return 2
	default:
		return 3
	}
}

func projectType(req *task.Requirement) string {
	if req == nil || req.ProjectType == "" {
		return "web_app"
	}
	return req.ProjectType
}

func requirementSummary(req *task.Requirement) string {
	if req == nil || req.Original == "" {
		return "not specified"
	}
	return req.Original
}

func description(t *task.Task) string {
	if t.Description == "" {
		return "no description"
	}
	return t.Description
}

func formatTechStack(req *task.Requirement) string {
	if req == nil || len(req.TechStack) == 0 {
		return "to be determined"
	}
	categories := make([]string, 0, len(req.TechStack))
	for category := range req.TechStack {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	lines := make([]string, 0, len(categories))
	for _, category := range categories {
		lines = append(lines, fmt.Sprintf("- %s: %s", category, strings.Join(req.TechStack[category], ", ")))
	}
	return strings.Join(lines, "\n")
}

func formatSubtasks(subtasks []string) string {
	if len(subtasks) == 0 {
		return "no specific subtasks"
	}
	lines := make([]string, 0, len(subtasks))
	for _, s := range subtasks {
		lines = append(lines, "- "+s)
	}
	return strings.Join(lines, "\n")
}

// techRequirements derives a short requirements line from the task type and
// the requirement complexity.
func techRequirements(t *task.Task, req *task.Requirement) string {
	var parts []string
	switch t.Type {
	case "frontend":
		parts = append(parts, "responsive design", "modern UI framework")
	case "backend":
		parts = append(parts, "RESTful API design", "database integration")
	case "database":
		parts = append(parts, "data model design", "index optimization")
	}
	if req != nil && req.Complexity == task.ComplexityHigh {
		parts = append(parts, "performance tuning", "scalability")
	}
	if len(parts) == 0 {
		return "basic functionality"
	}
	return strings.Join(parts, ", ")
}
