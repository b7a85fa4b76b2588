package planner

import "github.com/forgeflow/forgeflow/internal/task"

// templateTask is one entry in a project-type skeleton. Templates are kept
// as ordered slices so plan generation is deterministic.
type templateTask struct {
	ID             string
	Name           string
	Description    string
	Type           string
	Priority       int
	EstimatedHours int
	Dependencies   []string
	Subtasks       []string
}

// projectTemplates maps a project type to its fixed task skeleton.
// Unknown project types fall back to the web_app template.
var projectTemplates = map[string][]templateTask{
	"web_app": {
		{
			ID:             "project_setup",
			Name:           "Project setup",
			Description:    "Create the base project structure and configuration",
			Type:           "setup",
			Priority:       1,
			EstimatedHours: 2,
			Subtasks: []string{
				"Create project directory layout",
				"Initialize package manager configuration",
				"Set up the development environment",
				"Configure version control",
			},
		},
		{
			ID:             "frontend_setup",
			Name:           "Frontend scaffolding",
			Description:    "Set up the frontend environment and base components",
			Type:           "frontend",
			Priority:       2,
			EstimatedHours: 4,
			Dependencies:   []string{"project_setup"},
			Subtasks: []string{
				"Install the frontend framework",
				"Configure routing",
				"Set up the styling toolkit",
				"Create base components",
			},
		},
		{
			ID:             "backend_setup",
			Name:           "Backend scaffolding",
			Description:    "Set up the backend service and API framework",
			Type:           "backend",
			Priority:       2,
			EstimatedHours: 4,
			Dependencies:   []string{"project_setup"},
			Subtasks: []string{
				"Install the backend framework",
				"Configure the database connection",
				"Set up API routes",
				"Implement base middleware",
			},
		},
		{
			ID:             "database_setup",
			Name:           "Database design",
			Description:    "Design and implement the data model",
			Type:           "database",
			Priority:       3,
			EstimatedHours: 3,
			Dependencies:   []string{"backend_setup"},
			Subtasks: []string{
				"Design the data model",
				"Create database tables",
				"Implement the data access layer",
				"Add data validation",
			},
		},
		{
			ID:             "core_features",
			Name:           "Core feature implementation",
			Description:    "Implement the main business functionality",
			Type:           "feature",
			Priority:       5,
			EstimatedHours: 12,
			Dependencies:   []string{"database_setup", "frontend_setup"},
			// Subtasks are filled in from the generated feature tasks.
		},
		{
			ID:             "testing",
			Name:           "Testing and quality assurance",
			Description:    "Write test cases and run quality checks",
			Type:           "testing",
			Priority:       7,
			EstimatedHours: 6,
			Dependencies:   []string{"core_features"},
			Subtasks: []string{
				"Write unit tests",
				"Write integration tests",
				"Add end-to-end coverage",
				"Run performance checks",
			},
		},
		{
			ID:             "deployment",
			Name:           "Deployment and release",
			Description:    "Configure the production environment and ship",
			Type:           "deployment",
			Priority:       8,
			EstimatedHours: 3,
			Dependencies:   []string{"testing"},
			Subtasks: []string{
				"Configure the production environment",
				"Set up the CI/CD pipeline",
				"Deploy to the target server",
				"Configure monitoring and logging",
			},
		},
	},
	"mobile_app": {
		{
			ID:             "project_setup",
			Name:           "Mobile project setup",
			Description:    "Create the mobile application project structure",
			Type:           "setup",
			Priority:       1,
			EstimatedHours: 2,
			Subtasks: []string{
				"Scaffold the mobile project",
				"Configure the development environment",
				"Set up the simulator",
				"Install required dependencies",
			},
		},
		{
			ID:             "navigation_setup",
			Name:           "Navigation scaffolding",
			Description:    "Implement app navigation and screen routing",
			Type:           "navigation",
			Priority:       2,
			EstimatedHours: 3,
			Dependencies:   []string{"project_setup"},
			Subtasks: []string{
				"Configure the navigation library",
				"Design the screen hierarchy",
				"Implement screen transitions",
				"Add back-navigation handling",
			},
		},
	},
	"data_analysis": {
		{
			ID:             "project_setup",
			Name:           "Analysis project setup",
			Description:    "Create the data analysis environment",
			Type:           "setup",
			Priority:       1,
			EstimatedHours: 1,
			Subtasks: []string{
				"Create the runtime environment",
				"Install analysis libraries",
				"Set up the notebook environment",
				"Prepare the data directory",
			},
		},
		{
			ID:             "data_collection",
			Name:           "Data collection and preprocessing",
			Description:    "Collect raw data and clean it",
			Type:           "data",
			Priority:       2,
			EstimatedHours: 4,
			Dependencies:   []string{"project_setup"},
			Subtasks: []string{
				"Connect to data sources",
				"Collect raw data",
				"Clean and normalize",
				"Validate the result set",
			},
		},
	},
}

// templateFor returns the skeleton for the project type, defaulting to the
// web_app template for unknown types.
func templateFor(projectType string) []templateTask {
	if tpl, ok := projectTemplates[projectType]; ok {
		return tpl
	}
	return projectTemplates["web_app"]
}

// instantiate converts a template entry into a fresh pending task.
func (tt templateTask) instantiate() *task.Task {
	return &task.Task{
		ID:             tt.ID,
		Name:           tt.Name,
		Description:    tt.Description,
		Type:           tt.Type,
		Priority:       tt.Priority,
		EstimatedHours: tt.EstimatedHours,
		Dependencies:   append([]string(nil), tt.Dependencies...),
		Subtasks:       append([]string(nil), tt.Subtasks...),
		Status:         task.StatusPending,
	}
}
