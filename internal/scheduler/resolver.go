// Package scheduler owns the dependency graph over a task list: validation,
// cycle detection, topological ordering, readiness queries, and status
// transitions. The resolver functions are pure -- they never mutate their
// input -- so validation failures surface as structured data the caller can
// repair or reject.
package scheduler

import (
	"fmt"
	"strings"

	"github.com/forgeflow/forgeflow/internal/task"
)

// MissingDependency records one dangling edge: Task lists MissingDep among
// its dependencies but no task with that id exists.
type MissingDependency struct {
	Task       string `json:"task"`
	MissingDep string `json:"missing_dep"`
}

// ValidationResult is the structured outcome of Validate. All problems are
// collected in one pass; nothing short-circuits.
type ValidationResult struct {
	Valid                bool                `json:"valid"`
	MissingDependencies  []MissingDependency `json:"missing_dependencies"`
	CircularDependencies [][]string          `json:"circular_dependencies"`
}

// Validate checks referential integrity and acyclicity of the task list.
// Every dangling dependency pair and every cycle found is reported; the
// result is data, never an error.
func Validate(tasks []*task.Task) ValidationResult {
	result := ValidationResult{
		Valid:                true,
		MissingDependencies:  []MissingDependency{},
		CircularDependencies: [][]string{},
	}

	ids := idSet(tasks)
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := ids[dep]; !ok {
				result.MissingDependencies = append(result.MissingDependencies, MissingDependency{
					Task:       t.ID,
					MissingDep: dep,
				})
				result.Valid = false
			}
		}
	}

	if cycles := DetectCycles(tasks); len(cycles) > 0 {
		result.CircularDependencies = cycles
		result.Valid = false
	}

	return result
}

// DetectCycles finds dependency cycles via depth-first traversal with a
// recursion stack. Each cycle is returned as the ordered id sequence that
// forms it, closed by repeating the first id. Every task is tried exactly
// once as a DFS root, so the whole graph is covered in O(V+E).
func DetectCycles(tasks []*task.Task) [][]string {
	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	visited := make(map[string]bool, len(tasks))
	onStack := make(map[string]bool, len(tasks))
	var cycles [][]string

	var dfs func(id string, path []string) bool
	dfs = func(id string, path []string) bool {
		if onStack[id] {
			start := 0
			for i, p := range path {
				if p == id {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), id)
			cycles = append(cycles, cycle)
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		onStack[id] = true

		if t, ok := byID[id]; ok {
			for _, dep := range t.Dependencies {
				if _, known := byID[dep]; !known {
					continue
				}
				if dfs(dep, append(path, id)) {
					return true
				}
			}
		}

		onStack[id] = false
		return false
	}

	for _, t := range tasks {
		if !visited[t.ID] {
			dfs(t.ID, nil)
		}
	}

	return cycles
}

// TopoSort orders tasks so that every task appears after all of its
// dependencies, using Kahn's algorithm. Ties among zero-in-degree
// candidates break by input order (stable FIFO) -- priority plays no role
// here, which keeps the ordering deterministic and reproducible.
//
// Returns an error naming the unplaced tasks if a cycle or unresolvable
// dependency prevents a complete linearization.
func TopoSort(tasks []*task.Task) ([]*task.Task, error) {
	byID := make(map[string]*task.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	// In-degree counts only dependencies on known task ids.
	inDegree := make(map[string]int, len(tasks))
	for _, t := range tasks {
		inDegree[t.ID] = 0
	}
	for _, t := range tasks {
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; ok {
				inDegree[t.ID]++
			}
		}
	}

	queue := make([]string, 0, len(tasks))
	for _, t := range tasks {
		if inDegree[t.ID] == 0 {
			queue = append(queue, t.ID)
		}
	}

	sorted := make([]*task.Task, 0, len(tasks))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, byID[current])

		// Scan dependents in input order so newly freed tasks enqueue
		// deterministically.
		for _, t := range tasks {
			for _, dep := range t.Dependencies {
				if dep != current {
					continue
				}
				inDegree[t.ID]--
				if inDegree[t.ID] == 0 {
					queue = append(queue, t.ID)
				}
			}
		}
	}

	if len(sorted) != len(tasks) {
		placed := make(map[string]bool, len(sorted))
		for _, t := range sorted {
			placed[t.ID] = true
		}
		var missing []string
		for _, t := range tasks {
			if !placed[t.ID] {
				missing = append(missing, t.ID)
			}
		}
		return nil, fmt.Errorf("topological sort left %d tasks unplaced (cycle or unresolved dependency): %s",
			len(missing), strings.Join(missing, ", "))
	}

	return sorted, nil
}

// Repair drops invalid dependency edges in place until the list validates:
// dangling references are removed outright, and each reported cycle loses
// its closing edge. Returns the number of edges dropped. Callers log a
// warning when this fires -- a repaired graph means upstream generation
// produced garbage.
func Repair(tasks []*task.Task) int {
	dropped := 0
	for attempts := 0; attempts < len(tasks)+1; attempts++ {
		result := Validate(tasks)
		if result.Valid {
			break
		}
		for _, missing := range result.MissingDependencies {
			if removeDependency(tasks, missing.Task, missing.MissingDep) {
				dropped++
			}
		}
		for _, cycle := range result.CircularDependencies {
			if len(cycle) < 2 {
				continue
			}
			// The cycle closes from its second-to-last entry back to the
			// first; cutting that edge breaks this cycle.
			from := cycle[len(cycle)-2]
			to := cycle[len(cycle)-1]
			if removeDependency(tasks, from, to) {
				dropped++
			}
		}
	}
	return dropped
}

func removeDependency(tasks []*task.Task, taskID, dep string) bool {
	for _, t := range tasks {
		if t.ID != taskID {
			continue
		}
		for i, d := range t.Dependencies {
			if d == dep {
				t.Dependencies = append(t.Dependencies[:i], t.Dependencies[i+1:]...)
				return true
			}
		}
	}
	return false
}

func idSet(tasks []*task.Task) map[string]struct{} {
	ids := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		ids[t.ID] = struct{}{}
	}
	return ids
}
