// Package decompose turns a complex goal into a validated DAG of sub-tasks,
// one per domain specialist.
package decompose

import (
	"time"

	"maestro/internal/catalog"
)

// TaskStatus tracks a sub-task through its lifecycle.
type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusQueued    TaskStatus = "queued"
	StatusRunning   TaskStatus = "running"
	StatusCompleted TaskStatus = "completed"
	StatusFailed    TaskStatus = "failed"
	StatusSkipped   TaskStatus = "skipped"
	StatusCancelled TaskStatus = "cancelled"
)

const (
	// MaxTasks caps the decomposer output.
	MaxTasks = 12

	defaultPriority = 50
	minComplexity   = 1
	maxComplexity   = 5
)

// SubTask is one node of the task graph.
type SubTask struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Domain        catalog.Domain `json:"domain"`
	Dependencies  []string       `json:"dependencies"`
	Status        TaskStatus     `json:"status"`
	RelevantFiles []string       `json:"relevantFiles,omitempty"`
	Priority      int            `json:"priority"`
	Complexity    int            `json:"complexity"`
}

// TaskGraph is a validated DAG of sub-tasks.
//
// Invariants: every id is unique, every dependency id exists, the graph is
// acyclic, and Edges is the transpose of the dependency relation.
type TaskGraph struct {
	Goal            string              `json:"goal"`
	Tasks           []SubTask           `json:"tasks"`
	Edges           map[string][]string `json:"edges"`
	CreatedAt       time.Time           `json:"createdAt"`
	TotalComplexity int                 `json:"totalComplexity"`
}

// Task returns a pointer to the task with the given id, or nil.
func (g *TaskGraph) Task(id string) *SubTask {
	for i := range g.Tasks {
		if g.Tasks[i].ID == id {
			return &g.Tasks[i]
		}
	}
	return nil
}

// buildEdges computes the forward adjacency (dependency → dependents) from
// the per-task dependency lists.
func buildEdges(tasks []SubTask) map[string][]string {
	edges := make(map[string][]string, len(tasks))
	for _, task := range tasks {
		if _, ok := edges[task.ID]; !ok {
			edges[task.ID] = nil
		}
	}
	for _, task := range tasks {
		for _, dep := range task.Dependencies {
			edges[dep] = append(edges[dep], task.ID)
		}
	}
	return edges
}

// hasCycle runs a DFS three-color check over the dependency relation.
func hasCycle(tasks []SubTask) bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	deps := make(map[string][]string, len(tasks))
	for _, task := range tasks {
		deps[task.ID] = task.Dependencies
	}
	color := make(map[string]int, len(tasks))

	var visit func(id string) bool
	visit = func(id string) bool {
		color[id] = gray
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				return true
			case white:
				if visit(dep) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}

	for _, task := range tasks {
		if color[task.ID] == white && visit(task.ID) {
			return true
		}
	}
	return false
}

// breakCycles runs Kahn's algorithm and clears all dependencies of any task
// that never reaches in-degree zero, removing the back-edges that survived
// validation.
func breakCycles(tasks []SubTask) []SubTask {
	indegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string, len(tasks))
	for _, task := range tasks {
		indegree[task.ID] = len(task.Dependencies)
		for _, dep := range task.Dependencies {
			dependents[dep] = append(dependents[dep], task.ID)
		}
	}

	var queue []string
	for _, task := range tasks {
		if indegree[task.ID] == 0 {
			queue = append(queue, task.ID)
		}
	}

	processed := make(map[string]bool, len(tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		processed[id] = true
		for _, dependent := range dependents[id] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				queue = append(queue, dependent)
			}
		}
	}

	for i := range tasks {
		if !processed[tasks[i].ID] {
			tasks[i].Dependencies = nil
		}
	}
	return tasks
}
