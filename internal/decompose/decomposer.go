package decompose

import (
	"context"
	"fmt"
	"strings"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/catalog"
	"maestro/internal/logging"
	"maestro/internal/parser"
)

const decomposeTemperature = 0.2

// Decomposer plans a goal into a task graph using one low-temperature,
// JSON-only model call. It never returns an error for model or parse
// trouble: any total failure yields the fallback plan.
type Decomposer struct {
	client ports.LLMClient
	logger logging.Logger
}

// New constructs a decomposer over the given client.
func New(client ports.LLMClient) *Decomposer {
	return &Decomposer{client: client, logger: logging.NewComponentLogger("decompose")}
}

const systemPromptFormat = `You are a task planner for a team of domain specialist agents.
Decompose the user's goal into at most %d sub-tasks, each assigned to one domain.

Available domains: %s

Respond with PURE JSON only, no prose, no markdown fences:
{"tasks": [{"id": "t1", "title": "...", "description": "...", "domain": "...",
"dependencies": [], "complexity": 1-5, "priority": 0-100, "relevantFiles": []}]}

Rules:
- ids must be unique short strings
- dependencies reference other task ids only
- the dependency graph must be acyclic
- prefer few, substantial tasks over many trivial ones
- two tasks that may run in parallel must not edit the same files`

// rawTask mirrors the JSON contract before validation.
type rawTask struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Domain        string   `json:"domain"`
	Dependencies  []string `json:"dependencies"`
	Complexity    int      `json:"complexity"`
	Priority      *int     `json:"priority"`
	RelevantFiles []string `json:"relevantFiles"`
}

// Decompose produces a validated task graph for the goal.
func (d *Decomposer) Decompose(ctx context.Context, goal string) *TaskGraph {
	domains := make([]string, 0, len(catalog.KnownDomains()))
	for _, domain := range catalog.KnownDomains() {
		domains = append(domains, string(domain))
	}

	resp, err := d.client.Complete(ctx, ports.CompletionRequest{
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: fmt.Sprintf(systemPromptFormat, MaxTasks, strings.Join(domains, ", "))},
			{Role: ports.RoleUser, Content: goal},
		},
		Temperature: decomposeTemperature,
		MaxTokens:   2048,
	})
	if err != nil {
		d.logger.Warn("decomposition call failed, using fallback plan: %v", err)
		return FallbackGraph(goal)
	}

	var payload struct {
		Tasks []rawTask `json:"tasks"`
	}
	if err := parser.DecodeObject(resp.Content, &payload); err != nil {
		d.logger.Warn("decomposition output unparseable, using fallback plan: %v", err)
		return FallbackGraph(goal)
	}
	if len(payload.Tasks) == 0 {
		d.logger.Warn("decomposition produced zero tasks, using fallback plan")
		return FallbackGraph(goal)
	}

	tasks := d.validate(payload.Tasks)
	if len(tasks) == 0 {
		return FallbackGraph(goal)
	}

	if hasCycle(tasks) {
		d.logger.Warn("decomposition produced a cycle; clearing back-edges")
		tasks = breakCycles(tasks)
	}

	return assemble(goal, tasks)
}

// validate enforces the task contract: required fields, known domain with
// coder fallback, clamped complexity, default priority, dangling
// dependencies dropped.
func (d *Decomposer) validate(raw []rawTask) []SubTask {
	if len(raw) > MaxTasks {
		raw = raw[:MaxTasks]
	}

	seen := make(map[string]bool, len(raw))
	var tasks []SubTask
	for _, rt := range raw {
		if rt.ID == "" || rt.Title == "" || rt.Description == "" || rt.Domain == "" {
			d.logger.Warn("dropping task with missing required field: %+v", rt)
			continue
		}
		if seen[rt.ID] {
			d.logger.Warn("dropping task with duplicate id: %s", rt.ID)
			continue
		}
		seen[rt.ID] = true

		domain := catalog.Domain(rt.Domain)
		if !catalog.IsKnownDomain(domain) {
			d.logger.Warn("task %s has unknown domain %q, falling back to coder", rt.ID, rt.Domain)
			domain = catalog.DomainCoder
		}

		complexity := rt.Complexity
		if complexity < minComplexity {
			complexity = minComplexity
		}
		if complexity > maxComplexity {
			complexity = maxComplexity
		}

		priority := defaultPriority
		if rt.Priority != nil {
			priority = *rt.Priority
		}

		tasks = append(tasks, SubTask{
			ID:            rt.ID,
			Title:         rt.Title,
			Description:   rt.Description,
			Domain:        domain,
			Dependencies:  rt.Dependencies,
			Status:        StatusPending,
			RelevantFiles: rt.RelevantFiles,
			Priority:      priority,
			Complexity:    complexity,
		})
	}

	// Dependencies referencing unknown ids are dropped, not fatal.
	for i := range tasks {
		var kept []string
		for _, dep := range tasks[i].Dependencies {
			if seen[dep] && dep != tasks[i].ID {
				kept = append(kept, dep)
			} else {
				d.logger.Warn("task %s: dropping dangling dependency %q", tasks[i].ID, dep)
			}
		}
		tasks[i].Dependencies = kept
	}

	return tasks
}

func assemble(goal string, tasks []SubTask) *TaskGraph {
	total := 0
	for _, task := range tasks {
		total += task.Complexity
	}
	return &TaskGraph{
		Goal:            goal,
		Tasks:           tasks,
		Edges:           buildEdges(tasks),
		CreatedAt:       time.Now(),
		TotalComplexity: total,
	}
}

// FallbackGraph is the three-node plan → implement → review graph used when
// decomposition fails entirely.
func FallbackGraph(goal string) *TaskGraph {
	tasks := []SubTask{
		{
			ID:          "plan",
			Title:       "Plan the work",
			Description: "Produce an ordered implementation plan for the goal: " + goal,
			Domain:      catalog.DomainPlanner,
			Status:      StatusPending,
			Priority:    90,
			Complexity:  2,
		},
		{
			ID:           "implement",
			Title:        "Implement the plan",
			Description:  "Carry out the plan, making the required workspace changes.",
			Domain:       catalog.DomainCoder,
			Dependencies: []string{"plan"},
			Status:       StatusPending,
			Priority:     80,
			Complexity:   3,
		},
		{
			ID:           "review",
			Title:        "Review the changes",
			Description:  "Review the implementation for correctness and style.",
			Domain:       catalog.DomainReviewer,
			Dependencies: []string{"implement"},
			Status:       StatusPending,
			Priority:     70,
			Complexity:   2,
		},
	}
	return assemble(goal, tasks)
}
