// Package executor runs a task graph in topologically ordered tiers with
// bounded parallelism, dependency-aware context plumbing and failure
// isolation.
package executor

import (
	"sort"

	"maestro/internal/decompose"
)

// BuildTiers groups tasks into execution tiers using Kahn's algorithm on
// in-degrees. Every dependency of a task in tier k lies in a tier < k.
// Within a tier, tasks are ordered by descending priority. If any tasks
// remain when no zero-in-degree task exists (a cycle survived cleanup),
// they are emitted as one final forced tier.
func BuildTiers(graph *decompose.TaskGraph) [][]decompose.SubTask {
	indegree := make(map[string]int, len(graph.Tasks))
	byID := make(map[string]decompose.SubTask, len(graph.Tasks))
	for _, task := range graph.Tasks {
		indegree[task.ID] = len(task.Dependencies)
		byID[task.ID] = task
	}

	remaining := len(graph.Tasks)
	done := make(map[string]bool, len(graph.Tasks))
	var tiers [][]decompose.SubTask

	for remaining > 0 {
		var tier []decompose.SubTask
		for _, task := range graph.Tasks {
			if !done[task.ID] && indegree[task.ID] == 0 {
				tier = append(tier, task)
			}
		}

		if len(tier) == 0 {
			// Cycle leftovers: force everything unprocessed into one tier.
			var forced []decompose.SubTask
			for _, task := range graph.Tasks {
				if !done[task.ID] {
					forced = append(forced, task)
				}
			}
			sortTier(forced)
			tiers = append(tiers, forced)
			break
		}

		sortTier(tier)
		tiers = append(tiers, tier)
		for _, task := range tier {
			done[task.ID] = true
			remaining--
			for _, dependent := range graph.Edges[task.ID] {
				indegree[dependent]--
			}
		}
	}

	return tiers
}

func sortTier(tier []decompose.SubTask) {
	sort.SliceStable(tier, func(i, j int) bool {
		return tier[i].Priority > tier[j].Priority
	})
}
