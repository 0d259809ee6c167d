package orchestrator

import (
	"fmt"
	"strings"

	"maestro/internal/decompose"
	"maestro/internal/executor"
)

// renderTaskSummary enumerates every task with its outcome mark, in graph
// order, followed by aggregate counts.
func renderTaskSummary(graph *decompose.TaskGraph, execution *executor.Result, success bool) string {
	var sb strings.Builder
	switch {
	case execution.Cancelled:
		sb.WriteString("Pipeline cancelled.\n\n")
	case success:
		sb.WriteString("✅ All critical tasks completed.\n\n")
	default:
		sb.WriteString("⚠️ Pipeline finished with failures.\n\n")
	}

	completed, failed, skipped := 0, 0, 0
	for _, task := range graph.Tasks {
		taskResult := execution.Results[task.ID]
		mark := "❌"
		note := ""
		switch {
		case taskResult == nil:
			skipped++
			mark = "⏭️"
			note = "not run"
		case taskResult.Success:
			completed++
			mark = "✅"
		case strings.HasPrefix(taskResult.Response, "Skipped:"):
			skipped++
			mark = "⏭️"
			note = taskResult.Response
		default:
			failed++
			note = taskResult.Error
			if note == "" {
				note = "failed"
			}
		}
		fmt.Fprintf(&sb, "%s %s (%s): %s", mark, task.ID, task.Domain, task.Title)
		if note != "" {
			fmt.Fprintf(&sb, " — %s", note)
		}
		sb.WriteString("\n")

		if taskResult != nil && len(taskResult.FilesModified) > 0 {
			fmt.Fprintf(&sb, "   files: %s\n", strings.Join(taskResult.FilesModified, ", "))
		}
	}

	fmt.Fprintf(&sb, "\n%d completed, %d failed, %d skipped across %d tier(s), peak parallelism %d.\n",
		completed, failed, skipped, execution.Tiers, execution.PeakParallelism)
	return sb.String()
}

// cancelledSummary prefixes the cancellation sentence onto whatever partial
// summary the path produced.
func cancelledSummary(partial string) string {
	if strings.TrimSpace(partial) == "" {
		return "Operation cancelled."
	}
	return "Operation cancelled.\n\n" + partial
}
