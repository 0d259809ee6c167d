package executor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"maestro/internal/agent/ports"
	"maestro/internal/catalog"
	"maestro/internal/decompose"
	"maestro/internal/logging"
	"maestro/internal/react"
	"maestro/internal/toolregistry"
)

const (
	defaultMaxParallel  = 4
	defaultAgentTimeout = 120 * time.Second

	// depContextCharLimit bounds each dependency response embedded in a
	// downstream task's context block.
	depContextCharLimit = 3000
)

// fileMutationTools are the tool names whose successful calls count as file
// modifications.
var fileMutationTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"delete_file": true,
}

// SubTaskResult is the terminal record of one sub-task.
type SubTaskResult struct {
	TaskID        string
	Domain        catalog.Domain
	Success       bool
	Response      string
	FilesModified []string
	ToolCallCount int
	Iterations    int
	Duration      time.Duration
	TokensUsed    int
	Error         string
}

// Result aggregates a whole graph execution.
type Result struct {
	Results         map[string]*SubTaskResult
	Order           []string
	Tiers           int
	PeakParallelism int
	Cancelled       bool
	Duration        time.Duration
}

// Success reports whether the run satisfied the pipeline criterion: no
// non-skip failure among tasks whose domain is critical.
func (r *Result) Success(critical map[catalog.Domain]bool) bool {
	if r.Cancelled {
		return false
	}
	for _, result := range r.Results {
		if result == nil || result.Success {
			continue
		}
		if strings.HasPrefix(result.Response, "Skipped:") {
			continue
		}
		if critical == nil || critical[result.Domain] {
			return false
		}
	}
	return true
}

// Options configures a tiered executor.
type Options struct {
	Client       ports.LLMClient
	Registry     *toolregistry.Registry
	Catalog      *catalog.Catalog
	Events       ports.EventListener
	Logger       logging.Logger
	MaxParallel  int
	AgentTimeout time.Duration
	// ContextPrefix is appended to every specialist system prompt
	// (workspace context from the assembler).
	ContextPrefix string
	WorkspaceRoot string
	ThinkMode     bool
	Metrics       *Metrics
}

// Executor runs task graphs tier by tier.
type Executor struct {
	opts    Options
	events  ports.EventListener
	logger  logging.Logger
	metrics *Metrics
}

// New constructs an executor.
func New(opts Options) (*Executor, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("executor: LLM client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("executor: tool registry is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("executor: agent catalog is required")
	}
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = defaultMaxParallel
	}
	if opts.AgentTimeout <= 0 {
		opts.AgentTimeout = defaultAgentTimeout
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = defaultMetrics()
	}
	return &Executor{
		opts:    opts,
		events:  ports.OrNop(opts.Events),
		logger:  logging.OrNop(opts.Logger),
		metrics: metrics,
	}, nil
}

// Execute runs the graph. One crashing task cannot abort its siblings; a
// task whose dependency failed is skipped. Tasks in tier N+1 start only
// after every task in tiers ≤ N has terminated.
func (e *Executor) Execute(ctx context.Context, graph *decompose.TaskGraph) *Result {
	started := time.Now()
	tiers := BuildTiers(graph)

	result := &Result{
		Results: make(map[string]*SubTaskResult, len(graph.Tasks)),
		Tiers:   len(tiers),
	}
	var parallel parallelismTracker

	for tierIdx, tier := range tiers {
		if ctx.Err() != nil {
			e.markCancelled(graph, result)
			result.Cancelled = true
			break
		}
		e.events.OnEvent(ports.Event{
			Type:    ports.EventStatus,
			Content: fmt.Sprintf("Tier %d/%d: %d task(s)", tierIdx+1, len(tiers), len(tier)),
		})

		for start := 0; start < len(tier); start += e.opts.MaxParallel {
			if ctx.Err() != nil {
				break
			}
			end := start + e.opts.MaxParallel
			if end > len(tier) {
				end = len(tier)
			}
			e.runBatch(ctx, graph, tier[start:end], result, &parallel)
		}
	}

	if ctx.Err() != nil {
		e.markCancelled(graph, result)
		result.Cancelled = true
	}

	result.PeakParallelism = parallel.peak
	result.Duration = time.Since(started)
	e.metrics.peakParallelism.Set(float64(parallel.peak))
	return result
}

// runBatch launches one driver per task and joins the whole batch before
// returning. Failures inside a worker are captured into the task's result.
func (e *Executor) runBatch(ctx context.Context, graph *decompose.TaskGraph, batch []decompose.SubTask, result *Result, parallel *parallelismTracker) {
	var mu sync.Mutex
	group := &errgroup.Group{}

	// Dependency-failure propagation is decided for the whole batch before
	// any worker launches: dependencies live in earlier tiers, and deciding
	// up front keeps the result map free of concurrent reads.
	var runnable []decompose.SubTask
	for _, task := range batch {
		if failedDep := e.failedDependency(task, result); failedDep != "" {
			skip := &SubTaskResult{
				TaskID:   task.ID,
				Domain:   task.Domain,
				Success:  false,
				Response: fmt.Sprintf("Skipped: dependency %s failed", failedDep),
			}
			e.record(graph, result, task.ID, decompose.StatusSkipped, skip)
			e.events.OnEvent(ports.Event{Type: ports.EventStatus, Content: fmt.Sprintf("⏭️ %s skipped (dependency %s failed)", task.ID, failedDep)})
			continue
		}
		runnable = append(runnable, task)
	}

	for _, task := range runnable {
		task := task
		// Snapshot dependency output before launch; sibling workers write
		// the result map concurrently.
		depContext := e.dependencyContext(task, result)
		group.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					taskResult := &SubTaskResult{
						TaskID:  task.ID,
						Domain:  task.Domain,
						Error:   fmt.Sprintf("task panicked: %v", r),
						Success: false,
					}
					mu.Lock()
					e.record(graph, result, task.ID, decompose.StatusFailed, taskResult)
					mu.Unlock()
				}
				err = nil // failure isolation: never abort siblings
			}()

			parallel.enter(e.metrics)
			defer parallel.leave(e.metrics)

			taskResult := e.runTask(ctx, task, depContext)

			status := decompose.StatusCompleted
			if !taskResult.Success {
				status = decompose.StatusFailed
				if ctx.Err() != nil {
					status = decompose.StatusCancelled
				}
			}
			mu.Lock()
			e.record(graph, result, task.ID, status, taskResult)
			mu.Unlock()
			return nil
		})
	}

	_ = group.Wait()
}

// runTask drives one specialist through the ReAct loop under the combined
// caller + per-agent deadline.
func (e *Executor) runTask(ctx context.Context, task decompose.SubTask, depContext string) *SubTaskResult {
	started := time.Now()
	taskResult := &SubTaskResult{TaskID: task.ID, Domain: task.Domain}

	spec, ok := e.opts.Catalog.ForDomain(task.Domain)
	if !ok {
		taskResult.Error = fmt.Sprintf("no agent available for domain %s", task.Domain)
		return taskResult
	}

	taskCtx, cancel := context.WithTimeout(ctx, e.opts.AgentTimeout)
	defer cancel()

	tools := toolregistry.Empty()
	if spec.RequiresWorkspace {
		tools = e.opts.Registry.Filtered(spec.AllowedTools)
	}

	systemPrompt := buildSystemPrompt(spec, tools, e.opts.ContextPrefix)
	userPrompt := buildUserPrompt(task, depContext)

	driver, err := react.New(react.Options{
		Client:        e.opts.Client,
		Tools:         tools,
		ExecCtx:       ports.ExecutionContext{WorkspaceRoot: e.opts.WorkspaceRoot, Events: e.events},
		Events:        e.events,
		Logger:        e.logger,
		MaxIterations: spec.MaxIterations,
		MaxTokens:     spec.TokenBudget,
		ThinkMode:     e.opts.ThinkMode,
	})
	if err != nil {
		taskResult.Error = err.Error()
		return taskResult
	}

	e.events.OnEvent(ports.Event{Type: ports.EventStatus, Content: fmt.Sprintf("▶ %s (%s): %s", task.ID, spec.DisplayName, task.Title)})

	outcome, err := driver.Run(taskCtx, []ports.Message{
		{Role: ports.RoleSystem, Content: systemPrompt},
		{Role: ports.RoleUser, Content: userPrompt},
	})

	taskResult.Duration = time.Since(started)
	if outcome != nil {
		taskResult.Response = outcome.Response
		taskResult.Iterations = outcome.Iterations
		taskResult.TokensUsed = outcome.TokensUsed
		taskResult.ToolCallCount = len(outcome.ToolRecords)
		taskResult.FilesModified = modifiedFiles(outcome.ToolRecords)
	}
	if err != nil {
		taskResult.Error = err.Error()
		return taskResult
	}
	taskResult.Success = true
	return taskResult
}

// failedDependency returns the id of the first dependency with an
// unsuccessful result, or "".
func (e *Executor) failedDependency(task decompose.SubTask, result *Result) string {
	for _, dep := range task.Dependencies {
		if depResult, ok := result.Results[dep]; ok && !depResult.Success {
			return dep
		}
	}
	return ""
}

// dependencyContext concatenates each dependency's response, labeled by id
// and domain, truncated per dependency. Results are populated strictly in
// tier order, so reads here are safe without further coordination.
func (e *Executor) dependencyContext(task decompose.SubTask, result *Result) string {
	if len(task.Dependencies) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, dep := range task.Dependencies {
		depResult, ok := result.Results[dep]
		if !ok || depResult.Response == "" {
			continue
		}
		body := depResult.Response
		if len(body) > depContextCharLimit {
			body = body[:depContextCharLimit] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, "### Result of %s (%s)\n%s\n\n", dep, depResult.Domain, body)
	}
	return sb.String()
}

func (e *Executor) record(graph *decompose.TaskGraph, result *Result, taskID string, status decompose.TaskStatus, taskResult *SubTaskResult) {
	if task := graph.Task(taskID); task != nil {
		task.Status = status
	}
	result.Results[taskID] = taskResult
	result.Order = append(result.Order, taskID)

	e.metrics.taskOutcomes.WithLabelValues(string(taskResult.Domain), string(status)).Inc()
	e.metrics.taskDuration.WithLabelValues(string(taskResult.Domain), string(status)).Observe(taskResult.Duration.Seconds())
}

// markCancelled records a cancelled result for every task not yet recorded.
func (e *Executor) markCancelled(graph *decompose.TaskGraph, result *Result) {
	for _, task := range graph.Tasks {
		if _, ok := result.Results[task.ID]; ok {
			continue
		}
		cancelled := &SubTaskResult{
			TaskID:   task.ID,
			Domain:   task.Domain,
			Success:  false,
			Response: "Skipped: pipeline cancelled",
			Error:    "cancelled",
		}
		e.record(graph, result, task.ID, decompose.StatusCancelled, cancelled)
	}
}

func buildSystemPrompt(spec catalog.Spec, tools ports.ToolRegistry, contextPrefix string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\n\n%s\n", spec.DisplayName, spec.Instructions)

	if described := tools.DescribeForPrompt(); described != "" {
		sb.WriteString("\n## Tools\nInvoke tools with <tool_call>{\"tool\":\"<name>\",\"args\":{...}}</tool_call>. Available:\n")
		sb.WriteString(described)
	}
	if contextPrefix != "" {
		sb.WriteString("\n## Workspace context\n")
		sb.WriteString(contextPrefix)
	}
	return sb.String()
}

func buildUserPrompt(task decompose.SubTask, depContext string) string {
	var sb strings.Builder
	if depContext != "" {
		sb.WriteString("## Results from prerequisite tasks\n")
		sb.WriteString(depContext)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "## Task: %s\n%s\n", task.Title, task.Description)
	if len(task.RelevantFiles) > 0 {
		fmt.Fprintf(&sb, "\nRelevant files: %s\n", strings.Join(task.RelevantFiles, ", "))
	}
	return sb.String()
}

// modifiedFiles infers workspace changes from successful mutating tool
// calls, deduplicated in call order.
func modifiedFiles(records []ports.ToolResult) []string {
	seen := make(map[string]bool)
	var files []string
	for _, record := range records {
		if !record.Success || !fileMutationTools[record.Tool] {
			continue
		}
		path, _ := record.Args["path"].(string)
		if path == "" {
			path, _ = record.Args["file"].(string)
		}
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		files = append(files, path)
	}
	return files
}

// parallelismTracker observes peak concurrent workers.
type parallelismTracker struct {
	mu      sync.Mutex
	current int
	peak    int
}

func (t *parallelismTracker) enter(metrics *Metrics) {
	t.mu.Lock()
	t.current++
	if t.current > t.peak {
		t.peak = t.current
	}
	t.mu.Unlock()
	metrics.tasksActive.Inc()
}

func (t *parallelismTracker) leave(metrics *Metrics) {
	t.mu.Lock()
	t.current--
	t.mu.Unlock()
	metrics.tasksActive.Dec()
}
