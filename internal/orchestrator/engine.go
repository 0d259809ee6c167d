// Package orchestrator ties the engine together: route the goal, run the
// selected path, and render the final summary.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/appbuilder"
	"maestro/internal/catalog"
	"maestro/internal/decompose"
	"maestro/internal/executor"
	"maestro/internal/logging"
	"maestro/internal/quality"
	"maestro/internal/react"
	"maestro/internal/router"
	"maestro/internal/toolregistry"
	"maestro/internal/utils/id"
)

const assistantSystemPrompt = `You are a concise, knowledgeable software engineering assistant.
Answer the user's question directly. Use plain prose; include short code
examples only when they clarify the answer.`

// Options configures an engine instance.
type Options struct {
	Client   ports.LLMClient
	Registry *toolregistry.Registry
	Catalog  *catalog.Catalog
	Events   ports.EventListener
	Logger   logging.Logger

	WorkspaceRoot string
	// ContextPrefix is the assembled workspace context appended to
	// specialist system prompts.
	ContextPrefix string
	ThinkMode     bool

	ComplexityThreshold int
	MaxParallel         int
	AgentTimeout        time.Duration

	QualityCandidates   int
	QualityRewriteBelow int

	// CriticalDomains restricts which sub-task failures fail a DAG run.
	// Nil means every domain except docs.
	CriticalDomains map[catalog.Domain]bool

	Metrics         *Metrics
	ExecutorMetrics *executor.Metrics
}

// PipelineResult is the terminal record of one request.
type PipelineResult struct {
	RequestID  string
	Route      router.Route
	Response   string
	Success    bool
	Cancelled  bool
	TokensUsed int
	Duration   time.Duration

	// Path-specific detail; only the field for the taken route is set.
	Quality   *quality.Result
	Graph     *decompose.TaskGraph
	Execution *executor.Result
	App       *appbuilder.Result
}

// Engine is the top-level request runner.
type Engine struct {
	opts     Options
	selector router.Selector
	events   ports.EventListener
	logger   logging.Logger
	metrics  *Metrics
	critical map[catalog.Domain]bool
}

// New constructs an engine.
func New(opts Options) (*Engine, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("orchestrator: LLM client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("orchestrator: tool registry is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("orchestrator: agent catalog is required")
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = defaultMetrics()
	}
	critical := opts.CriticalDomains
	if critical == nil {
		critical = DefaultCriticalDomains()
	}
	return &Engine{
		opts:     opts,
		selector: router.Selector{ComplexityThreshold: opts.ComplexityThreshold},
		events:   ports.OrNop(opts.Events),
		logger:   logging.OrNop(opts.Logger),
		metrics:  metrics,
		critical: critical,
	}, nil
}

// DefaultCriticalDomains marks every built-in domain critical except docs:
// a failed documentation task alone does not fail the run.
func DefaultCriticalDomains() map[catalog.Domain]bool {
	critical := make(map[catalog.Domain]bool)
	for _, domain := range catalog.KnownDomains() {
		critical[domain] = domain != catalog.DomainDocs
	}
	return critical
}

// Route exposes the selector's classification without running anything.
func (e *Engine) Route(goal string) (router.Route, int) {
	return e.selector.Select(goal), router.ComplexityScore(goal)
}

// Run executes one request end to end.
func (e *Engine) Run(ctx context.Context, goal string) (*PipelineResult, error) {
	started := time.Now()
	result := &PipelineResult{
		RequestID: id.NewRequestID(),
		Route:     e.selector.Select(goal),
	}

	e.metrics.activeRequests.Inc()
	defer e.metrics.activeRequests.Dec()

	e.logger.Info("request %s: route=%s goal=%q", result.RequestID, result.Route, goal)
	e.events.OnEvent(ports.Event{
		Type:    ports.EventStatus,
		Content: fmt.Sprintf("Route: %s", result.Route),
	})

	var err error
	switch result.Route {
	case router.RouteSimple:
		err = e.runSimple(ctx, goal, result)
	case router.RouteStandard:
		err = e.runStandard(ctx, goal, result)
	case router.RouteDAG:
		err = e.runDAG(ctx, goal, result)
	case router.RouteAppBuild:
		err = e.runAppBuild(ctx, goal, result)
	}

	if ctx.Err() != nil {
		result.Cancelled = true
		result.Success = false
		err = nil
	}
	if result.Cancelled {
		result.Response = cancelledSummary(result.Response)
	}

	result.Duration = time.Since(started)
	e.metrics.duration.WithLabelValues(string(result.Route)).Observe(result.Duration.Seconds())
	e.metrics.requests.WithLabelValues(string(result.Route), outcomeLabel(result, err)).Inc()

	if err != nil {
		e.events.OnEvent(ports.Event{Type: ports.EventError, Content: err.Error()})
		return result, err
	}
	e.events.OnEvent(ports.Event{Type: ports.EventDone})
	return result, nil
}

// runSimple answers directly: the quality pipeline for standalone
// code-generation requests, a single tool-less assistant pass otherwise.
func (e *Engine) runSimple(ctx context.Context, goal string, result *PipelineResult) error {
	if quality.IsCodeGenerationRequest(goal) {
		pipeline := quality.New(quality.Options{
			Client:       e.opts.Client,
			Events:       e.events,
			Logger:       e.logger,
			Candidates:   e.opts.QualityCandidates,
			RewriteBelow: e.opts.QualityRewriteBelow,
		})
		qualityResult, err := pipeline.Run(ctx, goal)
		if err != nil {
			return err
		}
		result.Quality = qualityResult
		result.Response = qualityResult.FinalText
		result.Success = true
		return nil
	}

	driver, err := react.New(react.Options{
		Client:        e.opts.Client,
		Tools:         toolregistry.Empty(),
		Events:        e.events,
		Logger:        e.logger,
		MaxIterations: 3,
		ThinkMode:     e.opts.ThinkMode,
	})
	if err != nil {
		return err
	}
	outcome, err := driver.Run(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: assistantSystemPrompt},
		{Role: ports.RoleUser, Content: goal},
	})
	if outcome != nil {
		result.TokensUsed += outcome.TokensUsed
		result.Response = outcome.Response
	}
	if err != nil {
		return err
	}
	result.Success = true
	return nil
}

// runStandard drives planner → coder → reviewer, with one coder follow-up
// when the reviewer does not approve.
func (e *Engine) runStandard(ctx context.Context, goal string, result *PipelineResult) error {
	plan, err := e.runSpecialist(ctx, catalog.DomainPlanner, result,
		fmt.Sprintf("Produce a short implementation plan for this request:\n\n%s", goal))
	if err != nil {
		return err
	}

	implementation, err := e.runSpecialist(ctx, catalog.DomainCoder, result,
		fmt.Sprintf("## Request\n%s\n\n## Plan\n%s\n\nImplement the plan.", goal, plan))
	if err != nil {
		return err
	}

	review, err := e.runSpecialist(ctx, catalog.DomainReviewer, result,
		fmt.Sprintf("## Request\n%s\n\n## Implementation\n%s\n\nReview the implementation.", goal, implementation))
	if err != nil {
		return err
	}

	approved := !strings.Contains(strings.ToLower(review), "approved: false")
	if !approved {
		if _, err := e.runSpecialist(ctx, catalog.DomainCoder, result,
			fmt.Sprintf("## Request\n%s\n\n## Review findings\n%s\n\nAddress every issue the reviewer raised.", goal, review)); err != nil {
			return err
		}
	}

	prefix := "✅"
	if !approved {
		prefix = "⚠️"
	}
	result.Response = fmt.Sprintf("%s %s", prefix, review)
	result.Success = true
	return nil
}

// runSpecialist runs one catalog specialist through the ReAct driver and
// returns its final response.
func (e *Engine) runSpecialist(ctx context.Context, domain catalog.Domain, result *PipelineResult, userPrompt string) (string, error) {
	spec, ok := e.opts.Catalog.ForDomain(domain)
	if !ok {
		return "", fmt.Errorf("no agent available for domain %s", domain)
	}

	tools := toolregistry.Empty()
	if spec.RequiresWorkspace {
		tools = e.opts.Registry.Filtered(spec.AllowedTools)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s.\n\n%s\n", spec.DisplayName, spec.Instructions)
	if described := tools.DescribeForPrompt(); described != "" {
		sb.WriteString("\n## Tools\nInvoke tools with <tool_call>{\"tool\":\"<name>\",\"args\":{...}}</tool_call>. Available:\n")
		sb.WriteString(described)
	}
	if e.opts.ContextPrefix != "" {
		sb.WriteString("\n## Workspace context\n")
		sb.WriteString(e.opts.ContextPrefix)
	}

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
		return "", err
	}

	e.events.OnEvent(ports.Event{Type: ports.EventStatus, Content: fmt.Sprintf("▶ %s", spec.DisplayName)})
	outcome, err := driver.Run(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: sb.String()},
		{Role: ports.RoleUser, Content: userPrompt},
	})
	if outcome != nil {
		result.TokensUsed += outcome.TokensUsed
	}
	if err != nil {
		return "", err
	}
	return outcome.Response, nil
}

// runDAG decomposes the goal and executes the graph tier by tier.
func (e *Engine) runDAG(ctx context.Context, goal string, result *PipelineResult) error {
	decomposer := decompose.New(e.opts.Client)
	graph := decomposer.Decompose(ctx, goal)
	result.Graph = graph
	e.events.OnEvent(ports.Event{
		Type:    ports.EventStatus,
		Content: fmt.Sprintf("Decomposed into %d task(s)", len(graph.Tasks)),
	})

	exec, err := executor.New(executor.Options{
		Client:        e.opts.Client,
		Registry:      e.opts.Registry,
		Catalog:       e.opts.Catalog,
		Events:        e.events,
		Logger:        e.logger,
		MaxParallel:   e.opts.MaxParallel,
		AgentTimeout:  e.opts.AgentTimeout,
		ContextPrefix: e.opts.ContextPrefix,
		WorkspaceRoot: e.opts.WorkspaceRoot,
		ThinkMode:     e.opts.ThinkMode,
		Metrics:       e.opts.ExecutorMetrics,
	})
	if err != nil {
		return err
	}

	execution := exec.Execute(ctx, graph)
	result.Execution = execution
	result.Cancelled = execution.Cancelled
	result.Success = execution.Success(e.critical)
	for _, taskResult := range execution.Results {
		result.TokensUsed += taskResult.TokensUsed
	}
	result.Response = renderTaskSummary(graph, execution, result.Success)
	return nil
}

// runAppBuild delegates to the fixed eight-phase pipeline.
func (e *Engine) runAppBuild(ctx context.Context, goal string, result *PipelineResult) error {
	pipeline, err := appbuilder.New(appbuilder.Options{
		Client:        e.opts.Client,
		Registry:      e.opts.Registry,
		Catalog:       e.opts.Catalog,
		Events:        e.events,
		Logger:        e.logger,
		WorkspaceRoot: e.opts.WorkspaceRoot,
		ContextPrefix: e.opts.ContextPrefix,
	})
	if err != nil {
		return err
	}

	appResult, err := pipeline.Run(ctx, goal)
	result.App = appResult
	if appResult != nil {
		result.Response = appResult.Summary
		result.Cancelled = appResult.Cancelled
		result.Success = appResult.Success
	}
	return err
}

func outcomeLabel(result *PipelineResult, err error) string {
	switch {
	case result.Cancelled:
		return "cancelled"
	case err != nil, !result.Success:
		return "failure"
	default:
		return "success"
	}
}
