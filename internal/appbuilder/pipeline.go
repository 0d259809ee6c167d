package appbuilder

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/catalog"
	"maestro/internal/logging"
	"maestro/internal/react"
	"maestro/internal/toolregistry"
)

// PhaseStatus is one row of the final phase table.
type PhaseStatus struct {
	Name     string
	Domain   catalog.Domain
	Ran      bool
	Success  bool
	Skipped  bool
	Error    string
	Duration time.Duration
}

// Result aggregates a pipeline run.
type Result struct {
	Spec         *ArchitectureSpec
	Phases       []PhaseStatus
	FilesCreated []string
	Cancelled    bool
	Success      bool
	Summary      string
	Duration     time.Duration
}

// Options configures the pipeline.
type Options struct {
	Client        ports.LLMClient
	Registry      *toolregistry.Registry
	Catalog       *catalog.Catalog
	Events        ports.EventListener
	Logger        logging.Logger
	WorkspaceRoot string
	ContextPrefix string
}

// Pipeline executes the eight phases sequentially.
type Pipeline struct {
	opts   Options
	events ports.EventListener
	logger logging.Logger
}

// New constructs a pipeline.
func New(opts Options) (*Pipeline, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("appbuilder: LLM client is required")
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("appbuilder: tool registry is required")
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("appbuilder: agent catalog is required")
	}
	return &Pipeline{
		opts:   opts,
		events: ports.OrNop(opts.Events),
		logger: logging.OrNop(opts.Logger),
	}, nil
}

type phase struct {
	name   string
	domain catalog.Domain
	prompt func(spec *ArchitectureSpec) string
	// skip reports whether the phase does not apply to this spec.
	skip func(spec *ArchitectureSpec) bool
}

func phases() []phase {
	return []phase{
		{name: "scaffold", domain: catalog.DomainCoder, prompt: scaffoldPrompt},
		{name: "backend", domain: catalog.DomainBackend, prompt: backendPrompt,
			skip: func(spec *ArchitectureSpec) bool { return spec.TechStack.Backend == "none" }},
		{name: "frontend", domain: catalog.DomainFrontend, prompt: frontendPrompt},
		{name: "tests", domain: catalog.DomainTesting, prompt: testsPrompt},
		{name: "security", domain: catalog.DomainSecurity, prompt: securityPrompt},
		{name: "devops", domain: catalog.DomainDevOps, prompt: devopsPrompt},
		{name: "docs", domain: catalog.DomainDocs, prompt: docsPrompt},
	}
}

// Run executes the pipeline. Only a failed architect phase aborts; every
// later phase failure logs, emits a warning and continues, but any failed
// phase clears the final success flag.
func (p *Pipeline) Run(ctx context.Context, goal string) (*Result, error) {
	started := time.Now()
	result := &Result{}

	p.events.OnEvent(ports.Event{Type: ports.EventStatus, Content: "Phase 1/8: architect"})
	spec, err := designArchitecture(ctx, p.opts.Client, goal)
	archPhase := PhaseStatus{Name: "architect", Domain: catalog.DomainArchitect, Ran: true}
	if err != nil {
		archPhase.Error = err.Error()
		result.Phases = append(result.Phases, archPhase)
		result.Duration = time.Since(started)
		result.Summary = renderSummary(result)
		return result, fmt.Errorf("app pipeline aborted: %w", err)
	}
	archPhase.Success = true
	result.Phases = append(result.Phases, archPhase)
	result.Spec = spec

	seen := make(map[string]bool)
	for i, ph := range phases() {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		p.events.OnEvent(ports.Event{
			Type:    ports.EventStatus,
			Content: fmt.Sprintf("Phase %d/8: %s", i+2, ph.name),
		})

		status := PhaseStatus{Name: ph.name, Domain: ph.domain}
		if ph.skip != nil && ph.skip(spec) {
			status.Skipped = true
			result.Phases = append(result.Phases, status)
			continue
		}

		phaseStarted := time.Now()
		files, err := p.runPhase(ctx, ph, spec)
		status.Ran = true
		status.Duration = time.Since(phaseStarted)
		if err != nil {
			status.Error = err.Error()
			p.logger.Warn("phase %s failed: %v", ph.name, err)
			p.events.OnEvent(ports.Event{
				Type:    ports.EventStatus,
				Content: fmt.Sprintf("⚠️ phase %s failed: %v", ph.name, err),
			})
		} else {
			status.Success = true
			for _, file := range files {
				if !seen[file] {
					seen[file] = true
					result.FilesCreated = append(result.FilesCreated, file)
				}
			}
		}
		result.Phases = append(result.Phases, status)
	}

	if ctx.Err() != nil {
		result.Cancelled = true
	}
	failed := 0
	for _, ph := range result.Phases {
		if ph.Ran && !ph.Success {
			failed++
		}
	}
	result.Success = !result.Cancelled && failed == 0
	result.Duration = time.Since(started)
	result.Summary = renderSummary(result)
	return result, nil
}

func (p *Pipeline) runPhase(ctx context.Context, ph phase, spec *ArchitectureSpec) ([]string, error) {
	agentSpec, ok := p.opts.Catalog.ForDomain(ph.domain)
	if !ok {
		return nil, fmt.Errorf("no agent for domain %s", ph.domain)
	}

	tools := p.opts.Registry.Filtered(agentSpec.AllowedTools)
	systemPrompt := fmt.Sprintf("You are %s.\n\n%s\n\n## Tools\nInvoke tools with <tool_call>{\"tool\":\"<name>\",\"args\":{...}}</tool_call>. Available:\n%s",
		agentSpec.DisplayName, agentSpec.Instructions, tools.DescribeForPrompt())
	if p.opts.ContextPrefix != "" {
		systemPrompt += "\n## Workspace context\n" + p.opts.ContextPrefix
	}

	driver, err := react.New(react.Options{
		Client:        p.opts.Client,
		Tools:         tools,
		ExecCtx:       ports.ExecutionContext{WorkspaceRoot: p.opts.WorkspaceRoot, Events: p.events},
		Events:        p.events,
		Logger:        p.logger,
		MaxIterations: agentSpec.MaxIterations,
	})
	if err != nil {
		return nil, err
	}

	outcome, err := driver.Run(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: systemPrompt},
		{Role: ports.RoleUser, Content: ph.prompt(spec)},
	})
	if err != nil {
		return nil, err
	}
	return createdFiles(outcome.ToolRecords), nil
}

var writtenPathRe = regexp.MustCompile(`[\w./-]+\.[A-Za-z0-9]{1,8}`)

// createdFiles extracts file paths from successful write/edit tool reports.
func createdFiles(records []ports.ToolResult) []string {
	var files []string
	for _, record := range records {
		if !record.Success {
			continue
		}
		if record.Tool != "write_file" && record.Tool != "edit_file" {
			continue
		}
		if path, ok := record.Args["path"].(string); ok && path != "" {
			files = append(files, path)
			continue
		}
		if match := writtenPathRe.FindString(record.Content); match != "" {
			files = append(files, match)
		}
	}
	return files
}

func renderSummary(result *Result) string {
	var sb strings.Builder
	if result.Cancelled {
		sb.WriteString("App pipeline cancelled.\n\n")
	}
	sb.WriteString("| Phase | Status |\n|---|---|\n")
	for _, ph := range result.Phases {
		status := "❌ failed"
		switch {
		case ph.Skipped:
			status = "⏭️ skipped"
		case ph.Success:
			status = "✅ ok"
		case !ph.Ran:
			status = "⏹ not run"
		}
		fmt.Fprintf(&sb, "| %s | %s |\n", ph.Name, status)
	}
	// Pad the table to the full eight rows when the run stopped early.
	for i := len(result.Phases); i < 8; i++ {
		name := "-"
		if i == 0 {
			name = "architect"
		} else if i-1 < len(phases()) {
			name = phases()[i-1].name
		}
		fmt.Fprintf(&sb, "| %s | ⏹ not run |\n", name)
	}
	if len(result.FilesCreated) > 0 {
		fmt.Fprintf(&sb, "\nFiles created (%d):\n", len(result.FilesCreated))
		for _, file := range result.FilesCreated {
			fmt.Fprintf(&sb, "- %s\n", file)
		}
	}
	return sb.String()
}
