package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"maestro/internal/agent/ports"
	"maestro/internal/catalog"
	"maestro/internal/config"
	"maestro/internal/llm"
	"maestro/internal/logging"
	"maestro/internal/mcp"
	"maestro/internal/orchestrator"
	"maestro/internal/toolregistry"
	"maestro/internal/tools"
	"maestro/internal/workspace"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <goal>",
		Short: "Run one goal end to end",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGoal(strings.Join(args, " "))
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}
	if flagWorkspace != "" {
		cfg.Workspace = flagWorkspace
	}
	if flagModel != "" {
		cfg.Model = flagModel
	}
	if flagThink {
		cfg.ThinkMode = true
	}
	return cfg, nil
}

func runGoal(goal string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := logging.NewComponentLogger("cli")

	client := llm.NewRetryClient(llm.NewOpenAIClient(cfg.Model, llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	}))

	registry, err := toolregistry.NewRegistry(tools.Builtins()...)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, server := range cfg.MCPServers {
		mcpClient, err := mcp.Connect(ctx, mcp.ServerConfig{
			Name:    server.Name,
			Command: server.Command,
			Args:    server.Args,
		})
		if err != nil {
			logger.Warn("mcp server %s unavailable: %v", server.Name, err)
			continue
		}
		defer mcpClient.Close()
		adapted, err := mcp.AdaptTools(ctx, mcpClient)
		if err != nil {
			logger.Warn("mcp server %s tool listing failed: %v", server.Name, err)
			continue
		}
		for _, tool := range adapted {
			if err := registry.Register(tool); err != nil {
				logger.Warn("mcp tool registration failed: %v", err)
			}
		}
	}

	assembler := &workspace.Assembler{Root: cfg.Workspace, Logger: logger}
	contextPrefix := assembler.Assemble(ctx, goal, workspace.EditorState{}, nil)

	agents := catalog.New()
	if cfg.AgentsFile != "" {
		if err := agents.LoadFile(cfg.AgentsFile); err != nil {
			return err
		}
	}

	critical := orchestrator.DefaultCriticalDomains()
	for _, domain := range cfg.NonCriticalDomains {
		critical[catalog.Domain(domain)] = false
	}

	engine, err := orchestrator.New(orchestrator.Options{
		Client:              client,
		Registry:            registry,
		Catalog:             agents,
		Events:              ports.EventListenerFunc(printEvent),
		Logger:              logger,
		WorkspaceRoot:       cfg.Workspace,
		ContextPrefix:       contextPrefix,
		ThinkMode:           cfg.ThinkMode,
		ComplexityThreshold: cfg.ComplexityThreshold,
		MaxParallel:         cfg.MaxParallel,
		AgentTimeout:        cfg.AgentTimeout,
		QualityCandidates:   cfg.QualityCandidates,
		QualityRewriteBelow: cfg.QualityRewriteBelow,
		CriticalDomains:     critical,
	})
	if err != nil {
		return err
	}

	started := time.Now()
	result, err := engine.Run(ctx, goal)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(result.Response)
	fmt.Println()

	summary := color.New(color.Faint)
	summary.Printf("route=%s tokens=%d duration=%s\n",
		result.Route, result.TokensUsed, time.Since(started).Round(time.Millisecond))
	if !result.Success {
		os.Exit(1)
	}
	return nil
}

var (
	statusColor   = color.New(color.FgCyan)
	thinkingColor = color.New(color.Faint)
	toolColor     = color.New(color.FgYellow)
	errorColor    = color.New(color.FgRed)
)

func printEvent(event ports.Event) {
	switch event.Type {
	case ports.EventStatus:
		if flagVerbose {
			statusColor.Fprintln(os.Stderr, event.Content)
		}
	case ports.EventThinking:
		if flagVerbose {
			thinkingColor.Fprintln(os.Stderr, event.Content)
		}
	case ports.EventToolCall:
		if flagVerbose {
			toolColor.Fprintf(os.Stderr, "→ %s\n", event.Content)
		}
	case ports.EventToolResult:
		if flagVerbose {
			toolColor.Fprintf(os.Stderr, "← %s\n", firstLine(event.Content))
		}
	case ports.EventError:
		errorColor.Fprintln(os.Stderr, event.Content)
	}
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
