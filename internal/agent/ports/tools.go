package ports

import (
	"context"
	"time"
)

// ParameterSpec describes one tool parameter.
type ParameterSpec struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolDefinition is the prompt-facing description of a tool.
type ToolDefinition struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Parameters  map[string]ParameterSpec `json:"parameters"`
}

// ExecutionContext carries the environment a tool executes in. Events may be
// nil when the caller does not want tool-side progress reporting.
type ExecutionContext struct {
	WorkspaceRoot string
	Events        EventListener
}

// ToolExecutor is the contract every capability conforms to. File, search,
// shell, diagnostic and MCP implementations all live outside the engine.
type ToolExecutor interface {
	Definition() ToolDefinition
	Execute(ctx context.Context, args map[string]any, execCtx ExecutionContext) (string, error)
}

// ToolCall is one structured tool invocation request extracted from
// assistant output.
type ToolCall struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome of executing one ToolCall.
type ToolResult struct {
	Tool     string
	Args     map[string]any
	Content  string
	Success  bool
	Duration time.Duration
}

// ToolRegistry dispatches tool calls by name.
type ToolRegistry interface {
	Register(tool ToolExecutor) error
	All() []ToolDefinition
	DescribeForPrompt() string
	Execute(ctx context.Context, name string, args map[string]any, execCtx ExecutionContext) ToolResult
}
