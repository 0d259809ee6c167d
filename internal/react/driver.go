// Package react implements the single-agent reason+act loop: stream a model
// response, extract structured tool calls, execute them, inject the results
// and repeat until the model stops calling tools.
package react

import (
	"context"
	"fmt"
	"strings"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/logging"
	"maestro/internal/parser"
)

const (
	// resultCharLimit bounds each tool result injected back into the
	// conversation.
	resultCharLimit = 20000
	// displayCharLimit bounds tool results forwarded to the UI.
	displayCharLimit = 800

	defaultMaxIterations = 10
)

// Options configures one driver run.
type Options struct {
	Client        ports.LLMClient
	Tools         ports.ToolRegistry
	ExecCtx       ports.ExecutionContext
	Events        ports.EventListener
	Logger        logging.Logger
	MaxIterations int
	Temperature   float64
	TopP          float64
	MaxTokens     int
	StopSequences []string
	ThinkMode     bool
	ThinkBudget   int
}

// Outcome is the result of one driver run.
type Outcome struct {
	Response        string
	Messages        []ports.Message
	ToolRecords     []ports.ToolResult
	Iterations      int
	TokensUsed      int
	HitIterationCap bool
}

// Driver runs the ReAct loop over a fixed option set.
type Driver struct {
	opts   Options
	events ports.EventListener
	logger logging.Logger
}

// New constructs a driver. Client is required; everything else has a
// usable default.
func New(opts Options) (*Driver, error) {
	if opts.Client == nil {
		return nil, fmt.Errorf("react: LLM client is required")
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	return &Driver{
		opts:   opts,
		events: ports.OrNop(opts.Events),
		logger: logging.OrNop(opts.Logger),
	}, nil
}

// Run drives the loop from the seeded messages until the model produces no
// tool calls, the iteration cap is hit, or the context is cancelled. The
// cap bounds tool rounds: after MaxIterations rounds the model gets one
// final turn, and a further tool request is the "max steps" soft failure.
//
// Every assistant message appended to the conversation is the raw model
// output, tool_call XML included; every tool_result message is synthesized
// by the driver. The conversation shape is therefore deterministic given
// the model outputs and tool results.
func (d *Driver) Run(ctx context.Context, seed []ports.Message) (*Outcome, error) {
	messages := append([]ports.Message(nil), seed...)
	outcome := &Outcome{}

	// Non-tool text from every completed turn; failure paths return it as
	// the partial response instead of dropping it.
	var partial strings.Builder

	for iteration := 1; ; iteration++ {
		if err := ctx.Err(); err != nil {
			d.events.OnEvent(ports.Event{Type: ports.EventError, Content: "cancelled"})
			outcome.Messages = messages
			outcome.Response = strings.TrimSpace(partial.String())
			return outcome, err
		}
		outcome.Iterations = iteration

		resp, err := d.opts.Client.StreamComplete(ctx, ports.CompletionRequest{
			Messages:      messages,
			Temperature:   d.opts.Temperature,
			TopP:          d.opts.TopP,
			MaxTokens:     d.opts.MaxTokens,
			StopSequences: d.opts.StopSequences,
			ThinkMode:     d.opts.ThinkMode,
			ThinkBudget:   d.opts.ThinkBudget,
		}, ports.StreamCallbacks{
			// Raw deltas are accumulated, not forwarded: the full text is
			// parsed before anything reaches the UI.
		})
		if err != nil {
			d.events.OnEvent(ports.Event{Type: ports.EventError, Content: err.Error()})
			outcome.Messages = messages
			outcome.Response = strings.TrimSpace(partial.String())
			return outcome, err
		}
		outcome.TokensUsed += resp.Usage.TotalTokens

		calls, display := d.parseAssistantText(resp.Content)
		if trimmed := strings.TrimSpace(display); trimmed != "" {
			if partial.Len() > 0 {
				partial.WriteString("\n\n")
			}
			partial.WriteString(trimmed)
		}

		// The conversation always receives the raw assistant output.
		messages = append(messages, ports.Message{Role: ports.RoleAssistant, Content: resp.Content})

		if len(calls) == 0 {
			outcome.Response = strings.TrimSpace(display)
			outcome.Messages = messages
			return outcome, nil
		}

		if iteration > d.opts.MaxIterations {
			// Iteration cap: soft failure. Whatever non-tool text the last
			// turn produced is the partial response.
			d.logger.Warn("react loop hit max steps (%d)", d.opts.MaxIterations)
			d.events.OnEvent(ports.Event{Type: ports.EventError, Content: "max steps reached"})
			outcome.HitIterationCap = true
			outcome.Messages = messages
			outcome.Response = strings.TrimSpace(display)
			if outcome.Response == "" {
				outcome.Response = fmt.Sprintf("Stopped after reaching the maximum of %d steps.", d.opts.MaxIterations)
			}
			return outcome, nil
		}

		results := d.executeCalls(ctx, calls)
		outcome.ToolRecords = append(outcome.ToolRecords, results...)

		messages = append(messages, ports.Message{
			Role:    ports.RoleToolResult,
			Content: parser.WrapToolResults(results, resultCharLimit),
		})
	}
}

// parseAssistantText extracts tool calls and emits the per-iteration
// events: thinking first, then the single text event for the non-tool
// remainder, in that order.
func (d *Driver) parseAssistantText(content string) ([]ports.ToolCall, string) {
	calls := parser.ParseToolCallsLogged(content, d.logger)
	display := parser.StripToolCalls(content)

	if d.opts.ThinkMode {
		thinking, remainder := parser.ExtractThink(display)
		display = remainder
		if strings.TrimSpace(thinking) != "" {
			d.events.OnEvent(ports.Event{Type: ports.EventThinking, Content: thinking})
		}
	}

	if trimmed := strings.TrimSpace(display); trimmed != "" {
		d.events.OnEvent(ports.Event{Type: ports.EventText, Content: trimmed})
	}
	return calls, display
}

// executeCalls runs each tool call in document order and reports each
// invocation and its (truncated) result to the UI.
func (d *Driver) executeCalls(ctx context.Context, calls []ports.ToolCall) []ports.ToolResult {
	results := make([]ports.ToolResult, 0, len(calls))
	for _, call := range calls {
		if err := ctx.Err(); err != nil {
			results = append(results, ports.ToolResult{
				Tool:    call.Tool,
				Args:    call.Args,
				Content: fmt.Sprintf("Tool error (%s): cancelled before execution", call.Tool),
				Success: false,
			})
			continue
		}

		d.events.OnEvent(ports.Event{
			Type:    ports.EventToolCall,
			Content: call.Tool,
			Data:    map[string]any{"args": call.Args},
		})

		started := time.Now()
		result := d.opts.Tools.Execute(ctx, call.Tool, call.Args, d.opts.ExecCtx)
		if result.Duration == 0 {
			result.Duration = time.Since(started)
		}
		results = append(results, result)

		d.events.OnEvent(ports.Event{
			Type:    ports.EventToolResult,
			Content: truncate(result.Content, displayCharLimit),
			Data:    map[string]any{"tool": call.Tool, "success": result.Success},
		})
		d.logger.Debug("tool %s success=%t duration=%v", call.Tool, result.Success, result.Duration)
	}
	return results
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
