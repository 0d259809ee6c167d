// Package parser implements the engine side of the model wire formats:
// <tool_call> extraction, <think> stripping, <tool_result> serialization and
// tolerant JSON decoding for structured model output.
package parser

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"maestro/internal/agent/ports"
	"maestro/internal/logging"
)

const (
	toolCallOpen  = "<tool_call>"
	toolCallClose = "</tool_call>"
	thinkOpen     = "<think>"
	thinkClose    = "</think>"
)

var toolNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// ParseToolCalls extracts all well-formed tool calls from assistant text.
// Blocks that do not parse as a JSON object with a valid "tool" field are
// skipped. Matching is non-nested: each <tool_call> pairs with the next
// closing tag.
func ParseToolCalls(content string) []ports.ToolCall {
	calls, _ := splitToolCalls(content, logging.Nop())
	return calls
}

// ParseToolCallsLogged behaves like ParseToolCalls but reports skipped
// malformed blocks to the logger.
func ParseToolCallsLogged(content string, logger logging.Logger) []ports.ToolCall {
	calls, _ := splitToolCalls(content, logging.OrNop(logger))
	return calls
}

// StripToolCalls returns the text with every <tool_call> block removed.
// Text outside the delimiters is preserved byte-for-byte.
func StripToolCalls(content string) string {
	_, remainder := splitToolCalls(content, logging.Nop())
	return remainder
}

func splitToolCalls(content string, logger logging.Logger) ([]ports.ToolCall, string) {
	var calls []ports.ToolCall
	var remainder strings.Builder

	rest := content
	for {
		start := strings.Index(rest, toolCallOpen)
		if start == -1 {
			remainder.WriteString(rest)
			break
		}
		end := strings.Index(rest[start:], toolCallClose)
		if end == -1 {
			remainder.WriteString(rest)
			break
		}
		end += start

		remainder.WriteString(rest[:start])
		payload := rest[start+len(toolCallOpen) : end]
		rest = rest[end+len(toolCallClose):]

		call, ok := decodeToolCall(payload)
		if !ok {
			logger.Warn("skipping malformed tool_call block: %s", truncateForLog(payload))
			continue
		}
		calls = append(calls, call)
	}

	return calls, remainder.String()
}

func decodeToolCall(payload string) (ports.ToolCall, bool) {
	var call struct {
		Tool string         `json:"tool"`
		Args map[string]any `json:"args"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &call); err != nil {
		return ports.ToolCall{}, false
	}
	if !toolNameRe.MatchString(call.Tool) {
		return ports.ToolCall{}, false
	}
	if call.Args == nil {
		call.Args = map[string]any{}
	}
	return ports.ToolCall{Tool: call.Tool, Args: call.Args}, true
}

// SerializeToolCalls renders tool calls back into the assistant wire format.
// ParseToolCalls(SerializeToolCalls(calls)) round-trips for well-formed calls.
func SerializeToolCalls(calls []ports.ToolCall) string {
	var sb strings.Builder
	for _, call := range calls {
		payload, err := json.Marshal(struct {
			Tool string         `json:"tool"`
			Args map[string]any `json:"args"`
		}{Tool: call.Tool, Args: call.Args})
		if err != nil {
			continue
		}
		sb.WriteString(toolCallOpen)
		sb.Write(payload)
		sb.WriteString(toolCallClose)
	}
	return sb.String()
}

// ExtractThink removes all <think>...</think> blocks, returning their
// concatenated contents and the remaining text. An unterminated think block
// is treated as thinking through end of text.
func ExtractThink(content string) (thinking string, remainder string) {
	var thoughts []string
	var out strings.Builder

	rest := content
	for {
		start := strings.Index(rest, thinkOpen)
		if start == -1 {
			out.WriteString(rest)
			break
		}
		out.WriteString(rest[:start])
		rest = rest[start+len(thinkOpen):]

		end := strings.Index(rest, thinkClose)
		if end == -1 {
			thoughts = append(thoughts, strings.TrimSpace(rest))
			break
		}
		thoughts = append(thoughts, strings.TrimSpace(rest[:end]))
		rest = rest[end+len(thinkClose):]
	}

	return strings.Join(thoughts, "\n\n"), out.String()
}

// WrapToolResults serializes tool results for injection back into the
// conversation. Each result body is truncated to maxChars.
func WrapToolResults(results []ports.ToolResult, maxChars int) string {
	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteByte('\n')
		}
		body := result.Content
		if maxChars > 0 && len(body) > maxChars {
			body = body[:maxChars] + "\n... (truncated)"
		}
		fmt.Fprintf(&sb, `<tool_result tool=%q success="%t">%s</tool_result>`,
			result.Tool, result.Success, body)
	}
	return sb.String()
}

func truncateForLog(s string) string {
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
