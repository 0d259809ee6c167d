package parser

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"maestro/internal/agent/ports"
)

func randomCall(rng *rand.Rand) ports.ToolCall {
	names := []string{"read_file", "write_file", "search_files", "run_shell", "listTools9"}
	args := map[string]any{}
	for i := 0; i < rng.Intn(4); i++ {
		key := fmt.Sprintf("arg%d", i)
		switch rng.Intn(3) {
		case 0:
			args[key] = fmt.Sprintf("value-%d", rng.Intn(1000))
		case 1:
			args[key] = float64(rng.Intn(1000))
		default:
			args[key] = rng.Intn(2) == 0
		}
	}
	return ports.ToolCall{Tool: names[rng.Intn(len(names))], Args: args}
}

func TestSerializeParseRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		calls := make([]ports.ToolCall, rng.Intn(5))
		for i := range calls {
			calls[i] = randomCall(rng)
		}

		parsed := ParseToolCalls(SerializeToolCalls(calls))
		if len(calls) == 0 {
			if len(parsed) != 0 {
				t.Fatalf("round %d: parsed %d calls from empty input", round, len(parsed))
			}
			continue
		}
		if !reflect.DeepEqual(parsed, calls) {
			t.Fatalf("round %d: roundtrip mismatch\nwant %#v\ngot  %#v", round, calls, parsed)
		}
	}
}

func TestStripToolCallsPreservesSurroundingText(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	segments := []string{
		"I'll read the file first.\n",
		"Some **markdown** with <b>tags</b> and unicode: héllo → ok.\n",
		"",
		"line one\nline two\n",
		"trailing text without newline",
	}

	for round := 0; round < 100; round++ {
		var content, want strings.Builder
		for i := 0; i < 4; i++ {
			segment := segments[rng.Intn(len(segments))]
			content.WriteString(segment)
			want.WriteString(segment)
			if rng.Intn(2) == 0 {
				content.WriteString(SerializeToolCalls([]ports.ToolCall{randomCall(rng)}))
			}
		}

		got := StripToolCalls(content.String())
		if got != want.String() {
			t.Fatalf("round %d: surrounding text altered\nwant %q\ngot  %q", round, want.String(), got)
		}
	}
}

func TestParseToolCallsMalformedBlocks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    int
	}{
		{"invalid json", `<tool_call>{not json}</tool_call>`, 0},
		{"missing tool field", `<tool_call>{"args":{}}</tool_call>`, 0},
		{"invalid tool name", `<tool_call>{"tool":"9bad name"}</tool_call>`, 0},
		{"unterminated block", `<tool_call>{"tool":"read_file"}`, 0},
		{"valid among malformed", `<tool_call>{broken</tool_call> middle <tool_call>{"tool":"read_file"}</tool_call>`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseToolCalls(tt.content); len(got) != tt.want {
				t.Fatalf("got %d calls, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseToolCallsDefaultsArgs(t *testing.T) {
	calls := ParseToolCalls(`<tool_call>{"tool":"read_file"}</tool_call>`)
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1", len(calls))
	}
	if calls[0].Args == nil || len(calls[0].Args) != 0 {
		t.Fatalf("args not defaulted to empty map: %#v", calls[0].Args)
	}
}

func TestUnterminatedBlockPreservedInRemainder(t *testing.T) {
	content := `before <tool_call>{"tool":"read_file"}`
	if got := StripToolCalls(content); got != content {
		t.Fatalf("unterminated block should be left in place, got %q", got)
	}
}

func TestExtractThink(t *testing.T) {
	tests := []struct {
		name          string
		content       string
		wantThinking  string
		wantRemainder string
	}{
		{"no think", "plain text", "", "plain text"},
		{"single block", "a<think>reason</think>b", "reason", "ab"},
		{"two blocks", "<think>one</think>mid<think>two</think>", "one\n\ntwo", "mid"},
		{"unterminated", "head<think>tail thoughts", "tail thoughts", "head"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			thinking, remainder := ExtractThink(tt.content)
			if thinking != tt.wantThinking || remainder != tt.wantRemainder {
				t.Fatalf("got (%q, %q), want (%q, %q)", thinking, remainder, tt.wantThinking, tt.wantRemainder)
			}
		})
	}
}

func TestWrapToolResultsTruncates(t *testing.T) {
	long := strings.Repeat("x", 500)
	wrapped := WrapToolResults([]ports.ToolResult{
		{Tool: "read_file", Content: long, Success: true},
		{Tool: "run_shell", Content: "short", Success: false},
	}, 100)

	if !strings.Contains(wrapped, `<tool_result tool="read_file" success="true">`) {
		t.Fatalf("missing first result header: %s", wrapped)
	}
	if !strings.Contains(wrapped, "... (truncated)") {
		t.Fatal("long result not truncated")
	}
	if !strings.Contains(wrapped, `<tool_result tool="run_shell" success="false">short</tool_result>`) {
		t.Fatalf("missing second result: %s", wrapped)
	}
}
