package quality

import (
	"math/rand"
	"strings"
	"testing"
)

func wellFormedAnswer() string {
	return "One-line summary: Adds two numbers.\n\n" +
		"```go\nfunc Add(a, b int) int {\n\treturn a + b\n}\n```\n\n" +
		"Tests:\n```go\nfunc TestAdd(t *testing.T) {\n\tif Add(1, 2) != 3 {\n\t\tt.Fatal(\"sum\")\n\t}\n}\n```\n\n" +
		"Notes:\n- Pure function, no overflow handling.\n"
}

func TestScoreProgrammaticPerfectAnswer(t *testing.T) {
	score, checks := ScoreProgrammatic(wellFormedAnswer())
	if score != 100 {
		t.Fatalf("score = %d, checks = %v", score, checks)
	}
	if len(checks) != 0 {
		t.Fatalf("unexpected checks: %v", checks)
	}
}

// Each degradation of a perfect answer must strictly lower the score, and
// the penalty must appear in the checks.
func TestScoreProgrammaticDegradations(t *testing.T) {
	base := wellFormedAnswer()
	tests := []struct {
		name      string
		text      string
		wantCheck string
	}{
		{"summary removed", strings.Replace(base, "One-line summary:", "Summary:", 1), "missing one-line summary"},
		{"tests removed", strings.NewReplacer("Tests:", "More:", "TestAdd", "CheckAdd", "t *testing.T", "x *X", "t.Fatal", "x.Fail").Replace(base), "missing tests section"},
		{"banned eval", strings.Replace(base, "return a + b", "return eval(\"a+b\")", 1), "banned pattern in code"},
		{"hardcoded secret", strings.Replace(base, "return a + b", "api_key = \"sk1234567890abcd\"\n\treturn a + b", 1), "banned pattern in code"},
		{"chain of thought leak", base + "\nLet me think about edge cases.", "chain-of-thought leak"},
		{"too many blocks", base + "\n```go\nvar a = 1\n```\n\n```go\nvar b = 2\n```\n", "more than 3 code blocks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, checks := ScoreProgrammatic(tt.text)
			if score >= 100 {
				t.Fatalf("degraded answer still scores %d", score)
			}
			var found bool
			for _, check := range checks {
				if strings.Contains(check, tt.wantCheck) {
					found = true
				}
			}
			if !found {
				t.Fatalf("checks %v missing %q", checks, tt.wantCheck)
			}
		})
	}
}

func TestScoreProgrammaticFunctionLength(t *testing.T) {
	longBody := func(lines int) string {
		var sb strings.Builder
		sb.WriteString("One-line summary: Big function.\n\n```go\nfunc Big() {\n")
		for i := 0; i < lines; i++ {
			sb.WriteString("\t_ = 1\n")
		}
		sb.WriteString("}\n```\n\nTests:\n```go\nfunc TestBig(t *testing.T) {}\n```\n\nNotes:\n- long\n")
		return sb.String()
	}

	soft, _ := ScoreProgrammatic(longBody(80))
	hard, _ := ScoreProgrammatic(longBody(250))
	short, _ := ScoreProgrammatic(longBody(10))

	if short != 100 {
		t.Fatalf("short function scored %d", short)
	}
	if soft != 95 {
		t.Fatalf("soft limit penalty: got %d, want 95", soft)
	}
	if hard != 85 {
		t.Fatalf("hard limit penalty: got %d, want 85", hard)
	}
}

func TestScoreProgrammaticBareRefusalHitsZero(t *testing.T) {
	score, _ := ScoreProgrammatic("Let me think about this. I cannot answer.")
	if score != 0 {
		t.Fatalf("score = %d, want 0", score)
	}
}

// TestScoreProgrammaticBounds assembles random fragments and asserts the
// score never leaves [0, 100].
func TestScoreProgrammaticBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	fragments := []string{
		"One-line summary: x.\n",
		"```go\nfunc F() { eval(\"x\") }\n```\n",
		"```js\nconst key: any = \"value\";\n```\n",
		"Tests:\n```go\nfunc TestF(t *testing.T) {}\n```\n",
		"Notes:\n- note\n",
		"Let me think about this problem.\n",
		"Step 1: do the thing.\n",
		"password = \"hunter2hunter2\"\n",
		strings.Repeat("filler text ", 40) + "\n",
	}

	for round := 0; round < 300; round++ {
		var sb strings.Builder
		for i := 0; i < rng.Intn(8); i++ {
			sb.WriteString(fragments[rng.Intn(len(fragments))])
		}
		score, _ := ScoreProgrammatic(sb.String())
		if score < 0 || score > 100 {
			t.Fatalf("round %d: score %d out of bounds for:\n%s", round, score, sb.String())
		}
	}
}

func TestEstimateMaxFunctionLines(t *testing.T) {
	block := "```go\nfunc A() {\n\t_ = 1\n\t_ = 2\n}\n\nfunc B() {\n\t_ = 1\n}\n```"
	if got := estimateMaxFunctionLines([]string{block}); got != 5 {
		t.Fatalf("longest = %d, want 5", got)
	}
	if got := estimateMaxFunctionLines(nil); got != 0 {
		t.Fatalf("no blocks = %d", got)
	}
}
