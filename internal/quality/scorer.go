// Package quality implements the K-candidate generation, hybrid scoring and
// optional rewrite pass wrapped around single-turn code generation.
package quality

import (
	"regexp"
	"strings"
)

// Breakdown explains a candidate's combined score.
type Breakdown struct {
	ProgrammaticScore int      `json:"programmaticScore"`
	LearnedScore      int      `json:"learnedScore"`
	Combined          int      `json:"combined"`
	Checks            []string `json:"checks"`
	CriticNotes       string   `json:"criticNotes,omitempty"`
}

// Candidate is one generated answer with its score.
type Candidate struct {
	Index     int       `json:"index"`
	Text      string    `json:"text"`
	Score     int       `json:"score"`
	Breakdown Breakdown `json:"breakdown"`
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\n.*?```")

	bannedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\beval\(`),
		regexp.MustCompile(`new Function\(`),
		regexp.MustCompile(`process\.env\.\w+\s*===?\s*["']`),
		regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*["'][A-Za-z0-9+/_\-]{8,}["']`),
		regexp.MustCompile(`:\s*any\b`),
	}

	cotOpeners = []string{
		"let me think", "let's think", "first, i'll", "first i'll",
		"step 1:", "thinking through", "let me break this down",
		"to solve this, i will",
	}

	functionStartRe = regexp.MustCompile(`(?m)^\s*(func |function |def |const \w+ = |export function )`)
)

// longest contiguous function body estimate thresholds, in lines.
const (
	functionHardLimit = 200
	functionSoftLimit = 60
)

// ScoreProgrammatic rates a candidate 0..100 with deterministic checks on
// the required 4-part structure (summary / code / tests / notes), banned
// patterns inside code blocks, leaked chain-of-thought and function length.
// Every penalty is recorded in the breakdown checks.
func ScoreProgrammatic(text string) (int, []string) {
	score := 100
	var checks []string
	penalize := func(points int, reason string) {
		score -= points
		checks = append(checks, reason)
	}

	lower := strings.ToLower(text)
	blocks := fencedBlockRe.FindAllString(text, -1)

	hasSummary := strings.Contains(lower, "one-line summary:")
	hasCode := len(blocks) >= 1
	hasTests := strings.Contains(lower, "test")
	hasNotes := strings.Contains(lower, "notes:") || strings.Contains(lower, "\n- ")

	structureParts := 0
	for _, present := range []bool{hasSummary, hasCode, hasTests, hasNotes} {
		if present {
			structureParts++
		}
	}
	if structureParts < 2 {
		penalize(30, "missing overall 4-part structure")
	}
	if !hasSummary {
		penalize(10, "missing one-line summary")
	}
	if !hasCode {
		penalize(20, "missing fenced code block")
	}
	if !hasTests {
		penalize(10, "missing tests section")
	}
	if !hasNotes {
		penalize(5, "missing notes section")
	}

	for _, block := range blocks {
		for _, pattern := range bannedPatterns {
			if pattern.MatchString(block) {
				penalize(10, "banned pattern in code: "+pattern.String())
			}
		}
	}

	for _, opener := range cotOpeners {
		if strings.Contains(lower, opener) {
			penalize(25, "chain-of-thought leak: "+opener)
			break
		}
	}

	if len(blocks) > 3 {
		penalize(10, "more than 3 code blocks")
	}

	switch longest := estimateMaxFunctionLines(blocks); {
	case longest > functionHardLimit:
		penalize(15, "function longer than 200 lines")
	case longest > functionSoftLimit:
		penalize(5, "function longer than 60 lines")
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, checks
}

// estimateMaxFunctionLines approximates the longest function in the code
// blocks by measuring the distance between function starts.
func estimateMaxFunctionLines(blocks []string) int {
	longest := 0
	for _, block := range blocks {
		lines := strings.Split(block, "\n")
		starts := []int{}
		for i, line := range lines {
			if functionStartRe.MatchString(line) {
				starts = append(starts, i)
			}
		}
		for i, start := range starts {
			end := len(lines)
			if i+1 < len(starts) {
				end = starts[i+1]
			}
			if length := end - start; length > longest {
				longest = length
			}
		}
	}
	return longest
}
