package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// CleanJSON normalizes model-produced JSON: markdown fences are removed,
// '#' and '//' line comments outside strings are stripped, and trailing
// commas before a closing bracket are dropped. A document without any of
// those artifacts passes through with the same value.
func CleanJSON(raw string) string {
	text := stripFences(strings.TrimSpace(raw))
	text = stripLineComments(text)
	text = stripTrailingCommas(text)
	return strings.TrimSpace(text)
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// stripLineComments removes '#' and '//' comments that appear outside string
// literals. String state is tracked across the whole document so comment
// markers inside values are preserved.
func stripLineComments(text string) string {
	var sb strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch {
		case c == '"':
			inString = true
			sb.WriteByte(c)
		case c == '#':
			i = skipToLineEnd(text, i)
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			i = skipToLineEnd(text, i)
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func skipToLineEnd(text string, i int) int {
	for i < len(text) && text[i] != '\n' {
		i++
	}
	return i - 1
}

func stripTrailingCommas(text string) string {
	var sb strings.Builder
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			sb.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			sb.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(text) && (text[j] == ' ' || text[j] == '\t' || text[j] == '\n' || text[j] == '\r') {
				j++
			}
			if j < len(text) && (text[j] == '}' || text[j] == ']') {
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// DecodeObject decodes a model response that is expected to contain one JSON
// object, tolerating fences, comments, trailing commas and surrounding prose.
// Recovery order: cleaned text, jsonrepair, outermost bracketed substring.
func DecodeObject(raw string, out any) error {
	cleaned := CleanJSON(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	if repaired, err := jsonrepair.JSONRepair(cleaned); err == nil {
		if err := json.Unmarshal([]byte(repaired), out); err == nil {
			return nil
		}
	}

	if sub, ok := bracketedSubstring(cleaned); ok {
		if err := json.Unmarshal([]byte(sub), out); err == nil {
			return nil
		}
		if repaired, err := jsonrepair.JSONRepair(sub); err == nil {
			if err := json.Unmarshal([]byte(repaired), out); err == nil {
				return nil
			}
		}
	}

	return fmt.Errorf("no JSON object recoverable from response (%d bytes)", len(raw))
}

// bracketedSubstring returns the substring spanning the first '{' through the
// last '}' of the text.
func bracketedSubstring(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
