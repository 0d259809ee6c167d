package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"maestro/internal/agent/ports"
)

const maxSearchMatches = 100

var searchIgnoredDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true,
	"build": true, ".idea": true, ".vscode": true, "__pycache__": true,
}

// SearchFiles greps the workspace for a regular expression.
type SearchFiles struct{}

func (SearchFiles) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "search_files",
		Description: "Search workspace files for a regular expression, returning path:line matches.",
		Parameters: map[string]ports.ParameterSpec{
			"pattern": {Type: "string", Description: "Go regular expression", Required: true},
			"path":    {Type: "string", Description: "Subdirectory to search, default the workspace root"},
		},
	}
}

func (SearchFiles) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	pattern, _ := args["pattern"].(string)
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}
	subdir, _ := args["path"].(string)
	if subdir == "" {
		subdir = "."
	}
	root, err := resolvePath(execCtx, subdir)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	matches := 0
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if searchIgnoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if matches >= maxSearchMatches {
			return filepath.SkipAll
		}

		file, err := os.Open(path)
		if err != nil {
			return nil
		}
		defer file.Close()

		relative, _ := filepath.Rel(root, path)
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if re.MatchString(line) {
				fmt.Fprintf(&sb, "%s:%d: %s\n", relative, lineNo, strings.TrimSpace(line))
				matches++
				if matches >= maxSearchMatches {
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil && walkErr != filepath.SkipAll {
		return "", walkErr
	}
	if matches == 0 {
		return "No matches.", nil
	}
	if matches >= maxSearchMatches {
		fmt.Fprintf(&sb, "... (stopped at %d matches)\n", maxSearchMatches)
	}
	return sb.String(), nil
}
