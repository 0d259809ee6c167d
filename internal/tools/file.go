// Package tools provides the built-in workspace tool executors: file
// reads and writes, directory listing, content search and shell commands.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"maestro/internal/agent/ports"
)

const maxReadBytes = 256 * 1024

// resolvePath joins a tool-supplied path with the workspace root and
// rejects escapes above it.
func resolvePath(execCtx ports.ExecutionContext, path string) (string, error) {
	root := execCtx.WorkspaceRoot
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	joined := filepath.Clean(filepath.Join(absRoot, path))
	if joined != absRoot && !strings.HasPrefix(joined, absRoot+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return joined, nil
}

// ReadFile reads one file, optionally a line range.
type ReadFile struct{}

func (ReadFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "read_file",
		Description: "Read a file from the workspace. Large files are truncated.",
		Parameters: map[string]ports.ParameterSpec{
			"path": {Type: "string", Description: "Path relative to the workspace root", Required: true},
		},
	}
}

func (ReadFile) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	path, _ := args["path"].(string)
	resolved, err := resolvePath(execCtx, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	if len(data) > maxReadBytes {
		return string(data[:maxReadBytes]) + "\n... (truncated)", nil
	}
	return string(data), nil
}

// WriteFile creates or replaces one file, creating parent directories.
type WriteFile struct{}

func (WriteFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "write_file",
		Description: "Create or overwrite a file with the given content.",
		Parameters: map[string]ports.ParameterSpec{
			"path":    {Type: "string", Description: "Path relative to the workspace root", Required: true},
			"content": {Type: "string", Description: "Full file content", Required: true},
		},
	}
}

func (WriteFile) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	path, _ := args["path"].(string)
	content, _ := args["content"].(string)
	resolved, err := resolvePath(execCtx, path)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Wrote %d bytes to %s", len(content), path), nil
}

// EditFile replaces an exact substring in one file.
type EditFile struct{}

func (EditFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "edit_file",
		Description: "Replace an exact text fragment in a file. The fragment must occur exactly once.",
		Parameters: map[string]ports.ParameterSpec{
			"path":     {Type: "string", Description: "Path relative to the workspace root", Required: true},
			"old_text": {Type: "string", Description: "Exact text to replace", Required: true},
			"new_text": {Type: "string", Description: "Replacement text", Required: true},
		},
	}
}

func (EditFile) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	path, _ := args["path"].(string)
	oldText, _ := args["old_text"].(string)
	newText, _ := args["new_text"].(string)
	if oldText == "" {
		return "", fmt.Errorf("old_text must not be empty")
	}

	resolved, err := resolvePath(execCtx, path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", err
	}
	content := string(data)
	switch strings.Count(content, oldText) {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", path)
	case 1:
	default:
		return "", fmt.Errorf("old_text occurs more than once in %s", path)
	}
	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("Edited %s", path), nil
}

// DeleteFile removes one file.
type DeleteFile struct{}

func (DeleteFile) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "delete_file",
		Description: "Delete a file from the workspace.",
		Parameters: map[string]ports.ParameterSpec{
			"path": {Type: "string", Description: "Path relative to the workspace root", Required: true},
		},
	}
}

func (DeleteFile) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	path, _ := args["path"].(string)
	resolved, err := resolvePath(execCtx, path)
	if err != nil {
		return "", err
	}
	if err := os.Remove(resolved); err != nil {
		return "", err
	}
	return fmt.Sprintf("Deleted %s", path), nil
}

// ListFiles lists one directory, non-recursive.
type ListFiles struct{}

func (ListFiles) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "list_files",
		Description: "List the entries of a directory.",
		Parameters: map[string]ports.ParameterSpec{
			"path": {Type: "string", Description: "Directory relative to the workspace root, default \".\""},
		},
	}
}

func (ListFiles) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	path, _ := args["path"].(string)
	if path == "" {
		path = "."
	}
	resolved, err := resolvePath(execCtx, path)
	if err != nil {
		return "", err
	}
	entries, err := os.ReadDir(resolved)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, entry := range entries {
		if entry.IsDir() {
			fmt.Fprintf(&sb, "%s/\n", entry.Name())
		} else {
			fmt.Fprintf(&sb, "%s\n", entry.Name())
		}
	}
	if sb.Len() == 0 {
		return "(empty directory)", nil
	}
	return sb.String(), nil
}
