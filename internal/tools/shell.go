package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"maestro/internal/agent/ports"
)

const (
	shellTimeout    = 60 * time.Second
	maxOutputBytes  = 64 * 1024
	truncatedSuffix = "\n... (output truncated)"
)

// blockedCommands are substrings that make a command unrunnable. A coarse
// filter, not a sandbox.
var blockedCommands = []string{
	"rm -rf /", "mkfs", ":(){", "shutdown", "reboot",
}

// RunShell executes one shell command inside the workspace root.
type RunShell struct{}

func (RunShell) Definition() ports.ToolDefinition {
	return ports.ToolDefinition{
		Name:        "run_shell",
		Description: "Run a shell command in the workspace root and return combined output.",
		Parameters: map[string]ports.ParameterSpec{
			"command": {Type: "string", Description: "Command line passed to sh -c", Required: true},
		},
	}
}

func (RunShell) Execute(ctx context.Context, args map[string]any, execCtx ports.ExecutionContext) (string, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return "", fmt.Errorf("command must not be empty")
	}
	for _, blocked := range blockedCommands {
		if strings.Contains(command, blocked) {
			return "", fmt.Errorf("command rejected: contains %q", blocked)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, shellTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	if execCtx.WorkspaceRoot != "" {
		cmd.Dir = execCtx.WorkspaceRoot
	}
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()
	text := output.String()
	if len(text) > maxOutputBytes {
		text = text[:maxOutputBytes] + truncatedSuffix
	}
	if runCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %v\n%s", shellTimeout, text)
	}
	if err != nil {
		return "", fmt.Errorf("%w\n%s", err, text)
	}
	if text == "" {
		return "(no output)", nil
	}
	return text, nil
}

// Builtins returns the standard workspace tool set in registration order.
func Builtins() []ports.ToolExecutor {
	return []ports.ToolExecutor{
		ReadFile{}, WriteFile{}, EditFile{}, DeleteFile{},
		ListFiles{}, SearchFiles{}, RunShell{},
	}
}
