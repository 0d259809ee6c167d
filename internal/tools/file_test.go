package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"maestro/internal/agent/ports"
)

func workspaceCtx(t *testing.T) ports.ExecutionContext {
	t.Helper()
	return ports.ExecutionContext{WorkspaceRoot: t.TempDir()}
}

func TestWriteReadRoundtrip(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()

	out, err := WriteFile{}.Execute(ctx, map[string]any{
		"path": "src/main.go", "content": "package main\n",
	}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if out != "Wrote 13 bytes to src/main.go" {
		t.Fatalf("write output = %q", out)
	}

	content, err := ReadFile{}.Execute(ctx, map[string]any{"path": "src/main.go"}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if content != "package main\n" {
		t.Fatalf("content = %q", content)
	}
}

func TestReadFileTruncatesLargeFiles(t *testing.T) {
	execCtx := workspaceCtx(t)
	big := strings.Repeat("x", maxReadBytes+100)
	if err := os.WriteFile(filepath.Join(execCtx.WorkspaceRoot, "big.txt"), []byte(big), 0o644); err != nil {
		t.Fatal(err)
	}

	content, err := ReadFile{}.Execute(context.Background(), map[string]any{"path": "big.txt"}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(content, "... (truncated)") {
		t.Fatal("large file not truncated")
	}
	if len(content) > maxReadBytes+50 {
		t.Fatalf("truncated content still %d bytes", len(content))
	}
}

func TestPathEscapeRejected(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()

	for _, path := range []string{"../outside.txt", "../../etc/passwd", "a/../../b"} {
		if _, err := (ReadFile{}).Execute(ctx, map[string]any{"path": path}, execCtx); err == nil {
			t.Fatalf("read of %q allowed", path)
		}
		if _, err := (WriteFile{}).Execute(ctx, map[string]any{"path": path, "content": "x"}, execCtx); err == nil {
			t.Fatalf("write of %q allowed", path)
		}
		if _, err := (DeleteFile{}).Execute(ctx, map[string]any{"path": path}, execCtx); err == nil {
			t.Fatalf("delete of %q allowed", path)
		}
	}

	// Absolute paths are re-rooted, and in-tree dotted paths stay legal.
	if _, err := (WriteFile{}).Execute(ctx, map[string]any{"path": "a/../b.txt", "content": "ok"}, execCtx); err != nil {
		t.Fatalf("in-tree dotted path rejected: %v", err)
	}
}

func TestEditFileExactlyOnce(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()
	seed := func(content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(execCtx.WorkspaceRoot, "f.txt"), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	seed("alpha beta gamma")
	if _, err := (EditFile{}).Execute(ctx, map[string]any{
		"path": "f.txt", "old_text": "beta", "new_text": "BETA",
	}, execCtx); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(execCtx.WorkspaceRoot, "f.txt"))
	if string(data) != "alpha BETA gamma" {
		t.Fatalf("content = %q", data)
	}

	seed("dup dup")
	if _, err := (EditFile{}).Execute(ctx, map[string]any{
		"path": "f.txt", "old_text": "dup", "new_text": "x",
	}, execCtx); err == nil || !strings.Contains(err.Error(), "more than once") {
		t.Fatalf("ambiguous edit: err = %v", err)
	}

	if _, err := (EditFile{}).Execute(ctx, map[string]any{
		"path": "f.txt", "old_text": "missing", "new_text": "x",
	}, execCtx); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("missing fragment: err = %v", err)
	}

	if _, err := (EditFile{}).Execute(ctx, map[string]any{
		"path": "f.txt", "old_text": "", "new_text": "x",
	}, execCtx); err == nil {
		t.Fatal("empty old_text accepted")
	}
}

func TestDeleteAndList(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()
	root := execCtx.WorkspaceRoot

	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "keep.txt"), []byte("k"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "gone.txt"), []byte("g"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := (DeleteFile{}).Execute(ctx, map[string]any{"path": "gone.txt"}, execCtx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(root, "gone.txt")); !os.IsNotExist(err) {
		t.Fatal("file still present after delete")
	}

	listing, err := ListFiles{}.Execute(ctx, map[string]any{}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(listing, "keep.txt") || !strings.Contains(listing, "sub/") {
		t.Fatalf("listing = %q", listing)
	}
	if strings.Contains(listing, "gone.txt") {
		t.Fatalf("deleted file listed: %q", listing)
	}

	empty, err := ListFiles{}.Execute(ctx, map[string]any{"path": "sub"}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if empty != "(empty directory)" {
		t.Fatalf("empty listing = %q", empty)
	}
}

func TestSearchFiles(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()
	root := execCtx.WorkspaceRoot

	files := map[string]string{
		"a.go":                 "package a\nfunc Target() {}\n",
		"sub/b.go":             "package b\nfunc target() {}\nfunc Target() {}\n",
		"node_modules/skip.js": "Target everywhere\n",
	}
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	out, err := SearchFiles{}.Execute(ctx, map[string]any{"pattern": `func Target`}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "a.go:2: func Target() {}") {
		t.Fatalf("search output:\n%s", out)
	}
	if !strings.Contains(out, filepath.Join("sub", "b.go")+":3:") {
		t.Fatalf("nested match missing:\n%s", out)
	}
	if strings.Contains(out, "skip.js") {
		t.Fatalf("ignored directory searched:\n%s", out)
	}

	none, err := SearchFiles{}.Execute(ctx, map[string]any{"pattern": `nothing_matches_this`}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if none != "No matches." {
		t.Fatalf("no-match output = %q", none)
	}

	if _, err := (SearchFiles{}).Execute(ctx, map[string]any{"pattern": `([`}, execCtx); err == nil {
		t.Fatal("invalid pattern accepted")
	}
}

func TestRunShell(t *testing.T) {
	execCtx := workspaceCtx(t)
	ctx := context.Background()

	out, err := RunShell{}.Execute(ctx, map[string]any{"command": "printf hello"}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Fatalf("output = %q", out)
	}

	// Commands run inside the workspace root.
	if err := os.WriteFile(filepath.Join(execCtx.WorkspaceRoot, "marker.txt"), []byte("m"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = RunShell{}.Execute(ctx, map[string]any{"command": "ls"}, execCtx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "marker.txt") {
		t.Fatalf("ls output = %q", out)
	}

	if _, err := (RunShell{}).Execute(ctx, map[string]any{"command": "exit 3"}, execCtx); err == nil {
		t.Fatal("non-zero exit not reported")
	}
	if _, err := (RunShell{}).Execute(ctx, map[string]any{"command": ""}, execCtx); err == nil {
		t.Fatal("empty command accepted")
	}
	if _, err := (RunShell{}).Execute(ctx, map[string]any{"command": "echo hi && rm -rf / --no-preserve-root"}, execCtx); err == nil {
		t.Fatal("blocked command accepted")
	}
}

func TestBuiltinsCoverStandardToolSet(t *testing.T) {
	names := make(map[string]bool)
	for _, tool := range Builtins() {
		names[tool.Definition().Name] = true
	}
	for _, want := range []string{
		"read_file", "write_file", "edit_file", "delete_file",
		"list_files", "search_files", "run_shell",
	} {
		if !names[want] {
			t.Fatalf("builtin %s missing (have %v)", want, names)
		}
	}
	if len(names) != 7 {
		t.Fatalf("unexpected builtin count: %v", names)
	}
}
