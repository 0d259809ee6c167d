package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func scaffoldWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "go.mod"), "module example\n")
	writeFile(t, filepath.Join(root, "Dockerfile"), "FROM scratch\n")
	writeFile(t, filepath.Join(root, "cmd", "app", "main.go"), "package main\n")
	writeFile(t, filepath.Join(root, "internal", "core", "core.go"), "package core\n")
	writeFile(t, filepath.Join(root, "node_modules", "left-pad", "index.js"), "x")
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "ref: refs/heads/feature/context\n")
	return root
}

func TestAssembleWorkspaceSections(t *testing.T) {
	root := scaffoldWorkspace(t)
	assembler := &Assembler{Root: root}

	out := assembler.Assemble(context.Background(), "goal", EditorState{}, nil)

	if !strings.Contains(out, "### Workspace tree") {
		t.Fatalf("missing tree section:\n%s", out)
	}
	if !strings.Contains(out, "cmd/") || !strings.Contains(out, "main.go") {
		t.Fatalf("tree missing entries:\n%s", out)
	}
	if strings.Contains(out, "node_modules") || strings.Contains(out, ".git") {
		t.Fatalf("ignored directories leaked into tree:\n%s", out)
	}
	if !strings.Contains(out, "### Project type") ||
		!strings.Contains(out, "Go module") || !strings.Contains(out, "Docker") {
		t.Fatalf("manifest hints missing:\n%s", out)
	}
	if !strings.Contains(out, "### Git branch\nfeature/context") {
		t.Fatalf("branch missing:\n%s", out)
	}
}

func TestAssembleEmptyRoot(t *testing.T) {
	assembler := &Assembler{}
	out := assembler.Assemble(context.Background(), "goal", EditorState{}, nil)
	if out != "" {
		t.Fatalf("rootless assemble produced %q", out)
	}
}

func TestAssembleEditorState(t *testing.T) {
	assembler := &Assembler{}
	out := assembler.Assemble(context.Background(), "goal", EditorState{
		OpenFiles: []string{"a.go", "b.go"},
		Selection: "func target() {}",
	}, nil)

	if !strings.Contains(out, "### Open editors\na.go\nb.go") {
		t.Fatalf("open editors missing:\n%s", out)
	}
	if !strings.Contains(out, "### Current selection\nfunc target() {}") {
		t.Fatalf("selection missing:\n%s", out)
	}
}

type stubMemory struct {
	text string
	err  error
}

func (s stubMemory) RelevantContext(ctx context.Context, goal string) (string, error) {
	return s.text, s.err
}

type stubRetriever struct {
	chunks []string
	err    error
}

func (s stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]string, error) {
	return s.chunks, s.err
}

func TestAssembleOptionalCollaborators(t *testing.T) {
	assembler := &Assembler{
		Memory:    stubMemory{text: "User prefers table-driven tests."},
		Retriever: stubRetriever{chunks: []string{"func A() {}", "func B() {}"}},
	}
	out := assembler.Assemble(context.Background(), "goal", EditorState{}, nil)

	if !strings.Contains(out, "### Relevant history\nUser prefers table-driven tests.") {
		t.Fatalf("memory section missing:\n%s", out)
	}
	if !strings.Contains(out, "### Retrieved code") || !strings.Contains(out, "func A() {}\n---\nfunc B() {}") {
		t.Fatalf("retrieval section missing:\n%s", out)
	}
}

func TestAssembleCollaboratorFailuresDegrade(t *testing.T) {
	assembler := &Assembler{
		Memory:    stubMemory{err: errors.New("store offline")},
		Retriever: stubRetriever{err: errors.New("index missing")},
	}
	out := assembler.Assemble(context.Background(), "goal", EditorState{}, nil)
	if strings.Contains(out, "Relevant history") || strings.Contains(out, "Retrieved code") {
		t.Fatalf("failed collaborators produced sections:\n%s", out)
	}
}

func TestAssembleAttachments(t *testing.T) {
	attachments := []Attachment{
		{Name: "notes.txt", Kind: "text", Content: "remember the edge case"},
		{Name: "fix.diff", Kind: "diff", Content: "-old\n+new"},
		{Name: "shot.png", Kind: "image", Content: "aGVsbG8="},
	}
	out := (&Assembler{}).Assemble(context.Background(), "goal", EditorState{}, attachments)

	if !strings.Contains(out, "--- notes.txt (text) ---\nremember the edge case") {
		t.Fatalf("text attachment missing:\n%s", out)
	}
	if !strings.Contains(out, "--- fix.diff (diff) ---") {
		t.Fatalf("diff attachment missing:\n%s", out)
	}
	if strings.Contains(out, "aGVsbG8=") {
		t.Fatalf("image content inlined:\n%s", out)
	}

	images := ImageAttachments(attachments)
	if len(images) != 1 || images[0].Name != "shot.png" {
		t.Fatalf("images = %+v", images)
	}
}

func TestGitBranchDetachedHead(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".git", "HEAD"), "0123456789abcdef0123456789abcdef01234567\n")

	assembler := &Assembler{Root: root}
	if got := assembler.gitBranch(); got != "0123456789ab (detached)" {
		t.Fatalf("branch = %q", got)
	}
}

func TestRenderTreeDepthLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "b", "c", "d", "deep.go"), "x")

	assembler := &Assembler{Root: root, TreeDepth: 2}
	tree := assembler.renderTree()
	if !strings.Contains(tree, "a/") || !strings.Contains(tree, "b/") {
		t.Fatalf("tree:\n%s", tree)
	}
	if strings.Contains(tree, "deep.go") {
		t.Fatalf("depth limit not applied:\n%s", tree)
	}
}
