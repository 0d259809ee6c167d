// Package workspace assembles the system-prompt context block every
// specialist receives: workspace tree, project hints, git branch, editor
// state, and the optional memory, retrieval and attachment sections.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"maestro/internal/logging"
	"maestro/internal/token"
)

const (
	defaultTreeDepth = 3
	maxTreeEntries   = 200

	// ragTokenBudget bounds the retrieval block.
	ragTokenBudget = 3000
)

// ignoredDirs never appear in the tree.
var ignoredDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
	"dist":         true,
	"build":        true,
	"target":       true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
}

// manifestHints maps well-known manifest files to project-type hints.
var manifestHints = map[string]string{
	"go.mod":             "Go module",
	"package.json":       "Node.js project",
	"tsconfig.json":      "TypeScript",
	"Cargo.toml":         "Rust crate",
	"pyproject.toml":     "Python project",
	"requirements.txt":   "Python (pip)",
	"pom.xml":            "Java (Maven)",
	"build.gradle":       "Java (Gradle)",
	"Gemfile":            "Ruby project",
	"Dockerfile":         "Docker",
	"docker-compose.yml": "Docker Compose",
}

// MemoryStore is the persistent conversation memory collaborator.
type MemoryStore interface {
	// RelevantContext returns summarized history relevant to the goal.
	RelevantContext(ctx context.Context, goal string) (string, error)
}

// Retriever is the RAG collaborator: top-K chunks by BM25 against the goal.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]string, error)
}

// Attachment is one user-provided artifact.
type Attachment struct {
	Name string
	// Kind is "text", "diff", "selection" or "image".
	Kind string
	// Content is text for text-mode attachments, base64 for images.
	Content string
}

// EditorState describes what the user currently has open.
type EditorState struct {
	OpenFiles []string
	Selection string
}

// Assembler builds the context block. Memory and Retriever are optional.
type Assembler struct {
	Root      string
	TreeDepth int
	Memory    MemoryStore
	Retriever Retriever
	Logger    logging.Logger
}

// Assemble produces the context text for one goal. Failures of optional
// collaborators degrade to omitting their section.
func (a *Assembler) Assemble(ctx context.Context, goal string, editor EditorState, attachments []Attachment) string {
	logger := logging.OrNop(a.Logger)
	var sb strings.Builder

	if a.Root != "" {
		if tree := a.renderTree(); tree != "" {
			sb.WriteString("### Workspace tree\n")
			sb.WriteString(tree)
		}
		if hints := a.projectHints(); len(hints) > 0 {
			fmt.Fprintf(&sb, "\n### Project type\n%s\n", strings.Join(hints, ", "))
		}
		if branch := a.gitBranch(); branch != "" {
			fmt.Fprintf(&sb, "\n### Git branch\n%s\n", branch)
		}
	}

	if len(editor.OpenFiles) > 0 {
		fmt.Fprintf(&sb, "\n### Open editors\n%s\n", strings.Join(editor.OpenFiles, "\n"))
	}
	if editor.Selection != "" {
		fmt.Fprintf(&sb, "\n### Current selection\n%s\n", editor.Selection)
	}

	if a.Memory != nil {
		if memory, err := a.Memory.RelevantContext(ctx, goal); err != nil {
			logger.Warn("memory context unavailable: %v", err)
		} else if memory != "" {
			fmt.Fprintf(&sb, "\n### Relevant history\n%s\n", memory)
		}
	}

	if a.Retriever != nil {
		if chunks, err := a.Retriever.Retrieve(ctx, goal, 8); err != nil {
			logger.Warn("retrieval unavailable: %v", err)
		} else if len(chunks) > 0 {
			block := strings.Join(chunks, "\n---\n")
			fmt.Fprintf(&sb, "\n### Retrieved code\n%s\n", token.TrimToBudget(block, ragTokenBudget))
		}
	}

	if text := renderAttachments(attachments); text != "" {
		fmt.Fprintf(&sb, "\n### Attachments\n%s\n", text)
	}

	return sb.String()
}

// ImageAttachments filters attachments down to images, which are passed
// separately as base64 to vision-capable models.
func ImageAttachments(attachments []Attachment) []Attachment {
	var images []Attachment
	for _, att := range attachments {
		if att.Kind == "image" {
			images = append(images, att)
		}
	}
	return images
}

func renderAttachments(attachments []Attachment) string {
	var sb strings.Builder
	for _, att := range attachments {
		if att.Kind == "image" {
			continue
		}
		fmt.Fprintf(&sb, "--- %s (%s) ---\n%s\n", att.Name, att.Kind, att.Content)
	}
	return sb.String()
}

// renderTree walks the workspace to TreeDepth, skipping ignored
// directories, and renders an indented listing capped at maxTreeEntries.
func (a *Assembler) renderTree() string {
	depth := a.TreeDepth
	if depth <= 0 {
		depth = defaultTreeDepth
	}

	var sb strings.Builder
	entries := 0
	var walk func(dir string, level int)
	walk = func(dir string, level int) {
		if level > depth || entries >= maxTreeEntries {
			return
		}
		listing, err := os.ReadDir(dir)
		if err != nil {
			return
		}
		sort.Slice(listing, func(i, j int) bool { return listing[i].Name() < listing[j].Name() })
		for _, entry := range listing {
			if entries >= maxTreeEntries {
				return
			}
			name := entry.Name()
			if strings.HasPrefix(name, ".") && entry.IsDir() {
				continue
			}
			if entry.IsDir() && ignoredDirs[name] {
				continue
			}
			indent := strings.Repeat("  ", level)
			if entry.IsDir() {
				fmt.Fprintf(&sb, "%s%s/\n", indent, name)
				entries++
				walk(filepath.Join(dir, name), level+1)
			} else {
				fmt.Fprintf(&sb, "%s%s\n", indent, name)
				entries++
			}
		}
	}
	walk(a.Root, 0)
	return sb.String()
}

func (a *Assembler) projectHints() []string {
	var hints []string
	for manifest, hint := range manifestHints {
		if _, err := os.Stat(filepath.Join(a.Root, manifest)); err == nil {
			hints = append(hints, hint)
		}
	}
	sort.Strings(hints)
	return hints
}

// gitBranch reads .git/HEAD directly; shelling out to git is not worth a
// subprocess for one line.
func (a *Assembler) gitBranch() string {
	head, err := os.ReadFile(filepath.Join(a.Root, ".git", "HEAD"))
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(head))
	if after, ok := strings.CutPrefix(line, "ref: refs/heads/"); ok {
		return after
	}
	if len(line) >= 12 {
		return line[:12] + " (detached)"
	}
	return line
}
