// Package appbuilder runs the fixed eight-phase app-creation pipeline:
// architect → scaffold → backend → frontend → tests → security → devops →
// docs.
package appbuilder

import (
	"context"
	"fmt"
	"strings"

	"maestro/internal/agent/ports"
	engerrors "maestro/internal/errors"
	"maestro/internal/parser"
)

// TechStack names the technology choices of the generated application.
type TechStack struct {
	Frontend   string `json:"frontend"`
	Styling    string `json:"styling"`
	Backend    string `json:"backend"`
	Database   string `json:"database"`
	ORM        string `json:"orm"`
	Auth       string `json:"auth"`
	Deployment string `json:"deployment"`
}

// ArchitectureSpec is the normalized output of the architect phase.
type ArchitectureSpec struct {
	Name               string            `json:"name"`
	Description        string            `json:"description"`
	Features           []string          `json:"features"`
	TechStack          TechStack         `json:"techStack"`
	DirectoryStructure []string          `json:"directoryStructure"`
	APIContracts       []string          `json:"apiContracts"`
	DataModels         []string          `json:"dataModels"`
	ComponentTree      []string          `json:"componentTree"`
	EnvVars            map[string]string `json:"envVars"`
	Integrations       []string          `json:"integrations"`
}

const architectSystemPrompt = `You are a software architect. Design the requested application.

Respond with PURE JSON only, no prose, no markdown fences:
{"name": "...", "description": "...", "features": ["..."],
"techStack": {"frontend": "...", "styling": "...", "backend": "...",
"database": "...", "orm": "...", "auth": "...", "deployment": "..."},
"directoryStructure": ["..."], "apiContracts": ["METHOD /path — purpose"],
"dataModels": ["Model(field:type, ...)"], "componentTree": ["..."],
"envVars": {"NAME": "purpose"}, "integrations": ["..."]}

Set techStack.backend to "none" for purely static applications.`

// designArchitecture runs the architect model call and normalizes the
// result. This is the only phase whose failure aborts the pipeline: with no
// recoverable spec there is nothing for later phases to build.
func designArchitecture(ctx context.Context, client ports.LLMClient, goal string) (*ArchitectureSpec, error) {
	resp, err := client.Complete(ctx, ports.CompletionRequest{
		Messages: []ports.Message{
			{Role: ports.RoleSystem, Content: architectSystemPrompt},
			{Role: ports.RoleUser, Content: goal},
		},
		Temperature: 0.2,
		MaxTokens:   3072,
	})
	if err != nil {
		return nil, fmt.Errorf("architect call: %w", err)
	}

	var spec ArchitectureSpec
	if err := parser.DecodeObject(resp.Content, &spec); err != nil {
		return nil, engerrors.Permanent(engerrors.KindParseError,
			fmt.Errorf("architect output unparseable: %w", err))
	}
	normalize(&spec, goal)
	return &spec, nil
}

// normalize fills tolerable gaps with defaults. The same lenient policy as
// the decomposer: only a completely unrecoverable object is fatal.
func normalize(spec *ArchitectureSpec, goal string) {
	if spec.Name == "" {
		spec.Name = "generated-app"
	}
	if spec.Description == "" {
		spec.Description = goal
	}
	if len(spec.Features) == 0 {
		spec.Features = []string{"core functionality"}
	}
	stack := &spec.TechStack
	if stack.Frontend == "" {
		stack.Frontend = "react"
	}
	if stack.Styling == "" {
		stack.Styling = "tailwind"
	}
	if stack.Backend == "" {
		stack.Backend = "node-express"
	}
	if stack.Database == "" && stack.Backend != "none" {
		stack.Database = "postgres"
	}
	if stack.ORM == "" && stack.Database != "" {
		stack.ORM = "prisma"
	}
	if stack.Auth == "" {
		stack.Auth = "jwt"
	}
	if stack.Deployment == "" {
		stack.Deployment = "docker"
	}
	if len(spec.DirectoryStructure) == 0 {
		spec.DirectoryStructure = []string{"src/", "tests/"}
	}
	if len(spec.APIContracts) == 0 && stack.Backend != "none" {
		spec.APIContracts = []string{"GET /health — liveness probe"}
	}
	if len(spec.DataModels) == 0 && stack.Backend != "none" {
		spec.DataModels = []string{"User(id:string, email:string)"}
	}
	if len(spec.ComponentTree) == 0 {
		spec.ComponentTree = []string{"App"}
	}
	if spec.EnvVars == nil {
		spec.EnvVars = map[string]string{}
	}
}

// summary renders the spec fields a phase prompt embeds.
func (s *ArchitectureSpec) summary() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "App: %s — %s\n", s.Name, s.Description)
	fmt.Fprintf(&sb, "Features: %s\n", strings.Join(s.Features, "; "))
	fmt.Fprintf(&sb, "Stack: frontend=%s styling=%s backend=%s database=%s orm=%s auth=%s deployment=%s\n",
		s.TechStack.Frontend, s.TechStack.Styling, s.TechStack.Backend,
		s.TechStack.Database, s.TechStack.ORM, s.TechStack.Auth, s.TechStack.Deployment)
	fmt.Fprintf(&sb, "Directories: %s\n", strings.Join(s.DirectoryStructure, ", "))
	return sb.String()
}
