package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileSpec is the YAML shape of one user-defined agent.
type fileSpec struct {
	ID                string   `yaml:"id"`
	DisplayName       string   `yaml:"display_name"`
	Domain            string   `yaml:"domain"`
	Instructions      string   `yaml:"instructions"`
	AllowedTools      []string `yaml:"allowed_tools"`
	MaxIterations     int      `yaml:"max_iterations"`
	RequiresWorkspace bool     `yaml:"requires_workspace"`
	Priority          int      `yaml:"priority"`
	TokenBudget       int      `yaml:"token_budget"`
}

// LoadFile registers user-defined agents from a YAML file. Each entry uses
// the same record shape as the built-ins; unknown domains are rejected.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read agents file: %w", err)
	}

	var doc struct {
		Agents []fileSpec `yaml:"agents"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse agents file %s: %w", path, err)
	}

	for _, raw := range doc.Agents {
		spec := Spec{
			ID:                raw.ID,
			DisplayName:       raw.DisplayName,
			Domain:            Domain(raw.Domain),
			Instructions:      raw.Instructions,
			MaxIterations:     raw.MaxIterations,
			RequiresWorkspace: raw.RequiresWorkspace,
			Priority:          raw.Priority,
			TokenBudget:       raw.TokenBudget,
		}
		if spec.DisplayName == "" {
			spec.DisplayName = spec.ID
		}
		if spec.Domain == "" {
			spec.Domain = DomainCustom
		}
		if len(raw.AllowedTools) > 0 {
			spec.AllowedTools = make(map[string]bool, len(raw.AllowedTools))
			for _, tool := range raw.AllowedTools {
				spec.AllowedTools[tool] = true
			}
		}
		if err := c.Register(spec); err != nil {
			return fmt.Errorf("agent %q: %w", raw.ID, err)
		}
	}
	return nil
}
