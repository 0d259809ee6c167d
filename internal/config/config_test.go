package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.BaseURL != "https://api.openai.com/v1" {
		t.Fatalf("base url = %q", cfg.BaseURL)
	}
	if cfg.Timeout != 120*time.Second || cfg.AgentTimeout != 120*time.Second {
		t.Fatalf("timeouts = %v / %v", cfg.Timeout, cfg.AgentTimeout)
	}
	if cfg.ComplexityThreshold != 50 || cfg.MaxParallel != 4 {
		t.Fatalf("thresholds = %d / %d", cfg.ComplexityThreshold, cfg.MaxParallel)
	}
	if cfg.QualityCandidates != 3 || cfg.QualityRewriteBelow != 70 {
		t.Fatalf("quality = %d / %d", cfg.QualityCandidates, cfg.QualityRewriteBelow)
	}
	if len(cfg.NonCriticalDomains) != 1 || cfg.NonCriticalDomains[0] != "docs" {
		t.Fatalf("non-critical domains = %v", cfg.NonCriticalDomains)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maestro.yaml")
	content := `model: gpt-4o
base_url: https://llm.internal/v1
complexity_threshold: 65
max_parallel: 8
think_mode: true
non_critical_domains: [docs, perf]
mcp_servers:
  - name: files
    command: mcp-files
    args: ["--root", "/srv"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "gpt-4o" || cfg.BaseURL != "https://llm.internal/v1" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.ComplexityThreshold != 65 || cfg.MaxParallel != 8 || !cfg.ThinkMode {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(cfg.NonCriticalDomains) != 2 || cfg.NonCriticalDomains[1] != "perf" {
		t.Fatalf("non-critical domains = %v", cfg.NonCriticalDomains)
	}
	if len(cfg.MCPServers) != 1 {
		t.Fatalf("mcp servers = %+v", cfg.MCPServers)
	}
	server := cfg.MCPServers[0]
	if server.Name != "files" || server.Command != "mcp-files" || len(server.Args) != 2 {
		t.Fatalf("server = %+v", server)
	}
	// File overrides leave untouched defaults in place.
	if cfg.QualityCandidates != 3 {
		t.Fatalf("quality candidates = %d", cfg.QualityCandidates)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("MAESTRO_MODEL", "local-model")
	t.Setenv("MAESTRO_API_KEY", "sk-test")
	t.Setenv("MAESTRO_MAX_PARALLEL", "2")
	t.Setenv("MAESTRO_AGENTS_FILE", "agents.yaml")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "local-model" {
		t.Fatalf("model = %q", cfg.Model)
	}
	if cfg.APIKey != "sk-test" {
		t.Fatalf("api key = %q", cfg.APIKey)
	}
	if cfg.MaxParallel != 2 {
		t.Fatalf("max parallel = %d", cfg.MaxParallel)
	}
	if cfg.AgentsFile != "agents.yaml" {
		t.Fatalf("agents file = %q", cfg.AgentsFile)
	}
}

func TestLoadMissingNamedFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("missing named config file accepted")
	}
}
