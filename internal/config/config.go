// Package config loads engine configuration from defaults, an optional
// YAML file and MAESTRO_* environment overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MCPServer configures one external MCP server process.
type MCPServer struct {
	Name    string   `mapstructure:"name"`
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// Config is the full engine configuration.
type Config struct {
	Model   string        `mapstructure:"model"`
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`

	Workspace string `mapstructure:"workspace"`
	ThinkMode bool   `mapstructure:"think_mode"`

	ComplexityThreshold int `mapstructure:"complexity_threshold"`

	MaxParallel  int           `mapstructure:"max_parallel"`
	AgentTimeout time.Duration `mapstructure:"agent_timeout"`

	QualityCandidates   int `mapstructure:"quality_candidates"`
	QualityRewriteBelow int `mapstructure:"quality_rewrite_below"`

	// NonCriticalDomains lists domains whose sub-task failures do not fail
	// the overall run.
	NonCriticalDomains []string `mapstructure:"non_critical_domains"`

	// AgentsFile optionally points at a YAML file of user-defined agents
	// registered on top of the built-ins.
	AgentsFile string `mapstructure:"agents_file"`

	MCPServers []MCPServer `mapstructure:"mcp_servers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("base_url", "https://api.openai.com/v1")
	// Registered empty so AutomaticEnv picks the keys up: viper only
	// consults the environment for keys it already knows about.
	v.SetDefault("api_key", "")
	v.SetDefault("agents_file", "")
	v.SetDefault("timeout", "120s")
	v.SetDefault("workspace", ".")
	v.SetDefault("think_mode", false)
	v.SetDefault("complexity_threshold", 50)
	v.SetDefault("max_parallel", 4)
	v.SetDefault("agent_timeout", "120s")
	v.SetDefault("quality_candidates", 3)
	v.SetDefault("quality_rewrite_below", 70)
	v.SetDefault("non_critical_domains", []string{"docs"})
}

// Load reads configuration. path may be empty, in which case only defaults
// and environment overrides apply; a named file that does not exist is an
// error, so misconfiguration fails loudly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
