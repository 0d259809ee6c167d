// Package toolregistry dispatches tool calls by name with required-parameter
// validation and a read-tool result cache. Tool bodies live outside the
// engine; this package is routing and bookkeeping only.
package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"maestro/internal/agent/ports"
	"maestro/internal/logging"
)

// mutatingTools are the tools whose successful execution changes the
// workspace. Their results are never cached, and any success invalidates
// the read cache.
var mutatingTools = map[string]bool{
	"write_file":  true,
	"edit_file":   true,
	"delete_file": true,
	"run_shell":   true,
}

// cacheableTools are the built-in reads known to be pure functions of the
// workspace state. Everything else, MCP and user tools included, may have
// side effects or external state and runs on every call.
var cacheableTools = map[string]bool{
	"read_file":    true,
	"list_files":   true,
	"search_files": true,
}

// Registry implements ports.ToolRegistry. Built-in tools go into the static
// map; tools registered after construction (user or MCP) are dynamic.
type Registry struct {
	static  map[string]ports.ToolExecutor
	dynamic map[string]ports.ToolExecutor
	mcp     map[string]ports.ToolExecutor
	order   []string
	cache   *resultCache
	logger  logging.Logger
	mu      sync.RWMutex
}

// NewRegistry returns a registry pre-populated with the given built-ins.
func NewRegistry(builtins ...ports.ToolExecutor) (*Registry, error) {
	r := &Registry{
		static:  make(map[string]ports.ToolExecutor),
		dynamic: make(map[string]ports.ToolExecutor),
		mcp:     make(map[string]ports.ToolExecutor),
		cache:   newResultCache(DefaultCacheConfig()),
		logger:  logging.NewComponentLogger("toolregistry"),
	}
	for _, tool := range builtins {
		name := tool.Definition().Name
		if _, exists := r.static[name]; exists {
			return nil, fmt.Errorf("duplicate builtin tool: %s", name)
		}
		r.static[name] = tool
		r.order = append(r.order, name)
	}
	return r, nil
}

// Register adds a tool at startup. Tools named mcp_<server>_<tool> go into
// the MCP map; everything else is dynamic. Names are globally unique.
func (r *Registry) Register(tool ports.ToolExecutor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Definition().Name
	if r.lookupLocked(name) != nil {
		return fmt.Errorf("tool already exists: %s", name)
	}
	if strings.HasPrefix(name, "mcp_") {
		r.mcp[name] = tool
	} else {
		r.dynamic[name] = tool
	}
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) lookupLocked(name string) ports.ToolExecutor {
	if tool, ok := r.static[name]; ok {
		return tool
	}
	if tool, ok := r.dynamic[name]; ok {
		return tool
	}
	if tool, ok := r.mcp[name]; ok {
		return tool
	}
	return nil
}

func (r *Registry) lookup(name string) ports.ToolExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookupLocked(name)
}

// All returns every tool definition in registration order.
func (r *Registry) All() []ports.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ports.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if tool := r.lookupLocked(name); tool != nil {
			out = append(out, tool.Definition())
		}
	}
	return out
}

// DescribeForPrompt renders the tool set for inclusion in a system prompt.
func (r *Registry) DescribeForPrompt() string {
	var sb strings.Builder
	for _, def := range r.All() {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
		params := make([]string, 0, len(def.Parameters))
		for name := range def.Parameters {
			params = append(params, name)
		}
		sort.Strings(params)
		for _, name := range params {
			spec := def.Parameters[name]
			required := ""
			if spec.Required {
				required = " (required)"
			}
			fmt.Fprintf(&sb, "    %s: %s%s — %s\n", name, spec.Type, required, spec.Description)
		}
	}
	return sb.String()
}

// Execute validates and dispatches one tool call. Unknown tools and tool
// failures come back as unsuccessful results, never as Go errors, so the
// model can observe the failure and self-correct.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, execCtx ports.ExecutionContext) ports.ToolResult {
	started := time.Now()
	fail := func(format string, a ...any) ports.ToolResult {
		return ports.ToolResult{
			Tool:     name,
			Args:     args,
			Content:  fmt.Sprintf("Tool error (%s): %s", name, fmt.Sprintf(format, a...)),
			Success:  false,
			Duration: time.Since(started),
		}
	}

	tool := r.lookup(name)
	if tool == nil {
		r.logger.Warn("unknown tool requested: %s", name)
		return fail("unknown tool")
	}

	def := tool.Definition()
	for paramName, spec := range def.Parameters {
		if !spec.Required {
			continue
		}
		if _, ok := args[paramName]; !ok {
			return fail("missing required parameter: %s", paramName)
		}
	}

	if cacheableTools[name] {
		if cached, ok := r.cache.get(name, args); ok {
			return ports.ToolResult{Tool: name, Args: args, Content: cached, Success: true, Duration: time.Since(started)}
		}
	}

	content, err := safeExecute(ctx, tool, args, execCtx)
	duration := time.Since(started)
	if err != nil {
		r.logger.Debug("tool %s failed after %v: %v", name, duration, err)
		return fail("%v", err)
	}

	if mutatingTools[name] {
		r.cache.purge()
	} else if cacheableTools[name] {
		r.cache.put(name, args, content)
	}
	return ports.ToolResult{Tool: name, Args: args, Content: content, Success: true, Duration: duration}
}

// safeExecute recovers panics from tool bodies into plain errors.
func safeExecute(ctx context.Context, tool ports.ToolExecutor, args map[string]any, execCtx ports.ExecutionContext) (content string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return tool.Execute(ctx, args, execCtx)
}

// Filtered returns a view of the registry restricted to the allowed set.
// An empty set means all tools.
func (r *Registry) Filtered(allowed map[string]bool) ports.ToolRegistry {
	if len(allowed) == 0 {
		return r
	}
	return &filteredRegistry{parent: r, allowed: allowed}
}

type filteredRegistry struct {
	parent  *Registry
	allowed map[string]bool
}

func (f *filteredRegistry) Register(tool ports.ToolExecutor) error {
	return fmt.Errorf("cannot register on a filtered registry")
}

func (f *filteredRegistry) All() []ports.ToolDefinition {
	var out []ports.ToolDefinition
	for _, def := range f.parent.All() {
		if f.allowed[def.Name] {
			out = append(out, def)
		}
	}
	return out
}

func (f *filteredRegistry) DescribeForPrompt() string {
	var sb strings.Builder
	for _, def := range f.All() {
		fmt.Fprintf(&sb, "- %s: %s\n", def.Name, def.Description)
	}
	return sb.String()
}

func (f *filteredRegistry) Execute(ctx context.Context, name string, args map[string]any, execCtx ports.ExecutionContext) ports.ToolResult {
	if !f.allowed[name] {
		return ports.ToolResult{
			Tool:    name,
			Args:    args,
			Content: fmt.Sprintf("Tool error (%s): tool not available to this agent", name),
			Success: false,
		}
	}
	return f.parent.Execute(ctx, name, args, execCtx)
}

// Empty returns a registry view with no tools, for tool-less specialists.
func Empty() ports.ToolRegistry {
	return &filteredRegistry{parent: mustEmpty(), allowed: map[string]bool{}}
}

var (
	emptyRegistry     *Registry
	emptyRegistryOnce sync.Once
)

func mustEmpty() *Registry {
	emptyRegistryOnce.Do(func() {
		emptyRegistry, _ = NewRegistry()
	})
	return emptyRegistry
}
