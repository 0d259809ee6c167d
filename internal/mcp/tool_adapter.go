package mcp

import (
	"context"
	"fmt"

	"maestro/internal/agent/ports"
)

// adaptedTool exposes one discovered MCP tool as a registry executor.
type adaptedTool struct {
	client *Client
	schema ToolSchema
	name   string
}

// AdaptTools lists the server's tools and wraps each one. Registry names
// are prefixed mcp_<server>_ to keep them apart from builtins.
func AdaptTools(ctx context.Context, client *Client) ([]ports.ToolExecutor, error) {
	schemas, err := client.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	executors := make([]ports.ToolExecutor, 0, len(schemas))
	for _, schema := range schemas {
		executors = append(executors, &adaptedTool{
			client: client,
			schema: schema,
			name:   fmt.Sprintf("mcp_%s_%s", client.config.Name, schema.Name),
		})
	}
	return executors, nil
}

func (t *adaptedTool) Definition() ports.ToolDefinition {
	def := ports.ToolDefinition{
		Name:        t.name,
		Description: t.schema.Description,
		Parameters:  map[string]ports.ParameterSpec{},
	}
	properties, _ := t.schema.InputSchema["properties"].(map[string]any)
	required := map[string]bool{}
	if names, ok := t.schema.InputSchema["required"].([]any); ok {
		for _, n := range names {
			if s, ok := n.(string); ok {
				required[s] = true
			}
		}
	}
	for name, raw := range properties {
		prop, _ := raw.(map[string]any)
		param := ports.ParameterSpec{Required: required[name]}
		if typ, ok := prop["type"].(string); ok {
			param.Type = typ
		}
		if desc, ok := prop["description"].(string); ok {
			param.Description = desc
		}
		def.Parameters[name] = param
	}
	return def
}

func (t *adaptedTool) Execute(ctx context.Context, args map[string]any, _ ports.ExecutionContext) (string, error) {
	return t.client.CallTool(ctx, t.schema.Name, args)
}
