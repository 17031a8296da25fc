package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/mkarasev/daytrip/tool"
)

// Provider exposes remote MCP tools through the generic tool.Provider
// interface so they can be offered to the planner next to local tools.
type Provider struct {
	client *Client
}

// NewProvider connects to an MCP server and verifies it can list tools.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p := &Provider{client: client}
	if _, err := p.Tools(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return p, nil
}

// Tools converts the remote MCP tool definitions into local registrations
// whose handlers proxy calls back to the server.
func (p *Provider) Tools(ctx context.Context) ([]*tool.Tool, error) {
	defs, err := p.client.ListAllTools(ctx)
	if err != nil {
		return nil, err
	}

	tools := make([]*tool.Tool, 0, len(defs))
	for _, def := range defs {
		if def == nil {
			continue
		}
		remoteName := def.Name
		t := &tool.Tool{
			Name:        remoteName,
			Description: def.Description,
			Parameters:  parametersFromSchema(def.InputSchema),
			Handler: func(ctx context.Context, args map[string]any) (string, error) {
				if args == nil {
					args = make(map[string]any)
				}
				return p.client.CallTool(ctx, remoteName, args)
			},
		}
		tools = append(tools, t)
	}
	return tools, nil
}

// Close terminates the underlying MCP session.
func (p *Provider) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func parametersFromSchema(schema any) []tool.Parameter {
	schemaMap := toMap(schema)
	if schemaMap == nil {
		return nil
	}

	typeVal, _ := schemaMap["type"].(string)
	if strings.ToLower(typeVal) != "object" {
		return nil
	}

	propsRaw, ok := schemaMap["properties"].(map[string]any)
	if !ok || len(propsRaw) == 0 {
		return nil
	}

	requiredSet := make(map[string]struct{})
	if list, ok := schemaMap["required"].([]any); ok {
		for _, item := range list {
			if name, ok := item.(string); ok {
				requiredSet[name] = struct{}{}
			}
		}
	}

	names := make([]string, 0, len(propsRaw))
	for name := range propsRaw {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make([]tool.Parameter, 0, len(names))
	for _, name := range names {
		propMap, ok := propsRaw[name].(map[string]any)
		if !ok {
			continue
		}
		param := tool.Parameter{
			Name:        name,
			Description: stringValue(propMap["description"]),
			Type:        stringValue(propMap["type"]),
		}
		if _, ok := requiredSet[name]; ok {
			param.Required = true
		}
		if enums, ok := toStringSlice(propMap["enum"]); ok {
			param.Enum = enums
		}
		if param.Type == "" {
			param.Type = inferType(propMap)
		}
		params = append(params, param)
	}
	return params
}

func inferType(prop map[string]any) string {
	if _, ok := prop["items"]; ok {
		return "array"
	}
	if _, ok := prop["properties"]; ok {
		return "object"
	}
	return "string"
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func toStringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	values := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			values = append(values, s)
		}
	}
	return values, true
}

func toMap(v any) map[string]any {
	switch value := v.(type) {
	case map[string]any:
		return value
	case json.RawMessage:
		var out map[string]any
		if err := json.Unmarshal(value, &out); err != nil {
			return nil
		}
		return out
	case []byte:
		var out map[string]any
		if err := json.Unmarshal(value, &out); err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

var _ tool.Provider = (*Provider)(nil)
