package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Parameter defines a tool parameter.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // string, number, boolean, object, array
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
}

// Tool represents a callable tool/function exposed to the model.
//
// Handlers report operational failures in-band: the returned string is a JSON
// document carrying a "success" flag, and the error return is reserved for
// programming mistakes (missing handler, invalid arguments). The model sees
// failed tool calls as data, not as aborted runs.
type Tool struct {
	Name        string                                                `json:"name"`
	Description string                                                `json:"description"`
	Parameters  []Parameter                                           `json:"parameters"`
	Handler     func(context.Context, map[string]any) (string, error) `json:"-"`
}

// Execute runs the tool with the given arguments.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	if t.Handler == nil {
		return "", fmt.Errorf("tool %s has no handler", t.Name)
	}
	if err := t.ValidateArgs(args); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	return t.Handler(ctx, args)
}

// ValidateArgs checks the provided arguments against the tool's parameters.
func (t *Tool) ValidateArgs(args map[string]any) error {
	for _, param := range t.Parameters {
		if param.Required {
			if _, ok := args[param.Name]; !ok {
				return fmt.Errorf("missing required parameter: %s", param.Name)
			}
		}
	}
	return nil
}

// ToJSONSchema returns the tool definition in the JSON schema form LLM
// providers expect for function calling.
func (t *Tool) ToJSONSchema() map[string]any {
	properties := make(map[string]any)
	required := make([]string, 0)

	for _, param := range t.Parameters {
		prop := map[string]any{
			"type":        param.Type,
			"description": param.Description,
		}
		if len(param.Enum) > 0 {
			prop["enum"] = param.Enum
		}
		properties[param.Name] = prop

		if param.Required {
			required = append(required, param.Name)
		}
	}

	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"parameters": map[string]any{
				"type":       "object",
				"properties": properties,
				"required":   required,
			},
		},
	}
}

// Result is the canonical in-band payload returned by tool handlers.
type Result map[string]any

// OK builds a successful tool result.
func OK(fields map[string]any) Result {
	res := Result{"success": true}
	for k, v := range fields {
		res[k] = v
	}
	return res
}

// Fail builds a failed tool result carrying the error as data.
func Fail(err error) Result {
	return Result{"success": false, "error": err.Error()}
}

// Encode serializes a result to the canonical text form fed back to the model.
func (r Result) Encode() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":%q}`, err.Error())
	}
	return string(data)
}

// Registry manages a collection of tools.
// All operations are thread-safe.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry creates a new tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]*Tool),
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.order = append(r.order, t.Name)
	return nil
}

// Upsert adds or replaces a tool definition.
func (r *Registry) Upsert(t *Tool) error {
	if t == nil || t.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool %s not found", name)
	}
	return t, nil
}

// List returns all registered tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]*Tool, 0, len(r.tools))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// ToJSONSchemas returns all tools in JSON schema format.
func (r *Registry) ToJSONSchemas() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]map[string]any, 0, len(r.tools))
	for _, name := range r.order {
		schemas = append(schemas, r.tools[name].ToJSONSchema())
	}
	return schemas
}

// Execute runs a tool by name with the given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	t, err := r.Get(name)
	if err != nil {
		return "", err
	}
	return t.Execute(ctx, args)
}
