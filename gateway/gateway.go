// Package gateway wraps an LLM provider behind a structured-output contract:
// plain completions, schema-validated JSON parsing, and a bounded tool loop.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mkarasev/daytrip/contrib/provider/claude"
	"github.com/mkarasev/daytrip/contrib/provider/gemini"
	"github.com/mkarasev/daytrip/contrib/provider/openai"
	"github.com/mkarasev/daytrip/errs"
	"github.com/mkarasev/daytrip/message"
	"github.com/mkarasev/daytrip/pkg/logging"
	"github.com/mkarasev/daytrip/tool"
)

// LLMClient defines the interface for LLM providers
type LLMClient interface {
	// Generate generates a response from the LLM. Tool schemas may be nil.
	Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error)
}

const defaultMaxIterations = 10

// Gateway drives an LLMClient. Tools are never ambient state: callers pass a
// registry per call, so two concurrent runs can hold different tool sets.
type Gateway struct {
	client        LLMClient
	maxIterations int
	log           *slog.Logger
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithMaxIterations bounds the tool-call loop.
func WithMaxIterations(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxIterations = n
		}
	}
}

// New creates a Gateway around the given provider.
func New(client LLMClient, opts ...Option) *Gateway {
	g := &Gateway{
		client:        client,
		maxIterations: defaultMaxIterations,
		log:           logging.WithComponent("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewFromEnv selects a provider from whichever credential is present,
// checking OPENAI_API_KEY, then ANTHROPIC_API_KEY, then GEMINI_API_KEY.
func NewFromEnv(opts ...Option) (*Gateway, error) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg := openai.DefaultConfig().WithAPIKey(key).WithBaseURL(os.Getenv("OPENAI_BASE_URL"))
		if model := os.Getenv("OPENAI_MODEL"); model != "" {
			cfg.WithModel(model)
		}
		return New(openai.New(cfg), opts...), nil
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg := claude.DefaultConfig(key, "")
		if model := os.Getenv("ANTHROPIC_MODEL"); model != "" {
			cfg.Model = model
		}
		return New(claude.New(cfg), opts...), nil
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg := gemini.DefaultConfig(key)
		if model := os.Getenv("GEMINI_MODEL"); model != "" {
			cfg.Model = model
		}
		return New(gemini.New(cfg), opts...), nil
	}
	return nil, errs.ErrNoProvider
}

// Complete runs a single prompt without tools and returns the raw text.
func (g *Gateway) Complete(ctx context.Context, system, user string) (string, error) {
	messages := buildMessages(system, user)
	response, err := g.client.Generate(ctx, messages, nil)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	return response.Text(), nil
}

// run drives the tool loop until the model answers without tool calls or the
// iteration bound trips. On the bound, the model is asked once to finalize.
func (g *Gateway) run(ctx context.Context, messages []*message.Message, registry *tool.Registry) (*message.Message, error) {
	var schemas []map[string]any
	if registry != nil {
		schemas = registry.ToJSONSchemas()
	}

	for i := 0; i < g.maxIterations; i++ {
		response, err := g.client.Generate(ctx, messages, schemas)
		if err != nil {
			return nil, fmt.Errorf("llm generation failed: %w", err)
		}
		messages = append(messages, response)

		if len(response.ToolCalls) == 0 {
			return response, nil
		}

		for _, call := range response.ToolCalls {
			result, err := registry.Execute(ctx, call.Name, call.Args)
			if err != nil {
				// Unknown tools and bad arguments go back to the model as
				// data so a single hallucinated call cannot abort the run.
				result = tool.Fail(err).Encode()
				g.log.Warn("tool call failed", "tool", call.Name, "error", err)
			}
			messages = append(messages, message.NewToolResponse(call.ID, result))
		}
	}

	g.log.Warn("tool loop hit iteration bound, forcing final answer", "max_iterations", g.maxIterations)
	messages = append(messages, message.New(message.RoleUser,
		"Tool budget is exhausted. Produce the final structured result now using only the information above. Do not call any more tools."))
	response, err := g.client.Generate(ctx, messages, nil)
	if err != nil {
		return nil, fmt.Errorf("llm generation failed: %w", err)
	}
	return response, nil
}

func buildMessages(system, user string) []*message.Message {
	messages := make([]*message.Message, 0, 2)
	if system != "" {
		messages = append(messages, message.New(message.RoleSystem, system))
	}
	messages = append(messages, message.New(message.RoleUser, user))
	return messages
}
