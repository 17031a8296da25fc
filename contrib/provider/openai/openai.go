package openai

import (
	"context"
	"encoding/json"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/mkarasev/daytrip/message"
)

// Config holds OpenAI provider configuration
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default OpenAI configuration
func DefaultConfig() *Config {
	return &Config{
		Model:       "gpt-4o-mini",
		MaxTokens:   4000,
		Temperature: 0.7,
	}
}

// WithAPIKey set api key.
func (cfg *Config) WithAPIKey(apiKey string) *Config {
	cfg.APIKey = apiKey
	return cfg
}

// WithBaseURL set BaseURL.
func (cfg *Config) WithBaseURL(url string) *Config {
	cfg.BaseURL = url
	return cfg
}

// WithModel set model.
func (cfg *Config) WithModel(model string) *Config {
	cfg.Model = model
	return cfg
}

// Provider implements the gateway.LLMClient interface for OpenAI
type Provider struct {
	config *Config
	client openaisdk.Client
}

// New creates a new OpenAI provider using the official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: openaisdk.NewClient(options...),
	}
}

// Generate implements gateway.LLMClient
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	encoded, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openaisdk.ChatCompletionNewParams{
		Messages: encoded,
		Model:    openaisdk.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(p.config.MaxTokens)
	}
	if len(tools) > 0 {
		encodedTools, err := encodeTools(tools)
		if err != nil {
			return nil, err
		}
		params.Tools = encodedTools
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned from openai")
	}

	choice := completion.Choices[0]
	response := message.New(message.RoleAssistant, choice.Message.Content)

	if len(choice.Message.ToolCalls) > 0 {
		toolCalls := make([]message.ToolCall, len(choice.Message.ToolCalls))
		for i, tc := range choice.Message.ToolCalls {
			var args map[string]any
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool arguments: %w", err)
			}
			toolCalls[i] = message.ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: args,
			}
		}
		response.ToolCalls = toolCalls
	}

	return response, nil
}

func encodeMessages(messages []*message.Message) ([]openaisdk.ChatCompletionMessageParamUnion, error) {
	encoded := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			encoded = append(encoded, openaisdk.SystemMessage(msg.Text()))
		case message.RoleUser:
			encoded = append(encoded, openaisdk.UserMessage(msg.Text()))
		case message.RoleAssistant:
			assistantMsg := openaisdk.AssistantMessage(msg.Text())
			if len(msg.ToolCalls) > 0 {
				toolCalls, err := encodeToolCalls(msg.ToolCalls)
				if err != nil {
					return nil, fmt.Errorf("failed to encode tool calls: %w", err)
				}
				if assistantMsg.OfAssistant != nil {
					assistantMsg.OfAssistant.ToolCalls = toolCalls
				}
			}
			encoded = append(encoded, assistantMsg)
		case message.RoleTool:
			encoded = append(encoded, openaisdk.ToolMessage(msg.Text(), msg.ToolID))
		}
	}
	return encoded, nil
}

// encodeTools converts the registry's JSON schemas into typed tool params.
func encodeTools(tools []map[string]any) ([]openaisdk.ChatCompletionToolUnionParam, error) {
	encoded := make([]openaisdk.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool schema missing function block")
		}
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("tool schema missing function name")
		}
		def := openaisdk.FunctionDefinitionParam{Name: name}
		if desc, ok := fn["description"].(string); ok && desc != "" {
			def.Description = param.NewOpt(desc)
		}
		if parameters, ok := fn["parameters"].(map[string]any); ok {
			def.Parameters = openaisdk.FunctionParameters(parameters)
		}
		encoded = append(encoded, openaisdk.ChatCompletionFunctionTool(def))
	}
	return encoded, nil
}

func encodeToolCalls(calls []message.ToolCall) ([]openaisdk.ChatCompletionMessageToolCallUnionParam, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	params := make([]openaisdk.ChatCompletionMessageToolCallUnionParam, 0, len(calls))
	for _, tc := range calls {
		args := tc.Args
		if args == nil {
			args = make(map[string]any)
		}
		raw, err := json.Marshal(args)
		if err != nil {
			return nil, err
		}
		params = append(params, openaisdk.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openaisdk.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openaisdk.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: string(raw),
				},
			},
		})
	}
	return params, nil
}
