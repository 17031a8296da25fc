package claude

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"

	"github.com/mkarasev/daytrip/message"
)

// Config holds Claude provider configuration
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns default Claude configuration
func DefaultConfig(apiKey, baseURL string) *Config {
	return &Config{
		APIKey:      apiKey,
		BaseURL:     baseURL,
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Provider implements the gateway.LLMClient interface for Claude
type Provider struct {
	config *Config
	client anthropic.Client
}

// New creates a new Claude provider using the official SDK
func New(config *Config) *Provider {
	if config.Model == "" {
		config.Model = "claude-sonnet-4-5-20250929"
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}

	options := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		options = append(options, option.WithBaseURL(config.BaseURL))
	}

	return &Provider{
		config: config,
		client: anthropic.NewClient(options...),
	}
}

// Generate implements gateway.LLMClient
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	var systemPrompts []string
	conversation := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			systemPrompts = append(systemPrompts, msg.Content)
		case message.RoleUser:
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case message.RoleAssistant:
			conversation = append(conversation,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(assistantText(msg))))
		case message.RoleTool:
			// Tool outputs ride back as user turns so the tool loop can
			// continue provider-agnostically.
			conversation = append(conversation,
				anthropic.NewUserMessage(anthropic.NewTextBlock(
					fmt.Sprintf("Tool result (%s): %s", msg.ToolID, msg.Content))))
		}
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.Model),
		Messages:  conversation,
		MaxTokens: p.config.MaxTokens,
	}

	if len(systemPrompts) > 0 {
		params.System = []anthropic.TextBlockParam{
			{Text: strings.Join(systemPrompts, "\n")},
		}
	}
	if p.config.Temperature > 0 {
		params.Temperature = param.NewOpt(p.config.Temperature)
	}
	if len(tools) > 0 {
		claudeTools, err := encodeTools(tools)
		if err != nil {
			return nil, err
		}
		params.Tools = claudeTools
	}

	apiMessage, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("claude api error: %w", err)
	}

	var responseText string
	toolCalls := make([]message.ToolCall, 0)

	for _, content := range apiMessage.Content {
		switch content.Type {
		case "text":
			responseText += content.Text
		case "tool_use":
			var args map[string]any
			if err := json.Unmarshal(content.Input, &args); err != nil {
				return nil, fmt.Errorf("failed to parse tool input: %w", err)
			}
			toolCalls = append(toolCalls, message.ToolCall{
				ID:   content.ID,
				Name: content.Name,
				Args: args,
			})
		}
	}

	response := message.New(message.RoleAssistant, responseText)
	if len(toolCalls) > 0 {
		response.ToolCalls = toolCalls
	}
	return response, nil
}

// encodeTools converts OpenAI-style function schemas into Anthropic tool params.
func encodeTools(tools []map[string]any) ([]anthropic.ToolUnionParam, error) {
	claudeTools := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("tool schema missing function block")
		}
		name, _ := fn["name"].(string)
		if name == "" {
			return nil, fmt.Errorf("tool schema missing function name")
		}

		toolParam := anthropic.ToolParam{Name: name}
		if desc, ok := fn["description"].(string); ok && desc != "" {
			toolParam.Description = param.NewOpt(desc)
		}
		if parameters, ok := fn["parameters"].(map[string]any); ok {
			schema := anthropic.ToolInputSchemaParam{}
			if props, ok := parameters["properties"].(map[string]any); ok {
				schema.Properties = props
			}
			if required, ok := parameters["required"].([]string); ok {
				schema.Required = required
			}
			toolParam.InputSchema = schema
		}

		claudeTools = append(claudeTools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}
	return claudeTools, nil
}

func assistantText(msg *message.Message) string {
	text := msg.Text()
	if text == "" && len(msg.ToolCalls) > 0 {
		names := make([]string, len(msg.ToolCalls))
		for i, tc := range msg.ToolCalls {
			names[i] = tc.Name
		}
		text = "Calling tools: " + strings.Join(names, ", ")
	}
	return text
}
