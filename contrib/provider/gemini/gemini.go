package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkarasev/daytrip/message"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-2.0-flash",
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}

// Provider implements the gateway.LLMClient interface for Google Gemini.
// Tool calling is not wired for this provider; tool schemas are ignored.
type Provider struct {
	config *Config
	client *http.Client
}

// New creates a new Gemini provider
func New(config *Config) *Provider {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	return &Provider{
		config: config,
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float32 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *geminiError `json:"error,omitempty"`
}

type geminiError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// Generate implements gateway.LLMClient
func (p *Provider) Generate(ctx context.Context, messages []*message.Message, tools []map[string]any) (*message.Message, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key not configured")
	}
	if len(messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	payload := geminiRequest{
		GenerationConfig: &geminiGenerationConfig{
			MaxOutputTokens: p.config.MaxTokens,
			Temperature:     p.config.Temperature,
		},
	}
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			if payload.SystemInstruction == nil {
				payload.SystemInstruction = &geminiContent{}
			}
			payload.SystemInstruction.Parts = append(payload.SystemInstruction.Parts,
				geminiPart{Text: msg.Text()})
		case message.RoleAssistant:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "model",
				Parts: []geminiPart{{Text: msg.Text()}},
			})
		default:
			payload.Contents = append(payload.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: msg.Text()}},
			})
		}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", geminiAPIURL, p.config.Model, p.config.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gemini api error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp geminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("gemini api error (code %d): %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}
	return message.New(message.RoleAssistant, text), nil
}
