package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/storyweave/adventure/pkg/chat"
	"github.com/storyweave/adventure/pkg/prompts"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"

	DefaultAnthropicMaxTokens = 2048
)

// AnthropicService implements LLMService for Anthropic Claude. Claude has
// no native response-schema support, so the scene schema is appended to
// the system prompt.
type AnthropicService struct {
	apiKey       string
	summaryModel string
	httpClient   *http.Client
	logger       *slog.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicChatRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicChatResponse struct {
	ID         string                  `json:"id"`
	Type       string                  `json:"type"`
	Role       string                  `json:"role"`
	Content    []anthropicContentBlock `json:"content"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewAnthropicService(apiKey, summaryModel string, logger *slog.Logger) *AnthropicService {
	return &AnthropicService{
		apiKey:       apiKey,
		summaryModel: summaryModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (a *AnthropicService) GenerateTurn(ctx context.Context, req *TurnRequest) (string, error) {
	messages := make([]anthropicMessage, 0, len(req.Transcript))
	for _, turn := range req.Transcript {
		role := turn.Role
		if role == chat.RoleModel {
			role = "assistant"
		}
		messages = append(messages, anthropicMessage{Role: role, Content: turn.Text})
	}

	system := req.System + "\n" + prompts.OutputSchema
	return a.chatCompletion(ctx, req.Model, system, messages, &req.Temperature)
}

func (a *AnthropicService) Summarize(ctx context.Context, prompt string) (string, error) {
	messages := []anthropicMessage{{Role: chat.RoleUser, Content: prompt}}
	return a.chatCompletion(ctx, a.summaryModel, "", messages, nil)
}

func (a *AnthropicService) Close() error {
	a.httpClient.CloseIdleConnections()
	return nil
}

func (a *AnthropicService) chatCompletion(ctx context.Context, model, system string, messages []anthropicMessage, temperature *float64) (string, error) {
	anthropicReq := anthropicChatRequest{
		Model:       model,
		MaxTokens:   DefaultAnthropicMaxTokens,
		Temperature: temperature,
		Messages:    messages,
		System:      system,
	}

	reqBody, err := json.Marshal(anthropicReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", anthropicBaseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var anthropicResp anthropicChatResponse
	if err := json.Unmarshal(body, &anthropicResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if anthropicResp.Error != nil {
		return "", fmt.Errorf("API error: %s", anthropicResp.Error.Message)
	}

	var responseText string
	for _, content := range anthropicResp.Content {
		if content.Type == "text" {
			responseText += content.Text
		}
	}

	if responseText == "" {
		return "", fmt.Errorf("empty response from anthropic")
	}

	return responseText, nil
}
