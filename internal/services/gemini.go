package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/storyweave/adventure/pkg/chat"
)

// GeminiService implements LLMService for Google Gemini.
type GeminiService struct {
	client       *genai.Client
	summaryModel string
	logger       *slog.Logger
}

// sceneSchema constrains Gemini's output to the scene wire format.
// Stat and item-description values are strings on the wire; the scene
// normalizer coerces numerics.
var sceneSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"dialogue": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
		"playerState": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"stats":            kvListSchema,
				"inventory":        {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
				"itemDescriptions": kvListSchema,
				"currentLocation":  {Type: genai.TypeString},
				"day":              {Type: genai.TypeInteger},
				"timeOfDay":        {Type: genai.TypeString},
			},
			Required: []string{"stats", "inventory", "itemDescriptions", "currentLocation", "day", "timeOfDay"},
		},
		"choices": {
			Type: genai.TypeArray,
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"text":          {Type: genai.TypeString},
					"description":   {Type: genai.TypeString},
					"isSkillCheck":  {Type: genai.TypeBoolean},
					"skill":         {Type: genai.TypeString},
					"successChance": {Type: genai.TypeInteger},
				},
				Required: []string{"text"},
			},
		},
		"isEnding": {Type: genai.TypeBoolean},
	},
	Required: []string{"dialogue", "playerState", "choices", "isEnding"},
}

var kvListSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"key":   {Type: genai.TypeString},
			"value": {Type: genai.TypeString},
		},
		Required: []string{"key", "value"},
	},
}

// NewGeminiService creates a Gemini-backed storyteller client.
func NewGeminiService(ctx context.Context, apiKey, summaryModel string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiService{
		client:       client,
		summaryModel: summaryModel,
		logger:       logger,
	}, nil
}

func (g *GeminiService) GenerateTurn(ctx context.Context, req *TurnRequest) (string, error) {
	if len(req.Transcript) == 0 {
		return "", fmt.Errorf("transcript is empty")
	}
	last := req.Transcript[len(req.Transcript)-1]
	if last.Role != chat.RoleUser {
		return "", fmt.Errorf("transcript must end with a user turn")
	}

	model := g.client.GenerativeModel(req.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(req.System)},
	}
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = sceneSchema
	model.SetTemperature(float32(req.Temperature))

	cs := model.StartChat()
	for _, turn := range req.Transcript[:len(req.Transcript)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  turn.Role, // gemini uses the same user/model roles
			Parts: []genai.Part{genai.Text(turn.Text)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(last.Text))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return extractText(resp)
}

func (g *GeminiService) Summarize(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.summaryModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini summarization failed: %w", err)
	}
	text, err := extractText(resp)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from gemini")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("unexpected response type from gemini")
	}
	return sb.String(), nil
}
