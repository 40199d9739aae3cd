package services

import (
	"context"

	"github.com/storyweave/adventure/pkg/chat"
)

// TurnRequest is one story-generation request: the ordered transcript,
// the fixed system instruction, and sampling settings. The response is
// raw text expected to be a single JSON scene object.
type TurnRequest struct {
	Model       string
	System      string
	Transcript  chat.Transcript
	Temperature float64
}

// DefaultTemperature matches the storyteller's sampling setting.
const DefaultTemperature = 0.9

// LLMService defines the interface for the external storyteller model.
type LLMService interface {
	// GenerateTurn sends the transcript and returns the model's raw text.
	GenerateTurn(ctx context.Context, req *TurnRequest) (string, error)

	// Summarize issues the secondary summarization request used by
	// history compaction.
	Summarize(ctx context.Context, prompt string) (string, error)

	// Close releases the underlying client.
	Close() error
}
