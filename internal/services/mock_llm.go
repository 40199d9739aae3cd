package services

import (
	"context"
	"sync"
)

// MockLLMService is a mock implementation of LLMService for testing
type MockLLMService struct {
	GenerateTurnFunc func(ctx context.Context, req *TurnRequest) (string, error)
	SummarizeFunc    func(ctx context.Context, prompt string) (string, error)

	// Track calls for testing
	GenerateTurnCalls []*TurnRequest
	SummarizeCalls    []string

	mu sync.Mutex // protects all fields above
}

var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService creates a new mock LLM service
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		GenerateTurnCalls: make([]*TurnRequest, 0),
		SummarizeCalls:    make([]string, 0),
	}
}

func (m *MockLLMService) GenerateTurn(ctx context.Context, req *TurnRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateTurnCalls = append(m.GenerateTurnCalls, req)

	if m.GenerateTurnFunc != nil {
		return m.GenerateTurnFunc(ctx, req)
	}
	return "", nil
}

func (m *MockLLMService) Summarize(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SummarizeCalls = append(m.SummarizeCalls, prompt)

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, prompt)
	}
	return "summary", nil
}

func (m *MockLLMService) Close() error { return nil }

// LastGenerateTurn returns the most recent turn request, or nil.
func (m *MockLLMService) LastGenerateTurn() *TurnRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.GenerateTurnCalls) == 0 {
		return nil
	}
	return m.GenerateTurnCalls[len(m.GenerateTurnCalls)-1]
}
