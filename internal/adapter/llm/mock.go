package llm

import (
	"context"
	"errors"
	"sync"

	"docrag/internal/domain"
)

var errMockFailure = errors.New("mock llm failure")

// MockLLM returns a canned response and counts calls. FailFirst makes
// the first N calls fail, for exercising the retry path.
type MockLLM struct {
	Response  string
	FailFirst int

	mu    sync.Mutex
	Calls int
	// LastUserPrompt holds the most recent prompt, for assertions on
	// prompt assembly.
	LastUserPrompt   string
	LastSystemPrompt string
}

func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

func (m *MockLLM) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls++
	m.LastSystemPrompt = systemPrompt
	m.LastUserPrompt = userPrompt

	if m.Calls <= m.FailFirst {
		return "", &domain.GenerationError{Attempts: 1, Err: errMockFailure}
	}
	return m.Response, nil
}

func (m *MockLLM) ModelName() string {
	return "mock"
}
