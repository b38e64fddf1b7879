package services

import (
	"context"
	"sync"

	"github.com/questforge/questforge/pkg/chat"
)

// MockLLMService is a scriptable implementation of LLMService for testing.
type MockLLMService struct {
	ChatFunc          func(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error)
	GenerateImageFunc func(ctx context.Context, prompt string, opts ImageOptions) (string, error)

	// Responses is a FIFO of canned chat responses, consumed when ChatFunc
	// is nil. When exhausted the mock returns DefaultResponse.
	Responses       []string
	DefaultResponse string

	// Track calls for testing
	ChatCalls  []ChatCall
	ImageCalls []string

	mu sync.Mutex // protects all fields above
}

type ChatCall struct {
	Messages []chat.ChatMessage
	Opts     ChatOptions
}

var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService creates a new mock LLM service
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		DefaultResponse: "Mock response",
		ChatCalls:       make([]ChatCall, 0),
		ImageCalls:      make([]string, 0),
	}
}

func (m *MockLLMService) Chat(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ChatCalls = append(m.ChatCalls, ChatCall{Messages: messages, Opts: opts})

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, messages, opts)
	}

	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}

	return m.DefaultResponse, nil
}

func (m *MockLLMService) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ImageCalls = append(m.ImageCalls, prompt)

	if m.GenerateImageFunc != nil {
		return m.GenerateImageFunc(ctx, prompt, opts)
	}

	return "https://example.com/mock-image.png", nil
}

// Enqueue appends canned chat responses.
func (m *MockLLMService) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, responses...)
}

// SetChatError sets up the mock to return an error on Chat.
func (m *MockLLMService) SetChatError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ChatFunc = func(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error) {
		return "", err
	}
}

// Calls returns a copy of the recorded chat calls.
func (m *MockLLMService) Calls() []ChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ChatCall, len(m.ChatCalls))
	copy(calls, m.ChatCalls)
	return calls
}

// Reset clears canned responses and call tracking.
func (m *MockLLMService) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = nil
	m.ChatCalls = make([]ChatCall, 0)
	m.ImageCalls = make([]string, 0)
	m.ChatFunc = nil
	m.GenerateImageFunc = nil
}
