package services

import (
	"context"

	"github.com/questforge/questforge/pkg/chat"
)

// ChatOptions tune a single completion call. The orchestrator uses a low
// token limit for narrative turns and a much larger one for batch world
// generation.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// ImageOptions tune a single image generation call.
type ImageOptions struct {
	Size  string // e.g. "256x256"
	Count int
}

// LLMService is the provider adapter for chat completions and image
// generation. Implementations carry no game semantics.
type LLMService interface {
	// Chat sends an ordered message list and returns the raw text completion.
	Chat(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error)

	// GenerateImage returns the URL of a generated image for the prompt.
	GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error)
}
