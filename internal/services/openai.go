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

	"github.com/questforge/questforge/pkg/chat"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"

	maxChatAttempts = 3
	retryBaseDelay  = 2 * time.Second
)

// OpenAIService implements LLMService against the OpenAI API.
type OpenAIService struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	retryDelay time.Duration
}

var _ LLMService = (*OpenAIService)(nil)

// OpenAIChatRequest represents the request structure for chat completions
type OpenAIChatRequest struct {
	Model       string             `json:"model"`
	Messages    []chat.ChatMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream"`
}

// OpenAIChatChoice represents a single choice in the chat response
type OpenAIChatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

// OpenAIChatResponse represents the response structure for chat completions
type OpenAIChatResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []OpenAIChatChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// OpenAIImageRequest represents the request structure for image generation
type OpenAIImageRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

// OpenAIImageResponse represents the response structure for image generation
type OpenAIImageResponse struct {
	Created int64 `json:"created"`
	Data    []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIService creates a new OpenAI service
func NewOpenAIService(apiKey string, logger *slog.Logger) *OpenAIService {
	return &OpenAIService{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second, // batch world generations can be slow
		},
		logger:     logger,
		retryDelay: retryBaseDelay,
	}
}

// statusError carries the HTTP status so the retry loop can distinguish
// transient server failures from permanent request errors.
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("API request failed with status %d: %s", e.status, e.body)
}

func (e *statusError) transient() bool {
	return e.status >= 500
}

// Chat sends a chat completion request, retrying transient server errors
// with linear backoff. 4xx failures are returned immediately.
func (o *OpenAIService) Chat(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("no messages provided")
	}

	var lastErr error
	for attempt := 1; attempt <= maxChatAttempts; attempt++ {
		content, err := o.chatCompletion(ctx, messages, opts)
		if err == nil {
			return content, nil
		}
		lastErr = err

		se, ok := err.(*statusError)
		if !ok || !se.transient() || attempt == maxChatAttempts {
			break
		}

		delay := o.retryDelay * time.Duration(attempt)
		o.logger.Warn("Transient LLM failure, retrying",
			"attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("chat completion failed after %d attempts: %w", maxChatAttempts, lastErr)
}

func (o *OpenAIService) chatCompletion(ctx context.Context, messages []chat.ChatMessage, opts ChatOptions) (string, error) {
	request := OpenAIChatRequest{
		Model:       opts.Model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Stream:      false,
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var chatResp OpenAIChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from API")
	}

	return chatResp.Choices[0].Message.Content, nil
}

// GenerateImage requests a single generated image and returns its URL.
// Image generation is not retried; callers treat failure as non-fatal.
func (o *OpenAIService) GenerateImage(ctx context.Context, prompt string, opts ImageOptions) (string, error) {
	if opts.Size == "" {
		opts.Size = "256x256"
	}
	if opts.Count <= 0 {
		opts.Count = 1
	}

	request := OpenAIImageRequest{
		Prompt: prompt,
		N:      opts.Count,
		Size:   opts.Size,
	}

	reqBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal image request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/images/generations", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var imageResp OpenAIImageResponse
	if err := json.Unmarshal(body, &imageResp); err != nil {
		return "", fmt.Errorf("failed to parse image response: %w", err)
	}

	if imageResp.Error != nil {
		return "", fmt.Errorf("API error: %s", imageResp.Error.Message)
	}

	if len(imageResp.Data) == 0 {
		return "", fmt.Errorf("no images returned from API")
	}

	return imageResp.Data[0].URL, nil
}
