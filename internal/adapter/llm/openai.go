package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"docrag/internal/domain"
)

// OpenAIClient calls an OpenAI-compatible /chat/completions endpoint.
// One call per Generate; transient failures are retried with bounded
// exponential backoff before a GenerationError surfaces.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	maxRetries int
	backoff    time.Duration
	client     *http.Client
}

// Options tune retry and transport behaviour shared by all providers.
type Options struct {
	MaxRetries int
	Backoff    time.Duration
	Timeout    time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func NewOpenAIClient(apiKeyEnv, model string, opts Options) (*OpenAIClient, error) {
	return NewOpenAICompatibleClient(apiKeyEnv, model, "https://api.openai.com/v1", opts)
}

func NewGroqClient(apiKeyEnv, model string, opts Options) (*OpenAIClient, error) {
	return NewOpenAICompatibleClient(apiKeyEnv, model, "https://api.groq.com/openai/v1", opts)
}

func NewOpenAICompatibleClient(apiKeyEnv, model, baseURL string, opts Options) (*OpenAIClient, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	opts = opts.withDefaults()
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		client:     &http.Client{Timeout: opts.Timeout},
	}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		text, err := c.complete(ctx, systemPrompt, userPrompt)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.maxRetries || ctx.Err() != nil {
			break
		}
		wait := c.backoff * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", &domain.GenerationError{Attempts: attempt, Err: ctx.Err()}
		}
	}

	return "", &domain.GenerationError{Attempts: c.maxRetries, Err: lastErr}
}

func (c *OpenAIClient) complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: userPrompt})

	reqBody := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("API returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) ModelName() string {
	return c.model
}
