// Chat completion client implementing [Recommender]
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samrat-shrestha/toptracks/internal/shared"
)

const (
	defaultCompletionURL   = "https://api.openai.com/v1"
	defaultCompletionModel = "gpt-3.5-turbo"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// CompletionService calls an OpenAI-compatible chat completion endpoint.
type CompletionService struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
}

// NewCompletionService creates a [CompletionService] from config. A nil client uses [http.DefaultClient].
func NewCompletionService(conf shared.CompletionConfig, client *http.Client) *CompletionService {
	if conf.BaseURL == "" {
		conf.BaseURL = defaultCompletionURL
	}
	if conf.Model == "" {
		conf.Model = defaultCompletionModel
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &CompletionService{
		baseURL:     strings.TrimRight(conf.BaseURL, "/"),
		apiKey:      conf.APIKey,
		model:       conf.Model,
		maxTokens:   conf.MaxTokens,
		temperature: conf.Temperature,
		httpClient:  client,
	}
}

// Complete sends the system instruction and prompt and returns the first choice's message content.
func (c *CompletionService) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: completion api_key", shared.ErrMissingCredentials)
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: completion request: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: completion status %d: %s", shared.ErrAPIRequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: completion response: %v", shared.ErrAPIRequest, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: completion error: %s", shared.ErrAPIRequest, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", shared.ErrAPIRequest)
	}

	return parsed.Choices[0].Message.Content, nil
}
