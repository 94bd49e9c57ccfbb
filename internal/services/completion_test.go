package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/samrat-shrestha/toptracks/internal/shared"
	tu "github.com/samrat-shrestha/toptracks/internal/testing"
)

func TestCompletionService(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults", func(t *testing.T) {
		svc := NewCompletionService(shared.CompletionConfig{APIKey: "k"}, nil)
		if svc.baseURL != defaultCompletionURL {
			t.Errorf("expected default base url, got %s", svc.baseURL)
		}
		if svc.model != "gpt-3.5-turbo" {
			t.Errorf("expected default model, got %s", svc.model)
		}
	})

	t.Run("Recommender interface", func(t *testing.T) {
		var _ Recommender = NewCompletionService(shared.CompletionConfig{}, nil)
	})

	t.Run("Complete", func(t *testing.T) {
		fake := tu.NewFakeCompletion(t, `[{"song": "X", "artist": "Y"}]`)
		svc := NewCompletionService(shared.CompletionConfig{
			APIKey:      "secret",
			BaseURL:     fake.Server.URL,
			Model:       "gpt-3.5-turbo",
			MaxTokens:   500,
			Temperature: 0.7,
		}, nil)

		text, err := svc.Complete(ctx, "system instruction", "user prompt")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if text != `[{"song": "X", "artist": "Y"}]` {
			t.Errorf("expected raw reply, got %q", text)
		}

		req, auth := fake.Last()
		if auth != "Bearer secret" {
			t.Errorf("expected bearer api key, got %q", auth)
		}
		if req.Model != "gpt-3.5-turbo" || req.MaxTokens != 500 || req.Temperature != 0.7 {
			t.Errorf("unexpected request parameters %+v", req)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected system and user messages, got %d", len(req.Messages))
		}
		if req.Messages[0].Role != "system" || req.Messages[0].Content != "system instruction" {
			t.Errorf("unexpected system message %+v", req.Messages[0])
		}
		if req.Messages[1].Role != "user" || req.Messages[1].Content != "user prompt" {
			t.Errorf("unexpected user message %+v", req.Messages[1])
		}
	})

	t.Run("Missing API key", func(t *testing.T) {
		fake := tu.NewFakeCompletion(t, "[]")
		svc := NewCompletionService(shared.CompletionConfig{BaseURL: fake.Server.URL}, nil)

		if _, err := svc.Complete(ctx, "s", "p"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
		if fake.Calls() != 0 {
			t.Errorf("expected no request without api key, got %d", fake.Calls())
		}
	})

	t.Run("Upstream failure", func(t *testing.T) {
		fake := tu.NewFakeCompletion(t, "[]")
		fake.Status = http.StatusServiceUnavailable
		svc := NewCompletionService(shared.CompletionConfig{APIKey: "k", BaseURL: fake.Server.URL}, nil)

		if _, err := svc.Complete(ctx, "s", "p"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("No choices", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       http.NoBody,
			Header:     http.Header{},
		}, nil)}
		svc := NewCompletionService(shared.CompletionConfig{APIKey: "k", BaseURL: "http://llm.test"}, client)

		if _, err := svc.Complete(ctx, "s", "p"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("Unreadable body", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Body:       &tu.FCloser{},
			Header:     http.Header{},
		}, nil)}
		svc := NewCompletionService(shared.CompletionConfig{APIKey: "k", BaseURL: "http://llm.test"}, client)

		if _, err := svc.Complete(ctx, "s", "p"); err == nil {
			t.Error("expected read error")
		}
	})
}
