package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const (
	openRouterBaseURL      = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel = "anthropic/claude-sonnet-4"

	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// OpenRouter calls any model behind the OpenRouter OpenAI-compatible API.
// Rate-limited requests are retried with exponential backoff.
type OpenRouter struct {
	model   string
	baseURL string
}

// NewOpenRouter creates an OpenRouter provider. An empty model selects the default.
func NewOpenRouter(model string) *OpenRouter {
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &OpenRouter{model: model, baseURL: openRouterBaseURL}
}

func (o *OpenRouter) Name() string { return "openrouter" }

func (o *OpenRouter) Call(ctx context.Context, apiKey, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("openrouter: %w", ErrNotConfigured)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = o.baseURL
	client := openai.NewClientWithConfig(cfg)

	var lastErr error
	for attempt := range maxRetries {
		text, err := chatCompletion(ctx, client, o.model, systemPrompt, userPrompt, maxOutputTokens)
		if err == nil {
			return text, nil
		}
		if !isRateLimit(err) {
			return "", fmt.Errorf("openrouter: %w", err)
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("openrouter: rate limited after %d retries: %w", maxRetries, lastErr)
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	return errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests
}
