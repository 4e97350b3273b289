package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	anthropicBaseURL       = "https://api.anthropic.com/v1/messages"
	anthropicVersion       = "2023-06-01"
	defaultAnthropicModel  = "claude-haiku-4-5-20251001"
	anthropicDefaultTokens = 8192
)

// Anthropic calls the Anthropic Messages API.
type Anthropic struct {
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewAnthropic creates an Anthropic provider. An empty model selects the default.
func NewAnthropic(model string) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	return &Anthropic{
		model:      model,
		baseURL:    anthropicBaseURL,
		httpClient: &http.Client{},
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Error      *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Anthropic) Call(ctx context.Context, apiKey, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("anthropic: %w", ErrNotConfigured)
	}
	if maxOutputTokens <= 0 {
		maxOutputTokens = anthropicDefaultTokens
	}

	reqBody := anthropicRequest{
		Model:     a.model,
		MaxTokens: maxOutputTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshalling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("unmarshalling response (HTTP %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("anthropic returned HTTP %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("anthropic returned HTTP %d", resp.StatusCode)
	}

	if parsed.StopReason == "max_tokens" {
		return "", fmt.Errorf("anthropic: %w", ErrTruncated)
	}
	if len(parsed.Content) == 0 || parsed.Content[0].Type != "text" {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return parsed.Content[0].Text, nil
}
