package provider

import (
	"context"
	"fmt"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI calls the OpenAI chat completions API.
type OpenAI struct {
	model   string
	baseURL string // overridable for tests
}

// NewOpenAI creates an OpenAI provider. An empty model selects the default.
func NewOpenAI(model string) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAI{model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Call(ctx context.Context, apiKey, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	if apiKey == "" {
		return "", fmt.Errorf("openai: %w", ErrNotConfigured)
	}

	cfg := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		cfg.BaseURL = o.baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	text, err := chatCompletion(ctx, client, o.model, systemPrompt, userPrompt, maxOutputTokens)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	return text, nil
}

// chatCompletion is shared by the OpenAI and OpenRouter providers; both
// speak the chat completions dialect and signal truncation the same way.
func chatCompletion(ctx context.Context, client *openai.Client, model, systemPrompt, userPrompt string, maxOutputTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	if maxOutputTokens > 0 {
		req.MaxTokens = maxOutputTokens
	}

	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return "", ErrTruncated
	}
	return choice.Message.Content, nil
}
