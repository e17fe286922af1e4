package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIGenerator generates text through an OpenAI-compatible chat completions API.
type OpenAIGenerator struct {
	apiKey string
	model  string
	client openai.Client
}

// NewOpenAIGenerator returns a generator for model. baseURL may be empty for
// the public API. An empty apiKey yields a generator that always fails with
// ErrUnavailable.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	apiKey = strings.TrimSpace(apiKey)
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(1)}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{
		apiKey: apiKey,
		model:  model,
		client: openai.NewClient(opts...),
	}
}

// Name returns the provider and model, e.g. "openai/gpt-4o-mini".
func (g *OpenAIGenerator) Name() string {
	return "openai/" + g.model
}

func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrUnavailable
	}
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
		Model:    openai.ChatModel(g.model),
	})
	if err != nil {
		return "", fmt.Errorf("openai %s: %w", g.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai %s: response has no choices", g.model)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
