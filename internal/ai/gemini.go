package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiGenerator generates text with a single Gemini model.
type GeminiGenerator struct {
	apiKey string
	model  string
}

// NewGeminiGenerator returns a generator for model. An empty apiKey yields a
// generator that always fails with ErrUnavailable.
func NewGeminiGenerator(apiKey, model string) *GeminiGenerator {
	return &GeminiGenerator{apiKey: strings.TrimSpace(apiKey), model: model}
}

// Name returns the provider and model, e.g. "gemini/gemini-2.5-flash".
func (g *GeminiGenerator) Name() string {
	return "gemini/" + g.model
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("create gemini client: %w", err)
	}
	resp, err := client.Models.GenerateContent(
		ctx,
		g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", g.model, err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
