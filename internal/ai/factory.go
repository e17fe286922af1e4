package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/modulator/internal/config"
	"go.uber.org/zap"
)

// NewFromConfig builds the generator described by cfg: the primary model,
// followed by the fallback model when one is set, each call bounded by cfg's
// timeout.
func NewFromConfig(cfg *config.AIConfig, logger *zap.Logger) (Generator, error) {
	var entries []GeneratorEntry
	for _, model := range []string{cfg.Model, cfg.FallbackModel} {
		if model == "" {
			continue
		}
		switch strings.ToLower(cfg.Provider) {
		case "gemini":
			g := NewGeminiGenerator(cfg.APIKey, model)
			entries = append(entries, GeneratorEntry{Name: g.Name(), Generator: g})
		case "openai":
			g := NewOpenAIGenerator(cfg.APIKey, cfg.BaseURL, model)
			entries = append(entries, GeneratorEntry{Name: g.Name(), Generator: g})
		default:
			return nil, fmt.Errorf("unsupported ai provider %q", cfg.Provider)
		}
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no model configured for ai provider %q", cfg.Provider)
	}
	var gen Generator = NewGroupGenerator(entries, logger)
	return WithTimeout(gen, cfg.Timeout()), nil
}

// WithTimeout bounds every Generate call on gen by d. d <= 0 returns gen unchanged.
func WithTimeout(gen Generator, d time.Duration) Generator {
	if d <= 0 {
		return gen
	}
	return GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return gen.Generate(ctx, prompt)
	})
}
