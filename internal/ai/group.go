package ai

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// GeneratorEntry is one member of a fallback group.
type GeneratorEntry struct {
	Name      string
	Generator Generator
}

// GroupGenerator tries each entry in order and returns the first success.
type GroupGenerator struct {
	items  []GeneratorEntry
	logger *zap.Logger
}

// NewGroupGenerator returns a fallback group over items. A nil logger disables logging.
func NewGroupGenerator(items []GeneratorEntry, logger *zap.Logger) *GroupGenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupGenerator{items: items, logger: logger}
}

func (g *GroupGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for i, item := range g.items {
		if item.Generator == nil {
			continue
		}
		res, err := item.Generator.Generate(ctx, prompt)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", err
		}
		g.logger.Warn("generator failed, trying next",
			zap.Int("index", i),
			zap.String("name", item.Name),
			zap.Error(err))
	}
	if lastErr == nil {
		return "", errors.New("generator not configured")
	}
	return "", lastErr
}
