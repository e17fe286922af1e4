// Package ai wraps the text-generation services used to answer questions from
// retrieved study material.
package ai

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by a generator that has no credentials configured.
var ErrUnavailable = errors.New("ai provider unavailable")

// Generator turns a prompt into generated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
