// Package rag answers questions from retrieved study material.
package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/modulator/internal/ai"
	"github.com/hyperjump/modulator/internal/models"
	"go.uber.org/zap"
)

const (
	// AnswerEmptyQuestion is returned when no question was sent.
	AnswerEmptyQuestion = "Please ask a question."
	// AnswerNoMaterial is returned when retrieval finds nothing.
	AnswerNoMaterial = "No relevant content found in study materials. Asking from general knowledge..."
	// AnswerUnavailable is the soft reply used by callers when generation fails.
	AnswerUnavailable = "The system encountered an issue, but the RAG pipeline is active."
)

// Searcher retrieves the chunks relevant to a query.
type Searcher interface {
	Search(query string) []models.Chunk
}

// Answerer retrieves study material for a question and asks the generator to
// answer from it alone.
type Answerer struct {
	searcher  Searcher
	generator ai.Generator
	logger    *zap.Logger
}

// NewAnswerer creates an Answerer. A nil logger disables logging.
func NewAnswerer(searcher Searcher, generator ai.Generator, logger *zap.Logger) *Answerer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Answerer{searcher: searcher, generator: generator, logger: logger}
}

// Ask answers question. An empty question and a question with no matching
// material get canned answers and never reach the generator; a whitespace-only
// question has no keywords and gets the no-material answer. Generation errors
// are returned.
func (a *Answerer) Ask(ctx context.Context, question string) (*models.AskResponse, error) {
	if question == "" {
		return &models.AskResponse{Answer: AnswerEmptyQuestion}, nil
	}
	question = strings.TrimSpace(question)
	a.logger.Info("rag question", zap.String("question", question))

	chunks := a.searcher.Search(question)
	if len(chunks) == 0 {
		a.logger.Info("no study material matched", zap.String("question", question))
		return &models.AskResponse{Answer: AnswerNoMaterial, Fallback: true}, nil
	}

	answer, err := a.generator.Generate(ctx, BuildPrompt(question, chunks))
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	return &models.AskResponse{Answer: answer, Sources: sources(chunks)}, nil
}

// sources returns the distinct chunk sources in rank order.
func sources(chunks []models.Chunk) []string {
	seen := make(map[string]struct{}, len(chunks))
	var out []string
	for _, ch := range chunks {
		if _, ok := seen[ch.Source]; ok {
			continue
		}
		seen[ch.Source] = struct{}{}
		out = append(out, ch.Source)
	}
	return out
}
