package rag

import (
	"fmt"
	"strings"

	"github.com/hyperjump/modulator/internal/models"
)

const promptTemplate = `You are an educational AI assistant.
Answer the question ONLY using the study material below.

STUDY MATERIAL:
%s

QUESTION:
%s

Answer clearly and simply.
`

// BuildPrompt renders the grounded prompt for question. Each chunk becomes a
// "From <source>: <text>" paragraph in rank order.
func BuildPrompt(question string, chunks []models.Chunk) string {
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = fmt.Sprintf("From %s: %s", ch.Source, ch.Text)
	}
	return fmt.Sprintf(promptTemplate, strings.Join(parts, "\n\n"), question)
}
