package models

import (
	"fmt"
	"strings"
)

// SearchRequest is the body of a retrieval request.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Query   string        `json:"query"`
	Results []ScoredChunk `json:"results"`
	Total   int           `json:"total"`
}

// AskRequest is the body of a grounded question.
type AskRequest struct {
	Question string `json:"question"`
}

// Validate rejects oversized input. The question is passed on as sent.
func (r *AskRequest) Validate() error {
	if len(strings.TrimSpace(r.Question)) > MaxQuestionLength {
		return fmt.Errorf("question exceeds %d characters", MaxQuestionLength)
	}
	return nil
}

// MaxQuestionLength bounds the size of a question accepted by the API.
const MaxQuestionLength = 4000

// AskResponse is the answer to a grounded question.
type AskResponse struct {
	Answer string `json:"answer"`
	// Fallback is true when no study material matched and no generation happened.
	Fallback bool     `json:"fallback,omitempty"`
	Sources  []string `json:"sources,omitempty"`
}
