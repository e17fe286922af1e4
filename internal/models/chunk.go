// Package models defines core data structures for chunks, builds, and API payloads.
package models

// Chunk is a bounded slice of normalized document text tagged with its source document.
type Chunk struct {
	// Source is the base name of the originating document. It attributes, it does not identify.
	Source string `json:"source"`
	Text   string `json:"text"`
}

// ScoredChunk is a retrieved chunk together with its keyword-overlap score.
type ScoredChunk struct {
	Chunk
	Score int `json:"score"`
}
