// Package search ranks indexed study-material chunks by keyword overlap with a query.
package search

import (
	"strings"

	"github.com/hyperjump/modulator/internal/config"
	"github.com/hyperjump/modulator/internal/models"
)

// ChunkSource provides the current chunk snapshot. *indexer.Index implements it.
type ChunkSource interface {
	Chunks() []models.Chunk
}

// StaticSource is a fixed chunk set.
type StaticSource []models.Chunk

// Chunks returns the fixed chunk set.
func (s StaticSource) Chunks() []models.Chunk {
	return s
}

// Retriever answers keyword queries against a ChunkSource. It holds no state of
// its own and is safe for concurrent use, including while the source rebuilds.
type Retriever struct {
	source     ChunkSource
	topK       int
	minKeyword int
}

// NewRetriever creates a retriever over src. Zero config values fall back to
// top 5 results and a minimum keyword length of 3.
func NewRetriever(src ChunkSource, cfg *config.SearchConfig) *Retriever {
	r := &Retriever{source: src, topK: 5, minKeyword: 3}
	if cfg != nil {
		if cfg.TopK > 0 {
			r.topK = cfg.TopK
		}
		if cfg.MinKeywordLength > 0 {
			r.minKeyword = cfg.MinKeywordLength
		}
	}
	return r
}

// TopK returns the maximum number of results per query.
func (r *Retriever) TopK() int {
	return r.topK
}

// Search returns the most relevant chunks for query. A blank query, or one
// without usable keywords, returns an empty slice.
func (r *Retriever) Search(query string) []models.Chunk {
	scored := r.SearchScored(query)
	chunks := make([]models.Chunk, len(scored))
	for i, s := range scored {
		chunks[i] = s.Chunk
	}
	return chunks
}

// SearchScored is Search with the keyword-overlap score of each result.
func (r *Retriever) SearchScored(query string) []models.ScoredChunk {
	if strings.TrimSpace(query) == "" {
		return []models.ScoredChunk{}
	}
	return Rank(r.source.Chunks(), Keywords(query, r.minKeyword), r.topK)
}
