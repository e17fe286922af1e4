package search

import (
	"sort"

	"github.com/hyperjump/modulator/internal/models"
)

// Rank scores every chunk against keywords, drops non-matching chunks and
// returns at most topK results by descending score. Ties keep index order.
func Rank(chunks []models.Chunk, keywords []string, topK int) []models.ScoredChunk {
	results := make([]models.ScoredChunk, 0)
	if len(keywords) == 0 || topK <= 0 {
		return results
	}
	for _, ch := range chunks {
		if s := Score(ch.Text, keywords); s > 0 {
			results = append(results, models.ScoredChunk{Chunk: ch, Score: s})
		}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
