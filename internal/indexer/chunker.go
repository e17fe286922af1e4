// Package indexer builds the in-memory study-material index: discovery,
// extraction, normalization and overlapping fixed-size chunking.
package indexer

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking is returned for a chunk size or overlap the chunker cannot use.
var ErrInvalidChunking = errors.New("invalid chunking parameters")

// Chunker splits text into overlapping windows of a fixed number of characters.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// size must be positive and overlap must be in [0, size).
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrInvalidChunking, size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Step is the distance between the starts of consecutive chunks.
func (c *Chunker) Step() int {
	return c.size - c.overlap
}

// Split returns the windows [start, min(start+size, n)) for start = 0, step, 2*step, ...
// while start < n, so longer texts end with a short tail window lying inside the
// previous one. Text no longer than size yields exactly one chunk; empty text
// yields none.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	if n <= c.size {
		return []string{text}
	}
	chunks := make([]string, 0, n/c.Step()+1)
	for start := 0; start < n; start += c.Step() {
		end := start + c.size
		if end > n {
			end = n
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
