package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// BytesExtractor is the subset of Extractor the cache wraps.
type BytesExtractor interface {
	ExtractBytes(content []byte, ext string) (string, error)
}

// CachingExtractor memoizes extracted text by content hash so that rebuilding the
// index over unchanged documents skips parsing. Failed extractions are not cached.
type CachingExtractor struct {
	next  BytesExtractor
	cache *lru.Cache[string, string]
}

// NewCachingExtractor wraps next with an LRU of the given size.
// A size <= 0 disables caching and ExtractBytes calls next directly.
func NewCachingExtractor(next BytesExtractor, size int) (*CachingExtractor, error) {
	c := &CachingExtractor{next: next}
	if size <= 0 {
		return c, nil
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// ExtractBytes returns cached text for identical content, otherwise delegates.
func (c *CachingExtractor) ExtractBytes(content []byte, ext string) (string, error) {
	if c.cache == nil {
		return c.next.ExtractBytes(content, ext)
	}
	key := contentKey(content, ext)
	if text, ok := c.cache.Get(key); ok {
		return text, nil
	}
	text, err := c.next.ExtractBytes(content, ext)
	if err != nil {
		return "", err
	}
	c.cache.Add(key, text)
	return text, nil
}

// Len returns the number of cached documents.
func (c *CachingExtractor) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.Len()
}

func contentKey(content []byte, ext string) string {
	sum := sha256.Sum256(content)
	return strings.ToLower(ext) + ":" + hex.EncodeToString(sum[:])
}
