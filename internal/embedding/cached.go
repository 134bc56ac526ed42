// Package embedding holds embedder wrappers shared by all embedding backends.
package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"webqa/internal/domain"
)

// Cached memoizes query embeddings in a fixed-size LRU.
type Cached struct {
	inner domain.Embedder
	cache *lru.Cache[string, []float32]
}

var _ domain.Embedder = (*Cached)(nil)

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner domain.Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string   { return c.inner.Name() }
func (c *Cached) Dimension() int { return c.inner.Dimension() }

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.key(text)
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, v)
	return v, nil
}

// EmbedBatch only calls the inner embedder for texts not already cached.
func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(c.key(t)); ok {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	vecs, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		out[missingIdx[j]] = v
		c.cache.Add(c.key(missing[j]), v)
	}
	return out, nil
}

func (c *Cached) key(text string) string {
	h := sha256.Sum256([]byte(c.inner.Name() + "\x00" + text))
	return hex.EncodeToString(h[:])
}
