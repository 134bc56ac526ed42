// Package qa answers questions from retrieved web page chunks.
package qa

import (
	"context"
	"fmt"

	"webqa/internal/domain"
)

// Retriever finds the chunks most similar to a question.
type Retriever struct {
	embedder domain.Embedder
	store    domain.VectorStore
	topK     int
}

func NewRetriever(embedder domain.Embedder, store domain.VectorStore, topK int) *Retriever {
	if topK <= 0 {
		topK = 4
	}
	return &Retriever{embedder: embedder, store: store, topK: topK}
}

func (r *Retriever) Retrieve(ctx context.Context, question string) ([]domain.SearchResult, error) {
	vec, err := r.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := r.store.Search(ctx, vec, r.topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return results, nil
}
