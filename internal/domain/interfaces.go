package domain

import (
	"context"
	"strings"
)

// Document represents a single web page loaded into the system.
type Document struct {
	ID      string
	Source  string
	Title   string
	Content string
}

// Chunk is a fixed-size part of a document used for indexing.
type Chunk struct {
	DocumentID string
	ChunkID    string
	Source     string
	Title      string
	Text       string
	Index      int
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// Connection holds the credentials for a hosted vector store.
type Connection struct {
	URI      string
	User     string
	Password string
	Secure   bool
}

// IndexRequest is the input of one indexing run.
type IndexRequest struct {
	URLs       []string
	APIKey     string
	Connection Connection
}

// Answer is the final output of a retrieval-answering pipeline.
// An empty Text means the pipeline produced no answer.
type Answer struct {
	Text    string
	Sources []string
}

// ParseURLList splits a newline or whitespace separated list of URLs.
func ParseURLList(s string) []string {
	return strings.Fields(s)
}

// Fetcher loads the text content of web pages.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
	FetchAll(ctx context.Context, urls []string) ([]Document, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Chunk(document Document) ([]Chunk, error)
}

// Embedder converts text into vectors.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists vectors into one collection and supports similarity search.
type VectorStore interface {
	Init(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, chunks []Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error)
	Drop(ctx context.Context) error
	Close() error
}

// Completer is a language model that continues a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Pipeline answers questions against one populated vector store.
type Pipeline interface {
	Run(ctx context.Context, question string) (Answer, error)
}

// EmbedderFactory builds an embedder bound to the caller's API key.
type EmbedderFactory func(apiKey string) (Embedder, error)

// CompleterFactory builds a language model client bound to the caller's API key.
type CompleterFactory func(apiKey string) (Completer, error)

// StoreOpener connects to a vector store and binds it to a collection.
type StoreOpener func(ctx context.Context, conn Connection, collection string) (VectorStore, error)
