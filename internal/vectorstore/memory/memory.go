package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/coder/hnsw"

	"webqa/internal/domain"
)

// Store is an in-process vector store backed by an HNSW graph.
// Scores follow the hosted store: L2 returns a distance, COSINE a similarity.
type Store struct {
	mu        sync.RWMutex
	name      string
	metric    string
	dimension int
	graph     *hnsw.Graph[uint64]
	chunks    map[uint64]domain.Chunk
	nextKey   uint64
	closed    bool
}

var _ domain.VectorStore = (*Store)(nil)

// NewStore creates an empty store for one collection. Metric is "L2" or "COSINE".
func NewStore(name, metric string) *Store {
	metric = strings.ToUpper(metric)
	if metric != "COSINE" {
		metric = "L2"
	}
	return &Store{name: name, metric: metric}
}

// Opener returns a domain.StoreOpener producing independent in-memory collections.
// Connection credentials are ignored.
func Opener(metric string) domain.StoreOpener {
	return func(ctx context.Context, conn domain.Connection, collection string) (domain.VectorStore, error) {
		return NewStore(collection, metric), nil
	}
}

func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("collection %s is closed", s.name)
	}
	g := hnsw.NewGraph[uint64]()
	if s.metric == "COSINE" {
		g.Distance = hnsw.CosineDistance
	} else {
		g.Distance = hnsw.EuclideanDistance
	}
	s.graph = g
	s.dimension = dimension
	s.chunks = make(map[uint64]domain.Chunk)
	s.nextKey = 0
	return nil
}

func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ready(); err != nil {
		return err
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(v))
		}
	}
	for i, v := range vectors {
		vec := make([]float32, len(v))
		copy(vec, v)
		key := s.nextKey
		s.nextKey++
		s.graph.Add(hnsw.MakeNode(key, vec))
		s.chunks[key] = chunks[i]
	}
	return nil
}

func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.ready(); err != nil {
		return nil, err
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(vector))
	}
	if topK <= 0 {
		topK = 4
	}
	if s.graph.Len() == 0 {
		return []domain.SearchResult{}, nil
	}

	nodes := s.graph.Search(vector, topK)
	results := make([]domain.SearchResult, 0, len(nodes))
	for _, n := range nodes {
		chunk, ok := s.chunks[n.Key]
		if !ok {
			continue
		}
		d := float64(s.graph.Distance(vector, n.Value))
		results = append(results, domain.SearchResult{Chunk: chunk, Score: s.score(d)})
	}
	return results, nil
}

// Drop discards all data. The store must be re-initialized before reuse.
func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph = nil
	s.chunks = nil
	s.dimension = 0
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Len returns the number of stored vectors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *Store) ready() error {
	if s.closed {
		return fmt.Errorf("collection %s is closed", s.name)
	}
	if s.graph == nil {
		return fmt.Errorf("collection %s is not initialized", s.name)
	}
	return nil
}

func (s *Store) score(distance float64) float64 {
	if s.metric == "COSINE" {
		return 1 - distance
	}
	if math.IsNaN(distance) {
		return math.Inf(1)
	}
	return distance
}
