// Package milvus stores chunk embeddings in Zilliz Cloud or a self-hosted Milvus.
package milvus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"webqa/internal/domain"
)

const (
	fieldID     = "id"
	fieldText   = "text"
	fieldSource = "source"
	fieldTitle  = "title"
	fieldVector = "vector"

	maxTextLen  = 65535
	maxShortLen = 2048
)

// Config configures collection layout and client behaviour.
type Config struct {
	Metric          string
	AllowInsecure   bool
	InsertBatchSize int
	Timeout         time.Duration
}

// Store binds one Milvus client to one collection.
type Store struct {
	client     *milvusclient.Client
	collection string
	metric     entity.MetricType
	batchSize  int
	dimension  int
	logger     *slog.Logger
}

var _ domain.VectorStore = (*Store)(nil)

// Opener returns a domain.StoreOpener that dials Milvus with each request's credentials.
func Opener(cfg Config, logger *slog.Logger) domain.StoreOpener {
	return func(ctx context.Context, conn domain.Connection, collection string) (domain.VectorStore, error) {
		return Open(ctx, cfg, conn, collection, logger)
	}
}

// Open connects to the server named by conn.URI.
func Open(ctx context.Context, cfg Config, conn domain.Connection, collection string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	addr, secure, err := resolveAddress(conn.URI, conn.Secure, cfg.AllowInsecure)
	if err != nil {
		return nil, err
	}
	if cfg.InsertBatchSize <= 0 {
		cfg.InsertBatchSize = 500
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	client, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address:       addr,
		Username:      conn.User,
		Password:      conn.Password,
		EnableTLSAuth: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", addr, err)
	}
	logger.Info("milvus_connected",
		slog.String("address", addr),
		slog.Bool("tls", secure),
		slog.String("collection", collection))

	return &Store{
		client:     client,
		collection: collection,
		metric:     metricType(cfg.Metric),
		batchSize:  cfg.InsertBatchSize,
		logger:     logger,
	}, nil
}

// Init creates the collection with an AUTOINDEX on the vector field and loads it.
func (s *Store) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension

	schema := entity.NewSchema().
		WithName(s.collection).
		WithDescription("web page chunks").
		WithDynamicFieldEnabled(false).
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeInt64).
			WithIsPrimaryKey(true).WithIsAutoID(true)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxTextLen)).
		WithField(entity.NewField().WithName(fieldSource).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxShortLen)).
		WithField(entity.NewField().WithName(fieldTitle).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxShortLen)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dimension)))

	if err := s.client.CreateCollection(ctx, milvusclient.NewCreateCollectionOption(s.collection, schema)); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}

	idxTask, err := s.client.CreateIndex(ctx,
		milvusclient.NewCreateIndexOption(s.collection, fieldVector, index.NewAutoIndex(s.metric)))
	if err != nil {
		return fmt.Errorf("create index on %s: %w", s.collection, err)
	}
	if err := idxTask.Await(ctx); err != nil {
		return fmt.Errorf("await index on %s: %w", s.collection, err)
	}

	loadTask, err := s.client.LoadCollection(ctx, milvusclient.NewLoadCollectionOption(s.collection))
	if err != nil {
		return fmt.Errorf("load collection %s: %w", s.collection, err)
	}
	if err := loadTask.Await(ctx); err != nil {
		return fmt.Errorf("await load of %s: %w", s.collection, err)
	}

	s.logger.Info("milvus_collection_created",
		slog.String("collection", s.collection),
		slog.Int("dimension", dimension),
		slog.String("metric", string(s.metric)))
	return nil
}

// Upsert inserts chunks column-wise in batches.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", s.dimension, len(v))
		}
	}

	for _, b := range batches(len(chunks), s.batchSize) {
		texts, sources, titles := columns(chunks[b[0]:b[1]])
		opt := milvusclient.NewColumnBasedInsertOption(s.collection).
			WithVarcharColumn(fieldText, texts).
			WithVarcharColumn(fieldSource, sources).
			WithVarcharColumn(fieldTitle, titles).
			WithFloatVectorColumn(fieldVector, s.dimension, vectors[b[0]:b[1]])
		if _, err := s.client.Insert(ctx, opt); err != nil {
			return fmt.Errorf("insert into %s: %w", s.collection, err)
		}
	}
	s.logger.Debug("milvus_inserted",
		slog.String("collection", s.collection),
		slog.Int("rows", len(chunks)))
	return nil
}

// Search returns the topK nearest chunks. Scores are the server's raw values.
func (s *Store) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 4
	}
	opt := milvusclient.NewSearchOption(s.collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(fieldVector).
		WithOutputFields(fieldText, fieldSource, fieldTitle).
		WithConsistencyLevel(entity.ClStrong)

	sets, err := s.client.Search(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", s.collection, err)
	}
	if len(sets) == 0 {
		return []domain.SearchResult{}, nil
	}

	rs := sets[0]
	results := make([]domain.SearchResult, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		chunk := domain.Chunk{Index: i}
		if chunk.Text, err = stringAt(rs, fieldText, i); err != nil {
			return nil, err
		}
		if chunk.Source, err = stringAt(rs, fieldSource, i); err != nil {
			return nil, err
		}
		if chunk.Title, err = stringAt(rs, fieldTitle, i); err != nil {
			return nil, err
		}
		var score float64
		if i < len(rs.Scores) {
			score = float64(rs.Scores[i])
		}
		results = append(results, domain.SearchResult{Chunk: chunk, Score: score})
	}
	return results, nil
}

// Drop deletes the collection.
func (s *Store) Drop(ctx context.Context) error {
	if err := s.client.DropCollection(ctx, milvusclient.NewDropCollectionOption(s.collection)); err != nil {
		return fmt.Errorf("drop collection %s: %w", s.collection, err)
	}
	s.logger.Info("milvus_collection_dropped", slog.String("collection", s.collection))
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Close(ctx)
}

func stringAt(rs milvusclient.ResultSet, field string, i int) (string, error) {
	col := rs.GetColumn(field)
	if col == nil {
		return "", fmt.Errorf("search result missing field %s", field)
	}
	v, err := col.GetAsString(i)
	if err != nil {
		return "", fmt.Errorf("read %s[%d]: %w", field, i, err)
	}
	return v, nil
}

// resolveAddress turns a Zilliz/Milvus URI into a dial address and TLS flag.
// TLS stays on unless the scheme is plain http and insecure connections are allowed.
func resolveAddress(uri string, secure, allowInsecure bool) (string, bool, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return "", false, errors.New("missing vector store uri")
	}
	if !strings.Contains(uri, "://") {
		return uri, secure || !allowInsecure, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return "", false, fmt.Errorf("invalid vector store uri: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid vector store uri: %q has no host", uri)
	}
	switch u.Scheme {
	case "https", "grpcs":
		return u.Host, true, nil
	case "http", "grpc", "tcp":
		return u.Host, secure || !allowInsecure, nil
	default:
		return "", false, fmt.Errorf("unsupported vector store uri scheme: %s", u.Scheme)
	}
}

func metricType(s string) entity.MetricType {
	switch strings.ToUpper(s) {
	case "COSINE":
		return entity.COSINE
	case "IP":
		return entity.IP
	default:
		return entity.L2
	}
}

// batches splits [0,n) into half-open ranges of at most size.
func batches(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for start := 0; start < n; start += size {
		out = append(out, [2]int{start, min(start+size, n)})
	}
	return out
}

func columns(chunks []domain.Chunk) (texts, sources, titles []string) {
	texts = make([]string, len(chunks))
	sources = make([]string, len(chunks))
	titles = make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = truncate(c.Text, maxTextLen)
		sources[i] = truncate(c.Source, maxShortLen)
		titles[i] = truncate(c.Title, maxShortLen)
	}
	return texts, sources, titles
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
