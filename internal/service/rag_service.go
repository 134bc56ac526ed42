// Package service implements indexing of web pages and answering questions
// against the most recently indexed set.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"webqa/internal/domain"
	"webqa/internal/embedding"
	apperrors "webqa/internal/errors"
	"webqa/internal/qa"
	"webqa/internal/session"
	"webqa/internal/vectorstore"
)

// Options carries the retrieval strategy and the answer timeout. Index stages
// are bounded by the timeouts of the clients they call.
type Options struct {
	CollectionPrefix string
	TopK             int
	MapConcurrency   int
	MaxCombineChars  int
	QueryCacheSize   int
	AnswerTimeout    time.Duration
}

// Deps are the components the service is assembled from.
type Deps struct {
	Fetcher    domain.Fetcher
	Chunker    domain.Chunker
	Embedders  domain.EmbedderFactory
	Completers domain.CompleterFactory
	OpenStore  domain.StoreOpener
	Slot       *session.Slot
	Logger     *slog.Logger
}

// IndexReport summarizes a successful indexing run.
type IndexReport struct {
	session.Info
	Took time.Duration `json:"took"`
}

// RAGService loads web pages into a vector store and answers questions over them.
type RAGService struct {
	deps Deps
	opts Options
	log  *slog.Logger
}

func NewRAGService(deps Deps, opts Options) *RAGService {
	if deps.Slot == nil {
		deps.Slot = session.NewSlot()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = 4
	}
	return &RAGService{deps: deps, opts: opts, log: deps.Logger.With(slog.String("component", "service"))}
}

// Index fetches, chunks, embeds and stores the pages in req, then publishes
// a new pipeline. On any failure the previously published pipeline stays active.
func (s *RAGService) Index(ctx context.Context, req domain.IndexRequest) (report IndexReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = IndexReport{}
			err = s.fail(s.log, apperrors.New(apperrors.ErrCodeInternal, fmt.Sprintf("index panic: %v", r), nil))
		}
	}()
	return s.index(ctx, req)
}

func (s *RAGService) index(ctx context.Context, req domain.IndexRequest) (IndexReport, error) {
	if len(req.URLs) == 0 {
		return IndexReport{}, apperrors.ErrEmptyURLList
	}
	start := time.Now()
	log := s.log.With(slog.Int("urls", len(req.URLs)))
	log.Info("index_started")

	docs, err := s.deps.Fetcher.FetchAll(ctx, req.URLs)
	if err != nil {
		return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeFetchFailed, "failed to fetch pages", err))
	}

	var chunks []domain.Chunk
	for _, d := range docs {
		cs, err := s.deps.Chunker.Chunk(d)
		if err != nil {
			return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to chunk "+d.Source, err))
		}
		chunks = append(chunks, cs...)
	}
	if len(chunks) == 0 {
		return IndexReport{}, s.fail(log, apperrors.ErrNoContent)
	}

	embedder, err := s.deps.Embedders(req.APIKey)
	if err != nil {
		return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeEmbeddingFailed, "failed to create embedder", err))
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeEmbeddingFailed, "failed to embed chunks", err))
	}
	if len(vectors) != len(chunks) || len(vectors[0]) == 0 {
		return IndexReport{}, s.fail(log, apperrors.New(apperrors.ErrCodeEmbeddingFailed,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil))
	}

	completer, err := s.deps.Completers(req.APIKey)
	if err != nil {
		return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeModelFailed, "failed to create language model", err))
	}

	collection := vectorstore.CollectionName(s.opts.CollectionPrefix)
	store, err := s.populate(ctx, req.Connection, collection, chunks, vectors)
	if err != nil {
		return IndexReport{}, s.fail(log, err)
	}

	cached, err := embedding.NewCached(embedder, s.opts.QueryCacheSize)
	if err != nil {
		s.discard(store)
		return IndexReport{}, s.fail(log, apperrors.Wrap(apperrors.ErrCodeInternal, "failed to create query cache", err))
	}
	chain := qa.NewChain(
		qa.NewRetriever(cached, store, s.opts.TopK),
		qa.NewMapReduce(completer, qa.MapReduceConfig{
			Concurrency:     s.opts.MapConcurrency,
			MaxCombineChars: s.opts.MaxCombineChars,
		}, s.deps.Logger),
		s.deps.Logger,
	)

	info := s.deps.Slot.Publish(chain, session.Info{
		Collection: collection,
		URLs:       append([]string(nil), req.URLs...),
		Documents:  len(docs),
		Chunks:     len(chunks),
		IndexedAt:  time.Now(),
	}, func() {
		if err := store.Close(); err != nil {
			s.log.Warn("store_close_failed", slog.String("collection", collection), slog.String("error", err.Error()))
		}
	})

	report := IndexReport{Info: info, Took: time.Since(start)}
	log.Info("index_complete",
		slog.Uint64("generation", info.Generation),
		slog.String("collection", collection),
		slog.Int("documents", len(docs)),
		slog.Int("chunks", len(chunks)),
		slog.Duration("took", report.Took))
	return report, nil
}

// populate opens a fresh collection and writes every chunk into it. A
// partially written collection is dropped.
func (s *RAGService) populate(ctx context.Context, conn domain.Connection, collection string, chunks []domain.Chunk, vectors [][]float32) (domain.VectorStore, error) {
	store, err := s.deps.OpenStore(ctx, conn, collection)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreFailed, "failed to connect to vector store", err)
	}
	if err := store.Init(ctx, len(vectors[0])); err != nil {
		s.discard(store)
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreFailed, "failed to create collection", err)
	}
	if err := store.Upsert(ctx, chunks, vectors); err != nil {
		s.discard(store)
		return nil, apperrors.Wrap(apperrors.ErrCodeStoreFailed, "failed to write vectors", err)
	}
	return store, nil
}

func (s *RAGService) discard(store domain.VectorStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Drop(ctx); err != nil {
		s.log.Warn("store_drop_failed", slog.String("error", err.Error()))
	}
	if err := store.Close(); err != nil {
		s.log.Warn("store_close_failed", slog.String("error", err.Error()))
	}
}

func (s *RAGService) fail(log *slog.Logger, err error) error {
	log.Error("index_failed",
		slog.String("code", apperrors.GetCode(err)),
		slog.String("category", string(apperrors.GetCategory(err))),
		slog.String("error", err.Error()))
	return err
}

// Answer runs question through the active pipeline. It never modifies the
// active pipeline or its store.
func (s *RAGService) Answer(ctx context.Context, question string) (domain.Answer, error) {
	h, release, ok := s.deps.Slot.Acquire()
	defer release()
	if !ok {
		return domain.Answer{}, apperrors.ErrNotIndexed
	}
	if s.opts.AnswerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AnswerTimeout)
		defer cancel()
	}

	start := time.Now()
	ans, err := runPipeline(ctx, h.Pipeline, question)
	if err != nil {
		s.log.Error("answer_failed",
			slog.Uint64("generation", h.Info.Generation),
			slog.String("error", err.Error()))
		return domain.Answer{}, apperrors.Wrap(apperrors.ErrCodeAnswerFailed, "answer pipeline failed", err)
	}
	if strings.TrimSpace(ans.Text) == "" {
		s.log.Warn("answer_empty", slog.Uint64("generation", h.Info.Generation))
		return domain.Answer{}, apperrors.ErrNoAnswer
	}
	s.log.Info("answer_complete",
		slog.Uint64("generation", h.Info.Generation),
		slog.Duration("took", time.Since(start)))
	return ans, nil
}

// Status reports the active pipeline, if any.
func (s *RAGService) Status() (session.Info, bool) {
	return s.deps.Slot.Status()
}

func runPipeline(ctx context.Context, p domain.Pipeline, question string) (ans domain.Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()
	return p.Run(ctx, question)
}
