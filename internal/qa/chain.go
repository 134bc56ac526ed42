package qa

import (
	"context"
	"log/slog"
	"time"

	"webqa/internal/domain"
)

// Chain is the retrieval-answering pipeline published after indexing.
type Chain struct {
	retriever *Retriever
	mr        *MapReduce
	logger    *slog.Logger
}

var _ domain.Pipeline = (*Chain)(nil)

func NewChain(retriever *Retriever, mr *MapReduce, logger *slog.Logger) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{retriever: retriever, mr: mr, logger: logger}
}

// Run answers question from the indexed pages.
func (c *Chain) Run(ctx context.Context, question string) (domain.Answer, error) {
	start := time.Now()
	results, err := c.retriever.Retrieve(ctx, question)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(results) == 0 {
		return domain.Answer{}, nil
	}

	ans, err := c.mr.Synthesize(ctx, question, results)
	if err != nil {
		return domain.Answer{}, err
	}
	c.logger.Info("chain_answered",
		slog.Int("retrieved", len(results)),
		slog.Int("sources", len(ans.Sources)),
		slog.Duration("took", time.Since(start)))
	return ans, nil
}
