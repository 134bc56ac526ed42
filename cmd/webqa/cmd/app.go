package cmd

import (
	"log/slog"
	"time"

	"webqa/internal/chunker"
	"webqa/internal/config"
	"webqa/internal/embedding/openai"
	"webqa/internal/fetcher"
	"webqa/internal/gateway"
	"webqa/internal/llm"
	"webqa/internal/service"
	"webqa/internal/session"
	"webqa/internal/vectorstore"
)

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

// buildGateway assembles the service stack from cfg.
func buildGateway(cfg *config.AppConfig, logger *slog.Logger) (*gateway.Gateway, error) {
	ch, err := chunker.New(cfg.Chunker, logger)
	if err != nil {
		return nil, err
	}
	opener, err := vectorstore.NewOpener(cfg.VectorStore, logger)
	if err != nil {
		return nil, err
	}

	prefix := "webqa"
	secure := true
	if m := cfg.VectorStore.Milvus; m != nil {
		prefix = m.CollectionPrefix
		secure = !m.AllowInsecure
	}

	svc := service.NewRAGService(service.Deps{
		Fetcher: fetcher.New(fetcher.Config{
			Timeout:     secs(cfg.Fetcher.TimeoutSecs),
			UserAgent:   cfg.Fetcher.UserAgent,
			Concurrency: cfg.Fetcher.Concurrency,
			MaxBodySize: int64(cfg.Fetcher.MaxBodyMB) << 20,
		}, nil, logger),
		Chunker: ch,
		Embedders: openai.Factory(openai.Config{
			BaseURL:   cfg.Embedder.BaseURL,
			Model:     cfg.Embedder.Model,
			BatchSize: cfg.Embedder.BatchSize,
			Timeout:   secs(cfg.Embedder.TimeoutSecs),
		}),
		Completers: llm.Factory(llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			API:         cfg.LLM.API,
			Model:       cfg.LLM.Model,
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
			Timeout:     secs(cfg.LLM.TimeoutSecs),
		}),
		OpenStore: opener,
		Slot:      session.NewSlot(),
		Logger:    logger,
	}, service.Options{
		CollectionPrefix: prefix,
		TopK:             cfg.QA.TopK,
		MapConcurrency:   cfg.QA.MapConcurrency,
		MaxCombineChars:  cfg.QA.MaxCombineChars,
		QueryCacheSize:   cfg.Embedder.CacheSize,
		AnswerTimeout:    secs(cfg.QA.TimeoutSecs),
	})

	return gateway.New(svc, gateway.Options{
		Defaults:    gateway.CredentialsFromEnv(),
		Secure:      secure,
		ShowSources: cfg.QA.ShowSources,
	}), nil
}
