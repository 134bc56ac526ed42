// Package vectorstore selects the vector store backend and names collections.
package vectorstore

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"webqa/internal/config"
	"webqa/internal/domain"
	"webqa/internal/vectorstore/memory"
	"webqa/internal/vectorstore/milvus"
)

// NewOpener returns the StoreOpener for the configured backend.
func NewOpener(cfg config.VectorStoreConfig, logger *slog.Logger) (domain.StoreOpener, error) {
	switch cfg.Type {
	case "", "milvus":
		mc := config.MilvusConfig{}
		if cfg.Milvus != nil {
			mc = *cfg.Milvus
		}
		return milvus.Opener(milvus.Config{
			Metric:          mc.Metric,
			AllowInsecure:   mc.AllowInsecure,
			InsertBatchSize: mc.InsertBatchSize,
			Timeout:         time.Duration(mc.TimeoutSecs) * time.Second,
		}, logger), nil
	case "memory":
		metric := ""
		if cfg.Memory != nil {
			metric = cfg.Memory.Metric
		}
		return memory.Opener(metric), nil
	default:
		return nil, fmt.Errorf("unknown vector store type: %s", cfg.Type)
	}
}

// CollectionName returns a fresh collection name under prefix.
// Milvus names only allow letters, digits and underscores.
func CollectionName(prefix string) string {
	if prefix == "" {
		prefix = "webqa"
	}
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
