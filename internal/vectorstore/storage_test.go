package vectorstore

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webqa/internal/config"
	"webqa/internal/domain"
	"webqa/internal/logging"
	"webqa/internal/vectorstore/memory"
)

func TestCollectionName_IsFreshAndValid(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	a := CollectionName("webqa")
	b := CollectionName("webqa")

	assert.NotEqual(t, a, b)
	assert.Regexp(t, valid, a)
	assert.Regexp(t, `^webqa_`, a)
	assert.Regexp(t, `^webqa_`, CollectionName(""))
}

func TestNewOpener_Memory(t *testing.T) {
	open, err := NewOpener(config.VectorStoreConfig{
		Type:   "memory",
		Memory: &config.MemoryConfig{Metric: "COSINE"},
	}, logging.Discard())
	require.NoError(t, err)

	store, err := open(context.Background(), domain.Connection{}, "c1")

	require.NoError(t, err)
	assert.IsType(t, &memory.Store{}, store)
}

func TestNewOpener_MilvusAndUnknown(t *testing.T) {
	open, err := NewOpener(config.VectorStoreConfig{Type: "milvus"}, logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, open)

	_, err = open(context.Background(), domain.Connection{}, "c1")
	assert.Error(t, err, "empty uri is rejected before dialing")

	_, err = NewOpener(config.VectorStoreConfig{Type: "qdrant"}, logging.Discard())
	assert.Error(t, err)
}
