package milvus

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/milvus-io/milvus/client/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webqa/internal/domain"
)

func TestResolveAddress(t *testing.T) {
	tests := []struct {
		name          string
		uri           string
		allowInsecure bool
		wantAddr      string
		wantTLS       bool
		wantErr       bool
	}{
		{"zilliz https", "https://in01-abc.api.gcp-us-west1.zillizcloud.com:443", false, "in01-abc.api.gcp-us-west1.zillizcloud.com:443", true, false},
		{"http forced to tls", "http://localhost:19530", false, "localhost:19530", true, false},
		{"http insecure allowed", "http://localhost:19530", true, "localhost:19530", false, false},
		{"https ignores insecure flag", "https://h:443", true, "h:443", true, false},
		{"bare host", "localhost:19530", true, "localhost:19530", false, false},
		{"empty", "  ", false, "", false, true},
		{"bad scheme", "ftp://h:1", false, "", false, true},
		{"no host", "https://", false, "", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, tls, err := resolveAddress(tt.uri, false, tt.allowInsecure)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, addr)
			assert.Equal(t, tt.wantTLS, tls)
		})
	}
}

func TestResolveAddress_ExplicitSecureWins(t *testing.T) {
	_, tls, err := resolveAddress("http://localhost:19530", true, true)
	require.NoError(t, err)
	assert.True(t, tls)
}

func TestMetricType(t *testing.T) {
	assert.Equal(t, entity.L2, metricType(""))
	assert.Equal(t, entity.L2, metricType("l2"))
	assert.Equal(t, entity.COSINE, metricType("cosine"))
	assert.Equal(t, entity.IP, metricType("IP"))
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 2}, {2, 4}, {4, 5}}, batches(5, 2))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 10))
	assert.Nil(t, batches(0, 10))
}

func TestColumns(t *testing.T) {
	texts, sources, titles := columns([]domain.Chunk{
		{Text: "a", Source: "https://x", Title: "X"},
		{Text: "b", Source: "https://y"},
	})
	assert.Equal(t, []string{"a", "b"}, texts)
	assert.Equal(t, []string{"https://x", "https://y"}, sources)
	assert.Equal(t, []string{"X", ""}, titles)
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	s := strings.Repeat("é", 10) // 20 bytes

	out := truncate(s, 5)

	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "éé", out)
	assert.Equal(t, "short", truncate("short", 10))
}
