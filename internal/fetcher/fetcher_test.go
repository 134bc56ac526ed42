package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webqa/internal/logging"
)

const samplePage = `<!doctype html>
<html>
<head><title> Milvus Overview </title><style>body{color:red}</style></head>
<body>
  <script>var tracking = true;</script>
  <h1>What is Milvus?</h1>

  <p>Milvus is a   vector database.</p>
  <p>It stores embeddings.</p>
  <noscript>enable js</noscript>
</body>
</html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprint(w, samplePage)
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, "line one\n\n\n  line   two  \n")
	})
	mux.HandleFunc("/ua", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = fmt.Fprint(w, r.Header.Get("User-Agent"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(cfg Config) *Fetcher {
	return New(cfg, nil, logging.Discard())
}

func TestFetch_ExtractsVisibleText(t *testing.T) {
	// Given: an HTML page with scripts and styles
	srv := newTestServer(t)
	f := newTestFetcher(Config{})

	// When: fetching it
	doc, err := f.Fetch(context.Background(), srv.URL+"/page")

	// Then: only visible text remains, with source metadata
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/page", doc.Source)
	assert.Equal(t, "Milvus Overview", doc.Title)
	assert.NotEmpty(t, doc.ID)
	assert.Contains(t, doc.Content, "What is Milvus?")
	assert.Contains(t, doc.Content, "Milvus is a vector database.")
	assert.NotContains(t, doc.Content, "tracking")
	assert.NotContains(t, doc.Content, "color:red")
	assert.NotContains(t, doc.Content, "enable js")
}

func TestFetch_PlainTextIsNormalized(t *testing.T) {
	srv := newTestServer(t)
	f := newTestFetcher(Config{})

	doc, err := f.Fetch(context.Background(), srv.URL+"/plain")

	require.NoError(t, err)
	assert.Equal(t, "line one\n\nline two", doc.Content)
}

func TestFetch_SendsUserAgent(t *testing.T) {
	srv := newTestServer(t)
	f := newTestFetcher(Config{UserAgent: "webqa-test"})

	doc, err := f.Fetch(context.Background(), srv.URL+"/ua")

	require.NoError(t, err)
	assert.Equal(t, "webqa-test", doc.Content)
}

func TestFetch_NotFoundIsAnError(t *testing.T) {
	srv := newTestServer(t)
	f := newTestFetcher(Config{})

	_, err := f.Fetch(context.Background(), srv.URL+"/missing")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFetch_Timeout(t *testing.T) {
	srv := newTestServer(t)
	f := newTestFetcher(Config{Timeout: 50 * time.Millisecond})

	_, err := f.Fetch(context.Background(), srv.URL+"/slow")

	assert.Error(t, err)
}

func TestFetch_InvalidURL(t *testing.T) {
	f := newTestFetcher(Config{})

	_, err := f.Fetch(context.Background(), "://nope")

	assert.Error(t, err)
}

func TestFetchAll_PreservesOrder(t *testing.T) {
	// Given: several pages
	srv := newTestServer(t)
	f := newTestFetcher(Config{Concurrency: 2})
	urls := []string{srv.URL + "/plain", srv.URL + "/page", srv.URL + "/plain"}

	// When: fetching all
	docs, err := f.FetchAll(context.Background(), urls)

	// Then: results follow the input order
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for i, u := range urls {
		assert.Equal(t, u, docs[i].Source)
	}
}

func TestFetchAll_OneFailureFailsAll(t *testing.T) {
	srv := newTestServer(t)
	f := newTestFetcher(Config{})

	docs, err := f.FetchAll(context.Background(), []string{srv.URL + "/page", srv.URL + "/missing"})

	assert.Error(t, err)
	assert.Nil(t, docs)
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"collapses spaces", "a   b\tc", "a b c"},
		{"keeps single breaks", "a\nb", "a\nb"},
		{"paragraphs", "a\n\n\n\nb", "a\n\nb"},
		{"leading blank lines", "\n\n  a", "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}
