package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "webqa/internal/errors"
)

func TestRootCmd_ListsSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	// When: asking for help
	err := cmd.Execute()

	// Then: every subcommand is listed
	require.NoError(t, err)
	out := buf.String()
	for _, name := range []string{"serve", "tui", "ask"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "--config")
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	// Given: a config naming an unknown store
	path := writeConfig(t, "vector_store:\n  type: sqlite\n")
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "ask", "--url", "https://example.com", "q"})

	// When: running a command
	err := cmd.Execute()

	// Then: config validation fails before anything is fetched
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vector store")
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetCode(err))
	assert.Equal(t, apperrors.CategoryConfig, apperrors.GetCategory(err))
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"ask"})

	assert.Error(t, cmd.Execute())
}

func TestAskCmd_EmptyURLList(t *testing.T) {
	// Given: no --url flags
	path := writeConfig(t, "vector_store:\n  type: memory\n")
	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "ask", "What is milvus?"})

	// When: running ask
	err := cmd.Execute()

	// Then: the user is asked for urls
	require.Error(t, err)
	assert.Contains(t, out.String(), "load status: please enter url list")
}

func TestAskCmd_LoadsAndAnswers(t *testing.T) {
	// Given: a page and an OpenAI-compatible API on one test server
	srv := httptest.NewServer(fakeOpenAI(t))
	defer srv.Close()
	path := writeConfig(t, strings.Join([]string{
		"embedder:",
		"  base_url: " + srv.URL + "/v1",
		"llm:",
		"  base_url: " + srv.URL + "/v1",
		"vector_store:",
		"  type: memory",
		"qa:",
		"  show_sources: true",
		"",
	}, "\n"))

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--config", path, "ask",
		"--url", srv.URL + "/page",
		"--openai-key", "sk-test",
		"What is milvus?"})

	// When: running ask
	err := cmd.Execute()

	// Then: the load succeeds and the answer is printed with its source
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "load status: success to load data", lines[0])
	assert.Equal(t, "Milvus is a vector database.", lines[1])
	assert.Equal(t, "SOURCES: "+srv.URL+"/page", lines[2])
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webqa.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func fakeOpenAI(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/page", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><head><title>Overview</title></head><body><p>Milvus is a vector database built for similarity search.</p></body></html>"))
	})
	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		var req struct {
			Input []string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		type item struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Index: i, Embedding: []float32{1, 0, 0}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"data": data})
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		text := "Milvus is a vector database built for similarity search."
		if strings.Contains(req.Prompt, "FINAL ANSWER:") {
			text = "Milvus is a vector database.\nSOURCES: " + "http://" + r.Host + "/page"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []map[string]string{{"text": text}}})
	})
	return mux
}
