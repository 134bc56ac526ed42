package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Defaults(t *testing.T) {
	tests := []struct {
		api       string
		wantModel string
		wantErr   bool
	}{
		{"", DefaultCompletionsModel, false},
		{APICompletions, DefaultCompletionsModel, false},
		{APIChat, DefaultChatModel, false},
		{"responses", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.api, func(t *testing.T) {
			c, err := NewClient(Config{APIKey: "sk", API: tt.api})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, c.cfg.Model)
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestComplete_CompletionsAPI(t *testing.T) {
	// Given: a completions endpoint
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-1", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"text":"  Milvus is a vector database.\n"}]}`))
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-1"})
	require.NoError(t, err)

	// When: completing a prompt
	out, err := c.Complete(context.Background(), "What is Milvus?")

	// Then: trimmed text with deterministic defaults
	require.NoError(t, err)
	assert.Equal(t, "Milvus is a vector database.", out)
	assert.Equal(t, "What is Milvus?", got.Prompt)
	assert.Equal(t, DefaultCompletionsModel, got.Model)
	assert.Equal(t, 0.0, got.Temperature)
	assert.Equal(t, 256, got.MaxTokens)
}

func TestComplete_ChatAPI(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"42"}}]}`))
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-1", API: APIChat, Temperature: 0.5})
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "answer?")

	require.NoError(t, err)
	assert.Equal(t, "42", out)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "answer?", got.Messages[0].Content)
	assert.Equal(t, 0.5, got.Temperature)
}

func TestComplete_ErrorCarriesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"You exceeded your current quota"}}`))
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-1"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "exceeded your current quota")
}

func TestComplete_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()
	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "sk-1"})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "q")

	assert.Error(t, err)
}

func TestFactory(t *testing.T) {
	f := Factory(Config{API: APIChat})

	c, err := f("sk-2")
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = f("")
	assert.Error(t, err)
}
