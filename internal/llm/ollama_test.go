package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaRequiresModel(t *testing.T) {
	_, err := NewOllama("http://localhost:11434", "", time.Second)
	assert.Error(t, err)
}

func TestOllamaComplete(t *testing.T) {
	var gotPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.NotEmpty(t, req.Messages) {
			gotPrompt = req.Messages[len(req.Messages)-1].Content
		}
		assert.Equal(t, "llama3.2", req.Model)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"llama3.2","created_at":"2025-01-01T00:00:00Z","message":{"role":"assistant","content":"{\"score\": 7}"},"done":true}` + "\n"))
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "llama3.2", 5*time.Second)
	require.NoError(t, err)

	out, err := o.Complete(context.Background(), "grade this")
	require.NoError(t, err)
	assert.Equal(t, `{"score": 7}`, out)
	assert.Equal(t, "grade this", gotPrompt)
}

func TestOllamaCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	o, err := NewOllama(srv.URL, "llama3.2", 5*time.Second)
	require.NoError(t, err)

	_, err = o.Complete(context.Background(), "hi")
	assert.Error(t, err)
}
