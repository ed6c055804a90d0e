package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
		})
	})
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New("", "key", "", time.Second)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model name cannot be empty")
}

func TestClientComplete(t *testing.T) {
	var req map[string]any
	srv := newTestServer(t, `{"score": 9, "feedback": "great"}`, &req)

	c, err := New(srv.URL+"/v1", "test-key", "test-model", 5*time.Second)
	require.NoError(t, err)

	out, err := c.Complete(context.Background(), "grade this", WithTemperature(0.2), WithMaxTokens(500))
	require.NoError(t, err)
	assert.Equal(t, `{"score": 9, "feedback": "great"}`, out)

	assert.Equal(t, "test-model", req["model"])
	assert.InDelta(t, 0.2, req["temperature"], 0.0001)
	assert.EqualValues(t, 500, req["max_tokens"])
	msgs, ok := req["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 1)
	msg := msgs[0].(map[string]any)
	assert.Equal(t, "user", msg["role"])
	assert.Equal(t, "grade this", msg["content"])
}

func TestClientPing(t *testing.T) {
	srv := newTestServer(t, "", nil)
	c, err := New(srv.URL+"/v1", "test-key", "test-model", 0)
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestClientCompleteServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/v1", "k", "m", time.Second)
	require.NoError(t, err)
	_, err = c.Complete(context.Background(), "hi")
	assert.Error(t, err)
}

func TestApplyOptionsDefaults(t *testing.T) {
	o := applyOptions(nil)
	assert.Equal(t, 0.3, o.Temperature)
	assert.Equal(t, 1000, o.MaxTokens)

	o = applyOptions([]CallOption{WithTemperature(0.7), WithMaxTokens(2000)})
	assert.Equal(t, 0.7, o.Temperature)
	assert.Equal(t, 2000, o.MaxTokens)
}

type flakyCompleter struct {
	failures int
	calls    int
}

func (f *flakyCompleter) Complete(_ context.Context, _ string, _ ...CallOption) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("transient")
	}
	return "ok", nil
}

func TestWithRetry(t *testing.T) {
	t.Run("recovers after transient failures", func(t *testing.T) {
		f := &flakyCompleter{failures: 2}
		out, err := WithRetry(f, 3, time.Millisecond).Complete(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "ok", out)
		assert.Equal(t, 3, f.calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		f := &flakyCompleter{failures: 5}
		_, err := WithRetry(f, 2, time.Millisecond).Complete(context.Background(), "p")
		require.Error(t, err)
		assert.Equal(t, 2, f.calls)
	})

	t.Run("single attempt is passthrough", func(t *testing.T) {
		f := &flakyCompleter{}
		assert.Same(t, Completer(f), WithRetry(f, 1, time.Second))
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		f := &flakyCompleter{failures: 5}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := WithRetry(f, 3, time.Hour).Complete(ctx, "p")
		require.Error(t, err)
		assert.Equal(t, 1, f.calls)
	})
}
