package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteLLM_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "hi there", req.Messages[0].Content)

		_ = json.NewEncoder(w).Encode(chatResponse{
			Choices: []struct {
				Message chatMessage `json:"message"`
			}{{Message: chatMessage{Role: "assistant", Content: "hello back"}}},
		})
	}))
	defer srv.Close()

	node := schema.Node{ID: "L", Type: "llm", Params: map[string]any{
		"prompt":   "hi there",
		"api_key":  "test-key",
		"base_url": srv.URL,
	}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "hello back", out.Output.(map[string]any)["content"])
}

func TestExecuteLLM_NonTwoxxIsHardError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}))
	defer srv.Close()

	node := schema.Node{ID: "L", Type: "llm", Params: map[string]any{
		"prompt":   "hi",
		"api_key":  "test-key",
		"base_url": srv.URL,
	}}
	_, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	assert.Error(t, err, "unlike shell/http, a non-2xx llm response must abort the workflow")
}

func TestExecuteLLM_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	node := schema.Node{ID: "L", Type: "llm", Params: map[string]any{"prompt": "hi"}}
	_, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	assert.Error(t, err)
}
