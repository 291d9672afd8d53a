package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage any `json:"usage"`
}

// executeLLM calls an OpenAI-compatible /chat/completions endpoint. The API
// key comes from OPENAI_API_KEY, or params.api_key as a fallback; the base
// URL from params.base_url, OPENAI_BASE_URL, or the OpenAI default, in that
// order. A non-2xx response is a hard error.
func executeLLM(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	tmpl := template.New(global, nodes)

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey, _ = params["api_key"].(string)
	}
	if apiKey == "" {
		return memory.NodeOutput{}, fmt.Errorf("OPENAI_API_KEY not found in environment or params")
	}

	baseURL, _ := params["base_url"].(string)
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model, _ := params["model"].(string)
	if model == "" {
		model = "gpt-3.5-turbo"
	}

	var messages []chatMessage
	if system, ok := params["system"].(string); ok && system != "" {
		renderedSystem, err := tmpl.Render(system)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("rendering llm system prompt: %w", err)
		}
		messages = append(messages, chatMessage{Role: "system", Content: renderedSystem})
	}

	prompt, ok := params["prompt"].(string)
	if !ok || prompt == "" {
		return memory.NodeOutput{}, fmt.Errorf("llm node requires 'prompt' parameter")
	}
	renderedPrompt, err := tmpl.Render(prompt)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering llm prompt: %w", err)
	}
	messages = append(messages, chatMessage{Role: "user", Content: renderedPrompt})

	temperature := 0.7
	if t, ok := coerceFloat64(params["temperature"]); ok {
		temperature = t
	}

	var maxTokens *int
	if mt, ok := coerceFloat64(params["max_tokens"]); ok {
		v := int(mt)
		maxTokens = &v
	}

	slog.InfoContext(ctx, "calling llm", "node", node.Name, "model", model)

	reqBody, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("marshaling llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("building llm request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("calling llm api: %w", err)
	}
	defer resp.Body.Close()

	respText, err := io.ReadAll(resp.Body)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("reading llm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return memory.NodeOutput{}, fmt.Errorf("llm api error (%d): %s", resp.StatusCode, string(respText))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respText, &parsed); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("parsing llm response: %w", err)
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}

	return memory.NodeOutput{
		Status: "success",
		Output: map[string]any{
			"content": content,
			"model":   model,
			"usage":   parsed.Usage,
		},
	}, nil
}
