package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

var httpClient = &http.Client{}

// executeHTTP issues an HTTP request described by params.url/method/body.
// Unlike shell/script, a transport failure or unsupported method here is a
// hard error that aborts the workflow.
func executeHTTP(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	url, ok := params["url"].(string)
	if !ok || url == "" {
		return memory.NodeOutput{}, fmt.Errorf("http node requires 'url' parameter")
	}
	method, _ := params["method"].(string)
	if method == "" {
		method = "GET"
	}

	tmpl := template.New(global, nodes)
	renderedURL, err := tmpl.Render(url)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering http url: %w", err)
	}

	slog.InfoContext(ctx, "http request", "method", method, "url", renderedURL)

	var body io.Reader
	switch strings.ToUpper(method) {
	case "GET":
	case "POST":
		payload := params["body"]
		raw, err := json.Marshal(payload)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("marshaling http body: %w", err)
		}
		body = bytes.NewReader(raw)
	default:
		return memory.NodeOutput{}, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), renderedURL, body)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("building http request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("reading http response body: %w", err)
	}

	return memory.NodeOutput{
		Status: "success",
		Output: map[string]any{
			"status":  resp.StatusCode,
			"body":    string(respBody),
			"success": resp.StatusCode >= 200 && resp.StatusCode < 300,
		},
	}, nil
}
