package executor

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int   `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type jsonRPCResponse struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int   `json:"id,omitempty"`
	Result  any    `json:"result,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// executeMCP speaks JSON-RPC 2.0 over a spawned MCP server's stdio:
// initialize, notifications/initialized, then tools/call. The child process
// is guaranteed to be killed on every exit path, success or failure.
func executeMCP(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	tmpl := template.New(global, nodes)

	serverConfig, ok := params["server"].(map[string]any)
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("mcp node requires 'server' parameter")
	}
	command, ok := serverConfig["command"].(string)
	if !ok || command == "" {
		return memory.NodeOutput{}, fmt.Errorf("mcp node requires 'server.command'")
	}
	var args []string
	if rawArgs, ok := serverConfig["args"].([]any); ok {
		for _, a := range rawArgs {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}

	toolName, ok := params["tool"].(string)
	if !ok || toolName == "" {
		return memory.NodeOutput{}, fmt.Errorf("mcp node requires 'tool' parameter")
	}
	rawArguments := params["arguments"]
	if rawArguments == nil {
		rawArguments = map[string]any{}
	}

	toolArgs, err := renderValue(tmpl, rawArguments)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering mcp tool arguments: %w", err)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("opening mcp server stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("opening mcp server stdout: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("failed to spawn mcp server: %w", err)
	}
	defer func() { _ = cmd.Process.Kill() }()

	reader := bufio.NewReader(stdout)

	one := 1
	initReq := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      &one,
		Method:  "initialize",
		Params: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{},
			"clientInfo": map[string]any{
				"name":    "workflow-engine",
				"version": "0.1.0",
			},
		},
	}
	if err := writeJSONRPCLine(stdin, initReq); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("sending mcp initialize: %w", err)
	}

	line, err := reader.ReadString('\n')
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("server closed connection during init: %w", err)
	}
	var initResp jsonRPCResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &initResp); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("parsing mcp initialize response: %w", err)
	}
	if initResp.Error != nil {
		return memory.NodeOutput{
			Status: "failed",
			Output: map[string]any{"error": "Initialize failed", "details": initResp.Error},
		}, nil
	}

	initializedNotif := jsonRPCRequest{JSONRPC: "2.0", Method: "notifications/initialized"}
	if err := writeJSONRPCLine(stdin, initializedNotif); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("sending mcp initialized notification: %w", err)
	}

	two := 2
	callReq := jsonRPCRequest{
		JSONRPC: "2.0",
		ID:      &two,
		Method:  "tools/call",
		Params: map[string]any{
			"name":      toolName,
			"arguments": toolArgs,
		},
	}
	if err := writeJSONRPCLine(stdin, callReq); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("sending mcp tools/call: %w", err)
	}

	slog.InfoContext(ctx, "mcp tool call", "tool", toolName)

	line, err = reader.ReadString('\n')
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("server closed connection during tool call: %w", err)
	}
	var callResp jsonRPCResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &callResp); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("parsing mcp tool call response: %w", err)
	}

	_ = stdin.Close()

	switch {
	case callResp.Error != nil:
		return memory.NodeOutput{
			Status: "failed",
			Output: map[string]any{"error": "Tool call failed", "details": callResp.Error},
		}, nil
	case callResp.Result != nil:
		return memory.NodeOutput{Status: "success", Output: callResp.Result}, nil
	default:
		return memory.NodeOutput{
			Status: "failed",
			Output: map[string]any{"error": "Empty response"},
		}, nil
	}
}

func writeJSONRPCLine(w interface{ Write([]byte) (int, error) }, req jsonRPCRequest) error {
	raw, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := w.Write(append(raw, '\n')); err != nil {
		return err
	}
	return nil
}

// renderValue recursively renders every string leaf through the template
// engine, auto-promoting a rendered string to parsed JSON when it looks like
// a JSON object or array.
func renderValue(tmpl *template.Engine, value any) (any, error) {
	switch v := value.(type) {
	case string:
		rendered, err := tmpl.Render(v)
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(rendered)
		looksLikeJSON := (strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}")) ||
			(strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"))
		if looksLikeJSON {
			var parsed any
			if err := json.Unmarshal([]byte(rendered), &parsed); err == nil {
				return parsed, nil
			}
		}
		return rendered, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			rendered, err := renderValue(tmpl, item)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			rendered, err := renderValue(tmpl, item)
			if err != nil {
				return nil, err
			}
			out[k] = rendered
		}
		return out, nil
	default:
		return value, nil
	}
}
