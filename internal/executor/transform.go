package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/PaesslerAG/jsonpath"
	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeTransform is the only node type allowed to reach for a JSONPath
// library — every other executor and the template engine itself stay off
// JSONPath per the design notes.
func executeTransform(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	rawInput, ok := params["input"]
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("transform node requires 'input' parameter")
	}

	tmpl := template.New(global, nodes)

	inputValue := rawInput
	if s, ok := rawInput.(string); ok {
		rendered, err := tmpl.Render(s)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("rendering transform input: %w", err)
		}
		var parsed any
		if err := json.Unmarshal([]byte(rendered), &parsed); err == nil {
			inputValue = parsed
		} else {
			inputValue = rendered
		}
	}

	slog.InfoContext(ctx, "transforming data with jsonpath")

	if path, ok := params["path"].(string); ok && path != "" {
		result, err := evalJSONPath(path, inputValue)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("jsonpath %q evaluation failed: %w", path, err)
		}
		return memory.NodeOutput{
			Status: "success",
			Output: map[string]any{"result": result},
		}, nil
	}

	if extract, ok := params["extract"].(map[string]any); ok {
		out := make(map[string]any, len(extract))
		for key, pathValue := range extract {
			path, ok := pathValue.(string)
			if !ok {
				continue
			}
			result, err := evalJSONPath(path, inputValue)
			if err != nil {
				return memory.NodeOutput{}, fmt.Errorf("jsonpath %q evaluation failed: %w", path, err)
			}
			out[key] = result
		}
		return memory.NodeOutput{Status: "success", Output: out}, nil
	}

	return memory.NodeOutput{}, fmt.Errorf("transform node requires either 'path' or 'extract' parameter")
}

// evalJSONPath always returns a slice of matches, matching the original
// jsonpath_lib::selector's Vec<&Value> contract regardless of how many
// values the path matched.
func evalJSONPath(path string, input any) ([]any, error) {
	result, err := jsonpath.Get(path, input)
	if err != nil {
		return nil, err
	}
	if arr, ok := result.([]any); ok {
		return arr, nil
	}
	return []any{result}, nil
}
