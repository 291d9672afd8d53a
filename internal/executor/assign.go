package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeAssign applies a list of {key, value, mode} assignments to global
// memory. mode "set" overwrites; mode "append" pushes onto the existing
// array, starting a fresh one-element array (with a warning) when the key is
// unset or holds a non-array value.
func executeAssign(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	rawAssignments, ok := params["assignments"]
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("assign node requires 'assignments' parameter")
	}
	assignments, ok := rawAssignments.([]any)
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("'assignments' must be an array")
	}

	tmpl := template.New(global, nodes)
	output := map[string]any{}

	for _, raw := range assignments {
		assignment, ok := raw.(map[string]any)
		if !ok {
			return memory.NodeOutput{}, fmt.Errorf("each assignment must be an object")
		}
		key, ok := assignment["key"].(string)
		if !ok || key == "" {
			return memory.NodeOutput{}, fmt.Errorf("assignment requires 'key'")
		}
		valueTemplate, hasValue := assignment["value"]
		if !hasValue {
			return memory.NodeOutput{}, fmt.Errorf("assignment requires 'value'")
		}
		mode, _ := assignment["mode"].(string)
		if mode == "" {
			mode = "set"
		}

		var renderedValue any
		if s, ok := valueTemplate.(string); ok {
			rendered, err := tmpl.Render(s)
			if err != nil {
				return memory.NodeOutput{}, fmt.Errorf("rendering assignment value: %w", err)
			}
			var parsed any
			if err := json.Unmarshal([]byte(rendered), &parsed); err == nil {
				renderedValue = parsed
			} else {
				renderedValue = rendered
			}
		} else {
			renderedValue = valueTemplate
		}

		switch mode {
		case "set":
			global.Set(key, renderedValue)
			output[key] = renderedValue
		case "append":
			existing, ok := global.Get(key)
			var list []any
			if ok {
				if arr, isArr := existing.([]any); isArr {
					list = arr
				} else {
					slog.WarnContext(ctx, "appending onto a non-array variable, starting a fresh array", "key", key)
				}
			}
			list = append(list, renderedValue)
			global.Set(key, list)
			output[key] = list
		default:
			slog.WarnContext(ctx, "unknown assignment mode, skipping", "mode", mode)
		}
	}

	return memory.NodeOutput{Status: "success", Output: output}, nil
}
