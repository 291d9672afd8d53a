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

// RunSubWorkflow executes a synthetic sub-workflow of steps, either sharing
// globalMemory by reference (the default) or against an isolated copy. It is
// wired up by internal/engine's init function rather than imported directly,
// since the engine package imports this one to dispatch nodes — assigning a
// function variable here is how the two sides of that recursive relationship
// stay acyclic.
var RunSubWorkflow func(ctx context.Context, sub schema.Workflow, globalMemory *memory.GlobalMemory) (*memory.NodeMemory, error)

// executeLoop iterates params.items, running params.steps as a sub-workflow
// for each item. Globals are shared by reference across iterations by
// default so assignments accumulate; params.scope == "isolated" clones the
// global snapshot per iteration instead.
func executeLoop(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	if RunSubWorkflow == nil {
		return memory.NodeOutput{}, fmt.Errorf("loop executor not wired to an engine runner")
	}

	params := node.ParamsMap()
	tmpl := template.New(global, nodes)

	rawItems, ok := params["items"]
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("loop node requires 'items' parameter")
	}
	items, err := resolveLoopItems(tmpl, rawItems)
	if err != nil {
		return memory.NodeOutput{}, err
	}

	rawSteps, ok := params["steps"]
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("loop node requires 'steps' parameter")
	}
	steps, err := decodeSteps(rawSteps)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("failed to parse 'steps' as list of nodes: %w", err)
	}

	scope, _ := params["scope"].(string)
	isolated := scope == "isolated"

	slog.InfoContext(ctx, "looping", "items", len(items), "steps", len(steps))

	iterations := make([]any, 0, len(items))
	for index, item := range items {
		slog.InfoContext(ctx, "loop iteration", "index", index+1, "total", len(items))

		iterGlobal := global
		if isolated {
			iterGlobal = memory.NewGlobalMemory()
			for k, v := range global.All() {
				iterGlobal.Set(k, v)
			}
		}
		iterGlobal.Set("loop", map[string]any{
			"index": index,
			"item":  item,
			"total": len(items),
		})

		subWorkflow := schema.Workflow{
			Name:    fmt.Sprintf("%s_iter_%d", node.Name, index),
			Version: "1.0",
			Nodes:   steps,
		}

		iterNodes, err := RunSubWorkflow(ctx, subWorkflow, iterGlobal)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("loop iteration %d failed: %w", index, err)
		}
		iterations = append(iterations, iterNodes.AllValues())
	}

	return memory.NodeOutput{
		Status: "success",
		Output: map[string]any{"iterations": iterations},
	}, nil
}

func resolveLoopItems(tmpl *template.Engine, rawItems any) ([]any, error) {
	if s, ok := rawItems.(string); ok {
		rendered, err := tmpl.Render(s)
		if err != nil {
			return nil, fmt.Errorf("rendering loop items: %w", err)
		}
		var items []any
		if err := json.Unmarshal([]byte(rendered), &items); err != nil {
			return nil, fmt.Errorf("failed to parse 'items' as JSON array: %s", rendered)
		}
		return items, nil
	}
	if arr, ok := rawItems.([]any); ok {
		return arr, nil
	}
	return nil, fmt.Errorf("'items' parameter must be an array")
}

// decodeSteps round-trips the dynamically typed params value through JSON
// into []schema.Node, mirroring serde_json::from_value in the original.
func decodeSteps(rawSteps any) ([]schema.Node, error) {
	raw, err := json.Marshal(rawSteps)
	if err != nil {
		return nil, err
	}
	var steps []schema.Node
	if err := json.Unmarshal(raw, &steps); err != nil {
		return nil, err
	}
	return steps, nil
}
