// Package executor implements the twelve node types a workflow can run, and
// the capability-map registry that dispatches a node to its executor by
// type name. There is no runtime subtype hierarchy here — each executor is
// a function value with the same signature, held in a plain map, matching
// the teacher's registry-of-capabilities style rather than an interface
// hierarchy rooted in a base type.
package executor

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
)

// Executor runs a single node against the given memory stores and returns
// its recorded output.
type Executor func(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error)

var registry = map[string]Executor{
	"shell":     executeShell,
	"http":      executeHTTP,
	"delay":     executeDelay,
	"switch":    executeSwitch,
	"script":    executeScript,
	"llm":       executeLLM,
	"transform": executeTransform,
	"file":      executeFile,
	"input":     executeInput,
	"loop":      executeLoop,
	"assign":    executeAssign,
	"mcp":       executeMCP,
}

// Get returns the executor registered for nodeType.
func Get(nodeType string) (Executor, error) {
	ex, ok := registry[nodeType]
	if !ok {
		return nil, fmt.Errorf("unknown node type: %s", nodeType)
	}
	return ex, nil
}

// Execute looks up and runs the executor for node.Type.
func Execute(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	ex, err := Get(node.Type)
	if err != nil {
		return memory.NodeOutput{}, err
	}
	return ex(ctx, node, global, nodes)
}
