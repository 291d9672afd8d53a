package executor

import (
	"context"
	"testing"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_UnknownType(t *testing.T) {
	_, err := Get("nonsense")
	assert.Error(t, err)
}

func TestGet_AllTwelveTypesRegistered(t *testing.T) {
	types := []string{"shell", "http", "delay", "switch", "script", "llm", "transform", "file", "input", "loop", "assign", "mcp"}
	for _, nodeType := range types {
		_, err := Get(nodeType)
		assert.NoError(t, err, "expected %s to be registered", nodeType)
	}
}

func TestExecuteShell_Success(t *testing.T) {
	node := schema.Node{ID: "A", Type: "shell", Params: map[string]any{"command": "echo hello"}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)

	output := out.Output.(map[string]any)
	assert.Equal(t, "hello", output["stdout"])
	assert.Equal(t, 0, output["exit_code"])
}

func TestExecuteShell_NonZeroExitIsFailedStatusNotGoError(t *testing.T) {
	node := schema.Node{ID: "A", Type: "shell", Params: map[string]any{"command": "exit 7"}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err, "a non-zero exit must not surface as a Go error")
	assert.Equal(t, "failed", out.Status)
	assert.Equal(t, 7, out.Output.(map[string]any)["exit_code"])
}

func TestExecuteShell_TemplatesCommandAgainstNodeOutputs(t *testing.T) {
	nodes := memory.NewNodeMemory()
	nodes.Set("A", memory.NodeOutput{Status: "success", Output: map[string]any{"stdout": "A-out"}})

	node := schema.Node{ID: "B", Type: "shell", Params: map[string]any{"command": "echo {{ nodes.A.output.stdout }}"}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), nodes)
	require.NoError(t, err)
	assert.Equal(t, "A-out", out.Output.(map[string]any)["stdout"])
}

func TestExecuteDelay_RequiresMilliseconds(t *testing.T) {
	node := schema.Node{ID: "A", Type: "delay", Params: map[string]any{}}
	_, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	assert.Error(t, err)
}

func TestExecuteSwitch_NumericComparison(t *testing.T) {
	node := schema.Node{ID: "S", Type: "switch", Params: map[string]any{
		"condition":   "5 > 3",
		"true_value":  "ok",
		"false_value": "no",
	}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)

	output := out.Output.(map[string]any)
	assert.Equal(t, "5 > 3", output["condition"])
	assert.Equal(t, true, output["result"])
	assert.Equal(t, "ok", output["value"])
}

func TestEvaluateCondition_OperatorScanOrder(t *testing.T) {
	cases := []struct {
		expr string
		want bool
	}{
		{"true", true},
		{"false", false},
		{"3 == 3", true},
		{"3 != 4", true},
		{"5 >= 5", true},
		{"4 <= 5", true},
		{"5 > 3", true},
		{"3 < 5", true},
		{"5 >= 6", false},
		{"a == a", true},
		{"a == b", false},
	}
	for _, c := range cases {
		got, err := evaluateCondition(c.expr)
		require.NoError(t, err, c.expr)
		assert.Equal(t, c.want, got, c.expr)
	}
}

func TestExecuteAssign_SetThenAppend(t *testing.T) {
	global := memory.NewGlobalMemory()
	nodes := memory.NewNodeMemory()

	setNode := schema.Node{ID: "init", Type: "assign", Params: map[string]any{
		"assignments": []any{
			map[string]any{"key": "counter", "value": "0", "mode": "set"},
		},
	}}
	_, err := Execute(context.Background(), setNode, global, nodes)
	require.NoError(t, err)

	for _, item := range []string{"1", "2", "3"} {
		appendNode := schema.Node{ID: "append", Type: "assign", Params: map[string]any{
			"assignments": []any{
				map[string]any{"key": "counter", "value": item, "mode": "append"},
			},
		}}
		_, err := Execute(context.Background(), appendNode, global, nodes)
		require.NoError(t, err)
	}

	value, ok := global.Get("counter")
	require.True(t, ok)
	assert.Equal(t, []any{float64(1), float64(2), float64(3)}, value)
}

func TestExecuteTransform_JSONPathExtract(t *testing.T) {
	node := schema.Node{ID: "T", Type: "transform", Params: map[string]any{
		"input": map[string]any{"name": "alice", "age": 30},
		"path":  "$.name",
	}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)

	result := out.Output.(map[string]any)["result"].([]any)
	assert.Equal(t, []any{"alice"}, result)
}

func TestExecuteFile_WriteThenRead(t *testing.T) {
	path := t.TempDir() + "/out.txt"

	writeNode := schema.Node{ID: "W", Type: "file", Params: map[string]any{
		"operation": "write",
		"path":      path,
		"content":   "hello file",
	}}
	_, err := Execute(context.Background(), writeNode, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)

	readNode := schema.Node{ID: "R", Type: "file", Params: map[string]any{
		"operation": "read",
		"path":      path,
	}}
	out, err := Execute(context.Background(), readNode, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)
	assert.Contains(t, out.Output.(map[string]any)["content"], "hello file")
}
