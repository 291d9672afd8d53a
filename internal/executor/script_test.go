package executor

import (
	"context"
	"os/exec"
	"testing"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteScript_Python(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	node := schema.Node{ID: "S", Type: "script", Params: map[string]any{
		"language": "python3",
		"script":   "print('from script')",
	}}
	out, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	require.NoError(t, err)
	assert.Equal(t, "success", out.Status)
	assert.Equal(t, "from script", out.Output.(map[string]any)["stdout"])
}

func TestExecuteScript_UnsupportedLanguage(t *testing.T) {
	node := schema.Node{ID: "S", Type: "script", Params: map[string]any{
		"language": "ruby",
		"script":   "puts 'hi'",
	}}
	_, err := Execute(context.Background(), node, memory.NewGlobalMemory(), memory.NewNodeMemory())
	assert.Error(t, err)
}

func TestExecuteScript_TemplatesScriptBody(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}

	global := memory.NewGlobalMemory()
	global.Set("name", "world")

	node := schema.Node{ID: "S", Type: "script", Params: map[string]any{
		"language": "python3",
		"script":   "print('hello {{ global.name }}')",
	}}
	out, err := Execute(context.Background(), node, global, memory.NewNodeMemory())
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Output.(map[string]any)["stdout"])
}
