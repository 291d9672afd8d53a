package template

import (
	"testing"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine() (*Engine, *memory.GlobalMemory, *memory.NodeMemory) {
	g := memory.NewGlobalMemory()
	n := memory.NewNodeMemory()
	return New(g, n), g, n
}

func TestRender_NoPlaceholders_ReturnsInputByteForByte(t *testing.T) {
	e, _, _ := newTestEngine()
	out, err := e.Render("just a plain string, no braces here")
	require.NoError(t, err)
	assert.Equal(t, "just a plain string, no braces here", out)
}

func TestRender_GlobalVariable(t *testing.T) {
	e, g, _ := newTestEngine()
	g.Set("api_url", "https://example.com")

	out, err := e.Render("fetching {{ global.api_url }}")
	require.NoError(t, err)
	assert.Equal(t, "fetching https://example.com", out)
}

func TestRender_NodeOutputField(t *testing.T) {
	e, _, n := newTestEngine()
	n.Set("A", memory.NodeOutput{Status: "success", Output: map[string]any{"stdout": "hello"}})

	out, err := e.Render("{{ nodes.A.output.stdout }}")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestRender_BracketIndexIsSugarForDottedIndex(t *testing.T) {
	e, _, n := newTestEngine()
	n.Set("A", memory.NodeOutput{Status: "success", Output: map[string]any{
		"items": []any{"first", "second"},
	}})

	byBracket, err := e.Render("{{ nodes.A.output.items[1] }}")
	require.NoError(t, err)
	byDot, err := e.Render("{{ nodes.A.output.items.1 }}")
	require.NoError(t, err)

	assert.Equal(t, "second", byBracket)
	assert.Equal(t, byDot, byBracket)
}

func TestRender_MultiplePlaceholders(t *testing.T) {
	e, g, _ := newTestEngine()
	g.Set("first", "a")
	g.Set("second", "b")

	out, err := e.Render("{{ global.first }}-{{ global.second }}")
	require.NoError(t, err)
	assert.Equal(t, "a-b", out)
}

func TestRender_MissingGlobalKeyFailsTheWholeRender(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.Render("{{ global.does_not_exist }}")
	assert.Error(t, err)
}

func TestRender_MissingNodeOutputFails(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.Render("{{ nodes.missing.output.stdout }}")
	assert.Error(t, err)
}

func TestRender_LoopContext(t *testing.T) {
	e, g, _ := newTestEngine()
	g.Set("loop", map[string]any{"index": 0, "item": "x", "total": 3})

	out, err := e.Render("{{ loop.item }}")
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestRender_LoopContextMissingFailsWithHelpfulError(t *testing.T) {
	e, _, _ := newTestEngine()
	_, err := e.Render("{{ loop.item }}")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loop")
}
