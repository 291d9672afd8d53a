package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobalMemory_SetGet(t *testing.T) {
	g := NewGlobalMemory()
	_, ok := g.Get("missing")
	assert.False(t, ok)

	g.Set("counter", 0)
	v, ok := g.Get("counter")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestGlobalMemory_AllIsSnapshot(t *testing.T) {
	g := NewGlobalMemory()
	g.Set("a", 1)
	snap := g.All()
	snap["a"] = 999
	v, _ := g.Get("a")
	assert.Equal(t, 1, v, "mutating the snapshot must not affect the store")
}

func TestGlobalMemory_ConcurrentAccess(t *testing.T) {
	g := NewGlobalMemory()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g.Set("k", i)
			g.Get("k")
		}(i)
	}
	wg.Wait()
}

func TestNodeMemory_SetGetOutputValue(t *testing.T) {
	n := NewNodeMemory()
	n.Set("A", NodeOutput{Status: "success", Output: map[string]any{"stdout": "hi"}})

	out, ok := n.Get("A")
	assert.True(t, ok)
	assert.Equal(t, "success", out.Status)

	val, ok := n.OutputValue("A")
	assert.True(t, ok)
	assert.Equal(t, map[string]any{"stdout": "hi"}, val)

	_, ok = n.OutputValue("missing")
	assert.False(t, ok)
}

func TestNodeMemory_AllValuesShape(t *testing.T) {
	n := NewNodeMemory()
	n.Set("A", NodeOutput{Status: "success", Output: "a-out"})
	n.Set("B", NodeOutput{Status: "failed", Output: nil})

	values := n.AllValues()
	assert.Equal(t, "a-out", values["A"])
	assert.Nil(t, values["B"])

	all := n.All()
	assert.Equal(t, "failed", all["B"].Status)
}
