package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParse_RoundTrip(t *testing.T) {
	src := []byte(`
name: linear-chain
version: "1"
global:
  greeting: hello
nodes:
  - id: A
    type: shell
    params:
      command: "echo A"
  - id: B
    type: shell
    needs: [A]
    params:
      command: "echo {{ nodes.A.output.stdout }}"
`)

	wf, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, "linear-chain", wf.Name)
	assert.Equal(t, "1", wf.Version)
	assert.Equal(t, "hello", wf.Global["greeting"])
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, []string{"A"}, wf.Nodes[1].Needs)

	reserialized, err := yaml.Marshal(wf)
	require.NoError(t, err)

	wf2, err := Parse(reserialized)
	require.NoError(t, err)
	assert.Equal(t, wf.Name, wf2.Name)
	assert.Equal(t, wf.Nodes[0].ID, wf2.Nodes[0].ID)
	assert.Equal(t, wf.Nodes[1].Needs, wf2.Nodes[1].Needs)
}

func TestNode_ParamsMap(t *testing.T) {
	wf, err := Parse([]byte(`
name: t
nodes:
  - id: A
    type: shell
    params:
      command: "echo hi"
`))
	require.NoError(t, err)

	params := wf.Nodes[0].ParamsMap()
	assert.Equal(t, "echo hi", params["command"])
}

func TestNode_ParamsMap_Empty(t *testing.T) {
	n := Node{ID: "A", Type: "delay"}
	assert.Empty(t, n.ParamsMap())
}
