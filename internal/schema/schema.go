// Package schema defines the workflow document model: the YAML shape a
// workflow author writes and the Go types the rest of the engine operates on.
package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Workflow is the top-level document loaded from a workflow YAML file.
type Workflow struct {
	Name    string         `yaml:"name" json:"name"`
	Version string         `yaml:"version" json:"version"`
	Global  map[string]any `yaml:"global,omitempty" json:"global,omitempty"`
	Nodes   []Node         `yaml:"nodes" json:"nodes"`
}

// Node is a single unit of work in the DAG. Params stays a dynamically typed
// value (map[string]any / slices / scalars), mirroring the original DSL's
// untyped params field — each executor knows how to read its own shape.
type Node struct {
	ID     string   `yaml:"id" json:"id"`
	Name   string   `yaml:"name,omitempty" json:"name,omitempty"`
	Type   string   `yaml:"type" json:"type"`
	Needs  []string `yaml:"needs,omitempty" json:"needs,omitempty"`
	Params any      `yaml:"params,omitempty" json:"params,omitempty"`
}

// ParamsMap returns the node's params as a map, or an empty map if params
// were omitted or are not an object.
func (n Node) ParamsMap() map[string]any {
	m, ok := n.Params.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

// Load reads and parses a workflow YAML document from disk.
func Load(path string) (Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workflow{}, fmt.Errorf("reading workflow file %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a workflow document from raw YAML bytes.
func Parse(data []byte) (Workflow, error) {
	var wf Workflow
	if err := yaml.Unmarshal(data, &wf); err != nil {
		return Workflow{}, fmt.Errorf("parsing workflow YAML: %w", err)
	}
	if wf.Global == nil {
		wf.Global = map[string]any{}
	}
	return wf, nil
}
