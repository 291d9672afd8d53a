// Package engine implements the local DAG scheduler: given a workflow, it
// computes a dependency graph from each node's "needs" list and runs nodes
// in waves, bounded to a fixed concurrency, until every node has completed
// or the graph is judged stuck.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/internal/executor"
	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"golang.org/x/sync/semaphore"
)

// MaxConcurrency bounds how many nodes may run at once within a single
// engine.Run call. It mirrors the original implementation's fixed semaphore
// of 10 permits.
const MaxConcurrency = 10

// pollInterval is how long Run waits between readiness checks while nodes
// are in flight.
const pollInterval = 100 * time.Millisecond

func init() {
	// Wire the loop executor's recursive sub-workflow runner to this
	// package's Run, breaking what would otherwise be an import cycle
	// between internal/executor and internal/engine.
	executor.RunSubWorkflow = RunWithMemory
}

// Engine holds a single workflow's memory stores across its execution.
type Engine struct {
	workflow     schema.Workflow
	globalMemory *memory.GlobalMemory
	nodeMemory   *memory.NodeMemory
}

// New constructs an Engine with fresh memory seeded from the workflow's
// global section.
func New(workflow schema.Workflow) *Engine {
	global := memory.NewGlobalMemory()
	for k, v := range workflow.Global {
		global.Set(k, v)
	}
	return &Engine{
		workflow:     workflow,
		globalMemory: global,
		nodeMemory:   memory.NewNodeMemory(),
	}
}

// NewWithMemory constructs an Engine reusing an existing global store —
// used by the loop executor so iterations share (or, in isolated scope,
// start from a copy of) the same global variables.
func NewWithMemory(workflow schema.Workflow, global *memory.GlobalMemory) *Engine {
	return &Engine{
		workflow:     workflow,
		globalMemory: global,
		nodeMemory:   memory.NewNodeMemory(),
	}
}

// GlobalMemory returns the engine's global store.
func (e *Engine) GlobalMemory() *memory.GlobalMemory { return e.globalMemory }

// NodeMemory returns the engine's node-output store.
func (e *Engine) NodeMemory() *memory.NodeMemory { return e.nodeMemory }

// Run executes the workflow's DAG to completion, or returns an error if the
// graph is stuck (a cycle or a dependency on a node that never appears).
func (e *Engine) Run(ctx context.Context) error {
	log := logger.Default().WithRunID(uuid.NewString())
	log.InfoContext(ctx, "starting workflow execution", "workflow", e.workflow.Name)

	nodeByID := make(map[string]schema.Node, len(e.workflow.Nodes))
	dependencies := make(map[string]map[string]struct{}, len(e.workflow.Nodes))
	for _, node := range e.workflow.Nodes {
		nodeByID[node.ID] = node
		deps := make(map[string]struct{}, len(node.Needs))
		for _, d := range node.Needs {
			deps[d] = struct{}{}
		}
		dependencies[node.ID] = deps
	}

	var mu sync.Mutex
	completed := make(map[string]struct{})
	inProgress := make(map[string]struct{})

	sem := semaphore.NewWeighted(MaxConcurrency)

	for {
		mu.Lock()
		var ready []string
		for nodeID, deps := range dependencies {
			if _, done := completed[nodeID]; done {
				continue
			}
			if _, running := inProgress[nodeID]; running {
				continue
			}
			allMet := true
			for dep := range deps {
				if _, ok := completed[dep]; !ok {
					allMet = false
					break
				}
			}
			if allMet {
				ready = append(ready, nodeID)
			}
		}
		doneCount := len(completed)
		inFlightCount := len(inProgress)
		mu.Unlock()

		if len(ready) == 0 {
			if doneCount == len(e.workflow.Nodes) {
				break
			}
			if inFlightCount == 0 {
				return fmt.Errorf("workflow is stuck: possible circular dependency or missing nodes")
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
			continue
		}

		mu.Lock()
		for _, nodeID := range ready {
			inProgress[nodeID] = struct{}{}
		}
		mu.Unlock()

		var wg sync.WaitGroup
		errCh := make(chan error, len(ready))

		for _, nodeID := range ready {
			node := nodeByID[nodeID]
			if err := sem.Acquire(ctx, 1); err != nil {
				errCh <- fmt.Errorf("acquiring concurrency permit: %w", err)
				continue
			}
			wg.Add(1)
			go func(node schema.Node) {
				defer wg.Done()
				defer sem.Release(1)

				nodeLog := log.WithNodeID(node.ID)
				nodeLog.InfoContext(ctx, "executing node", "name", node.Name)
				output, err := executor.Execute(ctx, node, e.globalMemory, e.nodeMemory)
				if err != nil {
					nodeLog.ErrorContext(ctx, "node failed", "error", err)
					errCh <- fmt.Errorf("node %s execution failed: %w", node.ID, err)
					return
				}

				nodeLog.InfoContext(ctx, "node completed", "status", output.Status)
				e.nodeMemory.Set(node.ID, output)

				mu.Lock()
				completed[node.ID] = struct{}{}
				delete(inProgress, node.ID)
				mu.Unlock()
			}(node)
		}

		wg.Wait()
		close(errCh)
		for err := range errCh {
			if err != nil {
				return err
			}
		}
	}

	log.InfoContext(ctx, "workflow execution completed successfully", "workflow", e.workflow.Name)
	return nil
}

// RunWithMemory runs a synthetic sub-workflow (e.g. a loop body) against an
// existing global store and returns the resulting node-output memory.
func RunWithMemory(ctx context.Context, sub schema.Workflow, global *memory.GlobalMemory) (*memory.NodeMemory, error) {
	e := NewWithMemory(sub, global)
	if err := e.Run(ctx); err != nil {
		return nil, err
	}
	return e.nodeMemory, nil
}
