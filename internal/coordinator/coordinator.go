// Package coordinator implements the distributed control plane: job
// submission, worker registration, round-robin dispatch of ready nodes to
// registered workers over HTTP, and status polling.
package coordinator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/tidwall/gjson"
)

// pollInterval mirrors the local engine's readiness poll cadence.
const pollInterval = 100 * time.Millisecond

// WorkerInfo identifies a registered worker.
type WorkerInfo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// JobState tracks one submitted workflow's progress.
type JobState struct {
	Workflow      schema.Workflow
	Status        string // pending | running | completed | failed
	CompletedSet  map[string]struct{}
	NodeOutputs   map[string]memory.NodeOutput
	TotalNodes    int
}

// Coordinator holds the in-memory job and worker registry. Non-goals in
// the spec exclude durable persistence and a message broker, so both the
// job table and worker list live only as long as this process does.
type Coordinator struct {
	mu             sync.RWMutex
	workers        []WorkerInfo
	jobs           map[string]*JobState
	nextWorkerIdx  int
	httpClient     *http.Client
}

// New returns an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{
		workers:    []WorkerInfo{},
		jobs:       map[string]*JobState{},
		httpClient: &http.Client{},
	}
}

// Submit registers a new job for wf and starts its execution in the
// background, returning the generated job id immediately.
func (c *Coordinator) Submit(ctx context.Context, wf schema.Workflow) string {
	jobID := uuid.NewString()
	log := logger.Default().WithJobID(jobID)

	log.InfoContext(ctx, "received workflow submission", "workflow", wf.Name, "nodes", len(wf.Nodes))

	job := &JobState{
		Workflow:     wf,
		Status:       "pending",
		CompletedSet: map[string]struct{}{},
		NodeOutputs:  map[string]memory.NodeOutput{},
		TotalNodes:   len(wf.Nodes),
	}

	c.mu.Lock()
	c.jobs[jobID] = job
	c.mu.Unlock()

	go func() {
		if err := c.executeWorkflow(context.Background(), jobID); err != nil {
			log.Error("workflow execution failed", "error", err)
		}
	}()

	return jobID
}

// RegisterWorker adds a worker to the dispatch pool and returns the new
// total worker count.
func (c *Coordinator) RegisterWorker(ctx context.Context, id, url string) int {
	c.mu.Lock()
	c.workers = append(c.workers, WorkerInfo{ID: id, URL: url})
	count := len(c.workers)
	c.mu.Unlock()

	logger.Default().InfoContext(ctx, "worker registered", "worker_id", id, "worker_url", url, "total_workers", count)
	return count
}

// Workers returns a snapshot of the registered worker pool.
func (c *Coordinator) Workers() []WorkerInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]WorkerInfo, len(c.workers))
	copy(out, c.workers)
	return out
}

// StatusSnapshot is the externally visible shape of a job's progress.
type StatusSnapshot struct {
	JobID     string
	Status    string
	Progress  float64
	Completed int
	Total     int
	Results   map[string]memory.NodeOutput
}

// Status returns the current progress snapshot for jobID.
func (c *Coordinator) Status(jobID string) StatusSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	job, ok := c.jobs[jobID]
	if !ok {
		return StatusSnapshot{JobID: jobID, Status: "not_found"}
	}

	progress := 0.0
	if job.TotalNodes > 0 {
		progress = float64(len(job.CompletedSet)) / float64(job.TotalNodes)
	}

	var results map[string]memory.NodeOutput
	if job.Status == "completed" {
		results = make(map[string]memory.NodeOutput, len(job.NodeOutputs))
		for k, v := range job.NodeOutputs {
			results[k] = v
		}
	}

	return StatusSnapshot{
		JobID:     jobID,
		Status:    job.Status,
		Progress:  progress,
		Completed: len(job.CompletedSet),
		Total:     job.TotalNodes,
		Results:   results,
	}
}

// executeWorkflow drives one job's DAG to completion by dispatching ready
// nodes to workers in waves, matching the local engine's readiness loop.
func (c *Coordinator) executeWorkflow(ctx context.Context, jobID string) error {
	log := logger.Default().WithJobID(jobID)
	log.InfoContext(ctx, "starting distributed execution")

	c.mu.Lock()
	job, ok := c.jobs[jobID]
	if ok {
		job.Status = "running"
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}

	dependencies := make(map[string]map[string]struct{}, len(job.Workflow.Nodes))
	for _, node := range job.Workflow.Nodes {
		deps := make(map[string]struct{}, len(node.Needs))
		for _, d := range node.Needs {
			deps[d] = struct{}{}
		}
		dependencies[node.ID] = deps
	}

	var mu sync.Mutex
	inFlight := map[string]struct{}{}

	dispatchReady := func(ready []string) {
		for _, nodeID := range ready {
			mu.Lock()
			if _, already := inFlight[nodeID]; already {
				mu.Unlock()
				continue
			}
			inFlight[nodeID] = struct{}{}
			mu.Unlock()

			go func(nodeID string) {
				// In-flight is cleared as soon as the dispatch attempt
				// returns, whether it succeeded or failed — so a failed
				// worker call doesn't leave the node stuck neither
				// completed nor schedulable again.
				defer func() {
					mu.Lock()
					delete(inFlight, nodeID)
					mu.Unlock()
				}()
				if err := c.executeNodeDistributed(ctx, jobID, nodeID); err != nil {
					log.WithNodeID(nodeID).ErrorContext(ctx, "node execution failed", "error", err)
				}
			}(nodeID)
		}
	}

	var initialReady []string
	for _, node := range job.Workflow.Nodes {
		if len(dependencies[node.ID]) == 0 {
			initialReady = append(initialReady, node.ID)
		}
	}
	log.InfoContext(ctx, "initial ready nodes", "count", len(initialReady))
	dispatchReady(initialReady)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}

		c.mu.RLock()
		job := c.jobs[jobID]
		completedCount := len(job.CompletedSet)
		totalCount := job.TotalNodes
		var newlyReady []string
		for _, node := range job.Workflow.Nodes {
			if _, done := job.CompletedSet[node.ID]; done {
				continue
			}
			mu.Lock()
			_, flying := inFlight[node.ID]
			mu.Unlock()
			if flying {
				continue
			}
			allMet := true
			for dep := range dependencies[node.ID] {
				if _, ok := job.CompletedSet[dep]; !ok {
					allMet = false
					break
				}
			}
			if allMet {
				newlyReady = append(newlyReady, node.ID)
			}
		}
		c.mu.RUnlock()

		dispatchReady(newlyReady)

		if completedCount == totalCount {
			c.mu.Lock()
			job.Status = "completed"
			c.mu.Unlock()
			log.InfoContext(ctx, "workflow completed")
			return nil
		}

		mu.Lock()
		flyingCount := len(inFlight)
		mu.Unlock()
		if flyingCount == 0 && len(newlyReady) == 0 && completedCount < totalCount {
			c.mu.Lock()
			job.Status = "failed"
			c.mu.Unlock()
			log.ErrorContext(ctx, "workflow stuck", "completed", completedCount, "total", totalCount)
			return fmt.Errorf("workflow %s is stuck: completed %d/%d", jobID, completedCount, totalCount)
		}
	}
}

// executeNodeDistributed selects the next worker round-robin, ships the
// node plus a snapshot of current global/node memory to it, and folds the
// response back into job state.
func (c *Coordinator) executeNodeDistributed(ctx context.Context, jobID, nodeID string) error {
	c.mu.RLock()
	if len(c.workers) == 0 {
		c.mu.RUnlock()
		return fmt.Errorf("no workers available")
	}
	job, ok := c.jobs[jobID]
	if !ok {
		c.mu.RUnlock()
		return fmt.Errorf("job %s not found", jobID)
	}
	var node schema.Node
	found := false
	for _, n := range job.Workflow.Nodes {
		if n.ID == nodeID {
			node = n
			found = true
			break
		}
	}
	globalSnapshot := make(map[string]any, len(job.Workflow.Global))
	for k, v := range job.Workflow.Global {
		globalSnapshot[k] = v
	}
	outputsSnapshot := make(map[string]memory.NodeOutput, len(job.NodeOutputs))
	for k, v := range job.NodeOutputs {
		outputsSnapshot[k] = v
	}
	c.mu.RUnlock()
	if !found {
		return fmt.Errorf("node %s not found in job %s", nodeID, jobID)
	}

	c.mu.Lock()
	workerIdx := c.nextWorkerIdx % len(c.workers)
	c.nextWorkerIdx++
	worker := c.workers[workerIdx]
	c.mu.Unlock()

	log := logger.Default().WithJobID(jobID).WithNodeID(nodeID)
	log.InfoContext(ctx, "dispatching node", "worker_id", worker.ID)

	reqBody, err := json.Marshal(ExecuteRequest{
		Node:         node,
		GlobalMemory: globalSnapshot,
		NodeOutputs:  outputsSnapshot,
	})
	if err != nil {
		return fmt.Errorf("marshaling dispatch request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, worker.URL+"/execute", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("building dispatch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dispatching node %s to worker %s: %w", nodeID, worker.ID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading worker response: %w", err)
	}
	log.DebugContext(ctx, "worker response received", "worker_id", worker.ID, "status_field", gjson.GetBytes(raw, "status").String())

	var execResp ExecuteResponse
	if err := json.Unmarshal(raw, &execResp); err != nil {
		return fmt.Errorf("parsing worker response: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	job, ok = c.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s not found", jobID)
	}
	if execResp.Status == "success" && execResp.Output != nil {
		job.NodeOutputs[nodeID] = *execResp.Output
		job.CompletedSet[nodeID] = struct{}{}
		log.InfoContext(ctx, "node completed", "completed", len(job.CompletedSet), "total", job.TotalNodes)
	} else {
		log.ErrorContext(ctx, "node failed", "error", execResp.Error)
	}

	return nil
}

// ExecuteRequest is the wire payload a coordinator ships to a worker's
// POST /execute.
type ExecuteRequest struct {
	Node         schema.Node                   `json:"node"`
	GlobalMemory map[string]any                `json:"global_memory"`
	NodeOutputs  map[string]memory.NodeOutput   `json:"node_outputs"`
}

// ExecuteResponse is what a worker's POST /execute returns.
type ExecuteResponse struct {
	Status string              `json:"status"`
	Output *memory.NodeOutput  `json:"output,omitempty"`
	Error  string              `json:"error,omitempty"`
}
