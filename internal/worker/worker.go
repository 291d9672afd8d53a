// Package worker implements a distributed execution backend: it receives a
// single node plus a snapshot of global/node memory over HTTP, reconstructs
// fresh memory stores from that snapshot, executes the node, and returns
// the result.
package worker

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/internal/coordinator"
	"github.com/lyzr/orchestrator/internal/executor"
	"github.com/lyzr/orchestrator/internal/memory"
)

// Worker executes nodes dispatched to it by a coordinator.
type Worker struct {
	ID string
}

// New returns a Worker identified by id.
func New(id string) *Worker {
	return &Worker{ID: id}
}

// RegisterRoutes wires POST /execute and GET /health onto e.
func (w *Worker) RegisterRoutes(e *echo.Echo) {
	e.POST("/execute", w.handleExecute)
	e.GET("/health", w.handleHealth)
}

func (w *Worker) handleExecute(ec echo.Context) error {
	var req coordinator.ExecuteRequest
	if err := ec.Bind(&req); err != nil {
		return ec.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	log := logger.Default().WithNodeID(req.Node.ID).WithFields(map[string]any{"worker_id": w.ID})
	log.InfoContext(ec.Request().Context(), "executing node")

	global := memory.NewGlobalMemory()
	for k, v := range req.GlobalMemory {
		global.Set(k, v)
	}
	nodes := memory.NewNodeMemory()
	for k, v := range req.NodeOutputs {
		nodes.Set(k, v)
	}

	output, err := executor.Execute(ec.Request().Context(), req.Node, global, nodes)
	if err != nil {
		log.ErrorContext(ec.Request().Context(), "node failed", "error", err)
		return ec.JSON(http.StatusOK, coordinator.ExecuteResponse{
			Status: "failed",
			Error:  err.Error(),
		})
	}

	log.InfoContext(ec.Request().Context(), "node completed")
	return ec.JSON(http.StatusOK, coordinator.ExecuteResponse{
		Status: "success",
		Output: &output,
	})
}

func (w *Worker) handleHealth(ec echo.Context) error {
	return ec.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"worker_id": w.ID,
	})
}

// RegisterWithCoordinator announces this worker's URL to a coordinator via
// POST /register-worker.
func RegisterWithCoordinator(ctx context.Context, coordinatorURL, workerID, workerURL string) error {
	client := &http.Client{}
	return postJSON(ctx, client, coordinatorURL+"/register-worker", map[string]string{
		"worker_id":  workerID,
		"worker_url": workerURL,
	})
}
