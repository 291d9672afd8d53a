package coordinator

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/orchestrator/internal/schema"
)

// RegisterRoutes wires the coordinator's HTTP surface onto e: job
// submission, status polling, worker registration, and worker listing.
func RegisterRoutes(e *echo.Echo, c *Coordinator) {
	e.POST("/submit", submitHandler(c))
	e.GET("/status/:job_id", statusHandler(c))
	e.POST("/register-worker", registerWorkerHandler(c))
	e.GET("/workers", listWorkersHandler(c))
}

type submitRequest struct {
	Workflow schema.Workflow `json:"workflow"`
}

type submitResponse struct {
	JobID   string `json:"job_id"`
	Message string `json:"message"`
}

func submitHandler(c *Coordinator) echo.HandlerFunc {
	return func(ec echo.Context) error {
		var req submitRequest
		if err := ec.Bind(&req); err != nil {
			return ec.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		jobID := c.Submit(ec.Request().Context(), req.Workflow)

		return ec.JSON(http.StatusOK, submitResponse{
			JobID:   jobID,
			Message: fmt.Sprintf("workflow submitted with %d nodes", len(req.Workflow.Nodes)),
		})
	}
}

type statusResponse struct {
	JobID     string         `json:"job_id"`
	Status    string         `json:"status"`
	Progress  float64        `json:"progress"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
	Results   map[string]any `json:"results,omitempty"`
}

func statusHandler(c *Coordinator) echo.HandlerFunc {
	return func(ec echo.Context) error {
		jobID := ec.Param("job_id")
		snap := c.Status(jobID)

		var results map[string]any
		if snap.Results != nil {
			results = make(map[string]any, len(snap.Results))
			for k, v := range snap.Results {
				results[k] = v
			}
		}

		return ec.JSON(http.StatusOK, statusResponse{
			JobID:     snap.JobID,
			Status:    snap.Status,
			Progress:  snap.Progress,
			Completed: snap.Completed,
			Total:     snap.Total,
			Results:   results,
		})
	}
}

type registerWorkerRequest struct {
	WorkerURL string `json:"worker_url"`
	WorkerID  string `json:"worker_id"`
}

type registerWorkerResponse struct {
	Message     string `json:"message"`
	WorkerCount int    `json:"worker_count"`
}

func registerWorkerHandler(c *Coordinator) echo.HandlerFunc {
	return func(ec echo.Context) error {
		var req registerWorkerRequest
		if err := ec.Bind(&req); err != nil {
			return ec.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}

		count := c.RegisterWorker(ec.Request().Context(), req.WorkerID, req.WorkerURL)

		return ec.JSON(http.StatusOK, registerWorkerResponse{
			Message:     fmt.Sprintf("worker %s registered successfully", req.WorkerID),
			WorkerCount: count,
		})
	}
}

func listWorkersHandler(c *Coordinator) echo.HandlerFunc {
	return func(ec echo.Context) error {
		workers := c.Workers()
		return ec.JSON(http.StatusOK, map[string]any{
			"workers": workers,
			"count":   len(workers),
		})
	}
}
