package commands

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/orchestrator/common/config"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/common/server"
	"github.com/lyzr/orchestrator/internal/engine"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a single-node HTTP endpoint that runs workflows on demand",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (defaults to PORT env var or 8080)")

	return cmd
}

type serveRequest struct {
	File   string         `json:"file"`
	Inputs map[string]any `json:"inputs,omitempty"`
}

type serveResponse struct {
	Status  string         `json:"status"`
	Outputs map[string]any `json:"outputs"`
	Error   string         `json:"error,omitempty"`
}

func runServe(port int) error {
	cfg, err := config.Load("workflow-serve")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	if port == 0 {
		port = cfg.Service.Port
	}

	e := setupEcho("workflow-serve")
	e.POST("/execute", func(ec echo.Context) error {
		var req serveRequest
		if err := ec.Bind(&req); err != nil {
			return ec.JSON(http.StatusBadRequest, serveResponse{Status: "error", Error: err.Error()})
		}

		log.Info("received execution request", "file", req.File)

		wf, err := schema.Load(req.File)
		if err != nil {
			return ec.JSON(http.StatusOK, serveResponse{Status: "error", Error: err.Error()})
		}
		for k, v := range req.Inputs {
			wf.Global[k] = v
		}

		eng := engine.New(wf)
		if err := eng.Run(ec.Request().Context()); err != nil {
			log.Error("execution failed", "error", err)
			return ec.JSON(http.StatusOK, serveResponse{Status: "error", Error: err.Error()})
		}

		return ec.JSON(http.StatusOK, serveResponse{
			Status:  "success",
			Outputs: eng.NodeMemory().AllValues(),
		})
	})

	srv := server.New("workflow-serve", port, e, log)
	return srv.Start()
}

func setupEcho(service string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.GET("/health", echo.WrapHandler(server.HealthHandler(service)))
	return e
}
