package commands

import (
	"context"
	"fmt"

	"github.com/lyzr/orchestrator/common/config"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/common/server"
	workerpkg "github.com/lyzr/orchestrator/internal/worker"
	"github.com/spf13/cobra"
)

func newWorkerCommand() *cobra.Command {
	var id string
	var port int
	var coordinatorURL string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a worker that executes nodes dispatched by a coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(id, port, coordinatorURL)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "worker id")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (defaults to PORT env var or 8080)")
	cmd.Flags().StringVar(&coordinatorURL, "coordinator", "", "coordinator base URL to register with")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func runWorker(id string, port int, coordinatorURL string) error {
	cfg, err := config.Load("workflow-worker")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	if port == 0 {
		port = cfg.Service.Port
	}

	w := workerpkg.New(id)
	e := setupEcho(fmt.Sprintf("worker-%s", id))
	w.RegisterRoutes(e)

	if coordinatorURL != "" {
		workerURL := fmt.Sprintf("http://localhost:%d", port)
		if err := workerpkg.RegisterWithCoordinator(context.Background(), coordinatorURL, id, workerURL); err != nil {
			log.Error("failed to register with coordinator", "error", err)
		} else {
			log.Info("registered with coordinator", "coordinator", coordinatorURL)
		}
	}

	log.Info("worker starting", "worker_id", id, "port", port)
	srv := server.New(fmt.Sprintf("worker-%s", id), port, e, log)
	return srv.Start()
}
