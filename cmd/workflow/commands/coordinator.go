package commands

import (
	"fmt"

	"github.com/lyzr/orchestrator/common/config"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/common/server"
	"github.com/lyzr/orchestrator/internal/coordinator"
	"github.com/spf13/cobra"
)

func newCoordinatorCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "coordinator",
		Short: "Run the coordinator control plane",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCoordinator(port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (defaults to PORT env var or 8080)")

	return cmd
}

func runCoordinator(port int) error {
	cfg, err := config.Load("workflow-coordinator")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)
	if port == 0 {
		port = cfg.Service.Port
	}

	c := coordinator.New()
	e := setupEcho("workflow-coordinator")
	coordinator.RegisterRoutes(e, c)

	log.Info("coordinator starting", "port", port)
	srv := server.New("workflow-coordinator", port, e, log)
	return srv.Start()
}
