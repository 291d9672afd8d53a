// Package commands implements the workflow CLI's cobra subcommands: run,
// serve, coordinator, worker, and submit.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCommand constructs the workflow CLI's root cobra command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "workflow",
		Short:         "Run and serve declarative DAG workflows",
		Long:          "workflow executes declarative DAG workflows locally or across a coordinator/worker cluster.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newCoordinatorCommand())
	cmd.AddCommand(newWorkerCommand())
	cmd.AddCommand(newSubmitCommand())

	return cmd
}
