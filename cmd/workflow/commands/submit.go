package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/spf13/cobra"
)

func newSubmitCommand() *cobra.Command {
	var file string
	var coordinatorURL string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a workflow file to a coordinator",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(file, coordinatorURL)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the workflow YAML file")
	cmd.Flags().StringVar(&coordinatorURL, "coordinator", "", "coordinator base URL")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("coordinator")

	return cmd
}

func runSubmit(file, coordinatorURL string) error {
	wf, err := schema.Load(file)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{"workflow": wf})
	if err != nil {
		return fmt.Errorf("marshaling submit request: %w", err)
	}

	resp, err := http.Post(coordinatorURL+"/submit", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submitting to coordinator: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading coordinator response: %w", err)
	}

	fmt.Println(string(raw))
	return nil
}
