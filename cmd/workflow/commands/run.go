package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lyzr/orchestrator/common/config"
	"github.com/lyzr/orchestrator/common/logger"
	"github.com/lyzr/orchestrator/internal/engine"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var file string
	var inputs []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a workflow file locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLocal(file, inputs)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the workflow YAML file")
	cmd.Flags().StringArrayVar(&inputs, "input", nil, "override a global variable as key=value (value parsed as JSON, falling back to string)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func runLocal(file string, inputs []string) error {
	cfg, err := config.Load("workflow-run")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Service.LogLevel, cfg.Service.LogFormat)

	log.Info("loading workflow", "file", file)

	wf, err := schema.Load(file)
	if err != nil {
		return err
	}

	for _, kv := range inputs {
		key, value, err := parseInput(kv)
		if err != nil {
			return err
		}
		wf.Global[key] = value
	}

	log.Info("workflow parsed", "name", wf.Name, "nodes", len(wf.Nodes))

	eng := engine.New(wf)
	if err := eng.Run(context.Background()); err != nil {
		return fmt.Errorf("running workflow: %w", err)
	}

	log.Info("workflow execution completed")

	fmt.Println("\nGlobal Memory:")
	printMap(eng.GlobalMemory().All())

	fmt.Println("\nNode Outputs:")
	printMap(eng.NodeMemory().AllValues())

	return nil
}

func parseInput(kv string) (string, any, error) {
	for i := 0; i < len(kv); i++ {
		if kv[i] == '=' {
			key := kv[:i]
			raw := kv[i+1:]
			var value any
			if err := json.Unmarshal([]byte(raw), &value); err != nil {
				value = raw
			}
			return key, value, nil
		}
	}
	return "", nil, fmt.Errorf("invalid --input %q, expected key=value", kv)
}

func printMap(m map[string]any) {
	if len(m) == 0 {
		fmt.Println("  (empty)")
		return
	}
	for k, v := range m {
		fmt.Printf("  %s: %v\n", k, v)
	}
}
