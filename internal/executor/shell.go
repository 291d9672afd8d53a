package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeShell runs params.command through "sh -c". A non-zero exit is
// recorded as NodeOutput{Status: "failed"} with no Go error — the scheduler
// treats the node as having run to completion either way; only a failure to
// invoke the shell at all is a hard error.
func executeShell(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	command, ok := params["command"].(string)
	if !ok || command == "" {
		return memory.NodeOutput{}, fmt.Errorf("shell node requires 'command' parameter")
	}

	tmpl := template.New(global, nodes)
	rendered, err := tmpl.Render(command)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering shell command: %w", err)
	}

	slog.InfoContext(ctx, "executing shell command", "command", rendered)

	cmd := exec.CommandContext(ctx, "sh", "-c", rendered)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	success := true
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			success = false
		} else {
			return memory.NodeOutput{}, fmt.Errorf("executing shell command: %w", runErr)
		}
	}

	status := "success"
	if !success {
		status = "failed"
	}

	return memory.NodeOutput{
		Status: status,
		Output: map[string]any{
			"stdout":    strings.TrimSpace(stdout.String()),
			"stderr":    strings.TrimSpace(stderr.String()),
			"exit_code": exitCode,
			"success":   success,
		},
	}, nil
}
