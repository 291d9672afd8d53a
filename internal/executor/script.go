package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeScript renders params.script and runs it with the interpreter
// named by params.language (defaulting to python), via a per-invocation
// temp file cleaned up on a best-effort basis.
func executeScript(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	script, ok := params["script"].(string)
	if !ok || script == "" {
		return memory.NodeOutput{}, fmt.Errorf("script node requires 'script' parameter")
	}
	language, _ := params["language"].(string)
	if language == "" {
		language = "python"
	}

	tmpl := template.New(global, nodes)
	rendered, err := tmpl.Render(script)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering script: %w", err)
	}

	slog.InfoContext(ctx, "executing script", "language", language)

	switch language {
	case "python", "python3":
		return runScript(ctx, rendered, "py", "python3")
	case "javascript", "js", "node":
		return runScript(ctx, rendered, "js", "node")
	default:
		return memory.NodeOutput{}, fmt.Errorf("unsupported script language: %s", language)
	}
}

func runScript(ctx context.Context, script, ext, interpreter string) (memory.NodeOutput, error) {
	tempFile := filepath.Join(os.TempDir(), fmt.Sprintf("workflow_script_%s.%s", uuid.NewString(), ext))
	if err := os.WriteFile(tempFile, []byte(script), 0o600); err != nil {
		return memory.NodeOutput{}, fmt.Errorf("writing %s script to temp file: %w", ext, err)
	}
	defer os.Remove(tempFile)

	cmd := exec.CommandContext(ctx, interpreter, tempFile)
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
			return memory.NodeOutput{}, fmt.Errorf("executing %s script (is %s installed?): %w", ext, interpreter, runErr)
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
