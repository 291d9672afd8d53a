package executor

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeFile reads, writes, or appends to params.path, defaulting to a
// read operation.
func executeFile(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	operation, _ := params["operation"].(string)
	if operation == "" {
		operation = "read"
	}

	path, ok := params["path"].(string)
	if !ok || path == "" {
		return memory.NodeOutput{}, fmt.Errorf("file node requires 'path' parameter")
	}

	tmpl := template.New(global, nodes)
	renderedPath, err := tmpl.Render(path)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering file path: %w", err)
	}

	slog.InfoContext(ctx, "file operation", "operation", operation, "path", renderedPath)

	switch operation {
	case "read":
		content, err := os.ReadFile(renderedPath)
		if err != nil {
			return memory.NodeOutput{}, fmt.Errorf("reading file %q: %w", renderedPath, err)
		}
		return memory.NodeOutput{
			Status: "success",
			Output: map[string]any{
				"content": string(content),
				"path":    renderedPath,
			},
		}, nil

	case "write", "append":
		rawContent, ok := params["content"]
		if !ok {
			return memory.NodeOutput{}, fmt.Errorf("file write/append requires 'content' parameter")
		}
		contentStr, ok := rawContent.(string)
		if ok {
			contentStr, err = tmpl.Render(contentStr)
			if err != nil {
				return memory.NodeOutput{}, fmt.Errorf("rendering file content: %w", err)
			}
		} else {
			contentStr = fmt.Sprintf("%v", rawContent)
		}

		if operation == "write" {
			if err := os.WriteFile(renderedPath, []byte(contentStr), 0o644); err != nil {
				return memory.NodeOutput{}, fmt.Errorf("writing file %q: %w", renderedPath, err)
			}
		} else {
			f, err := os.OpenFile(renderedPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return memory.NodeOutput{}, fmt.Errorf("opening file %q for append: %w", renderedPath, err)
			}
			defer f.Close()
			if _, err := f.WriteString(contentStr); err != nil {
				return memory.NodeOutput{}, fmt.Errorf("appending to file %q: %w", renderedPath, err)
			}
		}

		return memory.NodeOutput{
			Status: "success",
			Output: map[string]any{
				"path":          renderedPath,
				"operation":     operation,
				"bytes_written": len(contentStr),
			},
		}, nil

	default:
		return memory.NodeOutput{}, fmt.Errorf("unsupported file operation: %s", operation)
	}
}
