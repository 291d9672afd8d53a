package executor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeInput prompts on stdout and reads a line from stdin, falling back
// to params.default when the user enters nothing.
func executeInput(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	prompt, _ := params["prompt"].(string)
	if prompt == "" {
		prompt = "Please enter value:"
	}

	tmpl := template.New(global, nodes)
	renderedPrompt, err := tmpl.Render(prompt)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering input prompt: %w", err)
	}

	def, hasDefault := params["default"].(string)

	fmt.Printf("%s ", renderedPrompt)
	if hasDefault {
		fmt.Printf("[default: %s] ", def)
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return memory.NodeOutput{}, fmt.Errorf("reading input line: %w", err)
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" && hasDefault {
		trimmed = def
	}

	return memory.NodeOutput{Status: "success", Output: trimmed}, nil
}
