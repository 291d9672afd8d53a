package executor

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lyzr/orchestrator/internal/memory"
	"github.com/lyzr/orchestrator/internal/schema"
	"github.com/lyzr/orchestrator/internal/template"
)

// executeDelay sleeps for params.milliseconds.
func executeDelay(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	msFloat, ok := coerceFloat64(params["milliseconds"])
	if !ok {
		return memory.NodeOutput{}, fmt.Errorf("delay node requires 'milliseconds' parameter")
	}
	ms := int64(msFloat)

	slog.InfoContext(ctx, "delaying", "milliseconds", ms)

	timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return memory.NodeOutput{}, ctx.Err()
	}

	return memory.NodeOutput{
		Status: "success",
		Output: fmt.Sprintf("Delayed for %d ms", ms),
	}, nil
}

// executeSwitch renders params.condition and evaluates it with the tiny
// hand-rolled comparison grammar in evaluateCondition, then selects
// true_value/false_value (rendering it too, if it's a string).
func executeSwitch(ctx context.Context, node schema.Node, global *memory.GlobalMemory, nodes *memory.NodeMemory) (memory.NodeOutput, error) {
	params := node.ParamsMap()
	condition, ok := params["condition"].(string)
	if !ok || condition == "" {
		return memory.NodeOutput{}, fmt.Errorf("switch node requires 'condition' parameter")
	}

	tmpl := template.New(global, nodes)
	rendered, err := tmpl.Render(condition)
	if err != nil {
		return memory.NodeOutput{}, fmt.Errorf("rendering switch condition: %w", err)
	}

	slog.InfoContext(ctx, "evaluating condition", "condition", rendered)

	result, err := evaluateCondition(rendered)
	if err != nil {
		return memory.NodeOutput{}, err
	}

	branchKey := "false_value"
	if result {
		branchKey = "true_value"
	}
	branch, present := params[branchKey]

	var outputValue any
	switch {
	case !present:
		outputValue = result
	default:
		if s, ok := branch.(string); ok {
			rendered, err := tmpl.Render(s)
			if err != nil {
				return memory.NodeOutput{}, fmt.Errorf("rendering switch branch value: %w", err)
			}
			outputValue = rendered
		} else {
			outputValue = branch
		}
	}

	return memory.NodeOutput{
		Status: "success",
		Output: map[string]any{
			"condition": rendered,
			"result":    result,
			"value":     outputValue,
		},
	}, nil
}

// evaluateCondition implements the same tiny comparison grammar as the
// original: boolean literals, then operator scan order ==, !=, >=, <=, >, <.
// The scan order matters — it must check the two-character operators before
// the one-character ones, since "find '>'" on ">=" would split in the
// wrong place.
func evaluateCondition(expr string) (bool, error) {
	expr = strings.TrimSpace(expr)

	switch expr {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}

	if pos := strings.Index(expr, "=="); pos >= 0 {
		left := strings.TrimSpace(expr[:pos])
		right := strings.TrimSpace(expr[pos+2:])
		return left == right, nil
	}
	if pos := strings.Index(expr, "!="); pos >= 0 {
		left := strings.TrimSpace(expr[:pos])
		right := strings.TrimSpace(expr[pos+2:])
		return left != right, nil
	}
	if pos := strings.Index(expr, ">="); pos >= 0 {
		left, err := parseNumber(expr[:pos])
		if err != nil {
			return false, err
		}
		right, err := parseNumber(expr[pos+2:])
		if err != nil {
			return false, err
		}
		return left >= right, nil
	}
	if pos := strings.Index(expr, "<="); pos >= 0 {
		left, err := parseNumber(expr[:pos])
		if err != nil {
			return false, err
		}
		right, err := parseNumber(expr[pos+2:])
		if err != nil {
			return false, err
		}
		return left <= right, nil
	}
	if pos := strings.Index(expr, ">"); pos >= 0 {
		left, err := parseNumber(expr[:pos])
		if err != nil {
			return false, err
		}
		right, err := parseNumber(expr[pos+1:])
		if err != nil {
			return false, err
		}
		return left > right, nil
	}
	if pos := strings.Index(expr, "<"); pos >= 0 {
		left, err := parseNumber(expr[:pos])
		if err != nil {
			return false, err
		}
		right, err := parseNumber(expr[pos+1:])
		if err != nil {
			return false, err
		}
		return left < right, nil
	}

	return false, fmt.Errorf("invalid condition expression: %s", expr)
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as number: %w", s, err)
	}
	return v, nil
}
