// Package template implements the engine's {{ }} placeholder substitution
// grammar. It is deliberately hand-written rather than built on a
// JSONPath/CEL library: per the design notes this engine only ever needs a
// dotted-path walk over global variables, node outputs, and loop context, and
// pulling in a general expression library here would pick the wrong tool for
// a narrow, fixed grammar.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/lyzr/orchestrator/internal/memory"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([^}]+)\s*\}\}`)

// desugarBrackets rewrites bracket indices into dotted-path form, so
// "a[0].b" and "a.0.b" resolve identically.
func desugarBrackets(expr string) string {
	expr = strings.ReplaceAll(expr, "[", ".")
	expr = strings.ReplaceAll(expr, "]", "")
	return expr
}

// Engine renders {{ expr }} placeholders against a workflow's global and
// node-output memory.
type Engine struct {
	global *memory.GlobalMemory
	nodes  *memory.NodeMemory
}

// New returns a template engine bound to the given memory stores.
func New(global *memory.GlobalMemory, nodes *memory.NodeMemory) *Engine {
	return &Engine{global: global, nodes: nodes}
}

// Render replaces every {{ expr }} placeholder in tmpl with the resolved
// value, rendered as a plain string. A missing key, field, or index fails
// the whole render — there is no "leave untouched" fallback.
func (e *Engine) Render(tmpl string) (string, error) {
	var renderErr error
	result := placeholderRe.ReplaceAllStringFunc(tmpl, func(match string) string {
		if renderErr != nil {
			return match
		}
		sub := placeholderRe.FindStringSubmatch(match)
		expr := strings.TrimSpace(sub[1])
		value, err := e.resolveExpression(expr)
		if err != nil {
			renderErr = err
			return match
		}
		return valueToString(value)
	})
	if renderErr != nil {
		return "", renderErr
	}
	return result, nil
}

// resolveExpression resolves a dotted-path expression like
// "global.api_url" or "nodes.fetch_data.output.stdout" against the bound
// memory stores.
func (e *Engine) resolveExpression(expr string) (any, error) {
	parts := strings.Split(desugarBrackets(expr), ".")
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty expression")
	}

	switch parts[0] {
	case "global":
		if len(parts) < 2 {
			return nil, fmt.Errorf("invalid global reference: %s", expr)
		}
		key := parts[1]
		value, ok := e.global.Get(key)
		if !ok {
			return nil, fmt.Errorf("global variable %q not found", key)
		}
		return walkFields(value, parts[2:], fmt.Sprintf("global variable %q", key))

	case "nodes":
		if len(parts) < 3 {
			return nil, fmt.Errorf("invalid node reference: %s", expr)
		}
		nodeID, field := parts[1], parts[2]
		if field != "output" {
			return nil, fmt.Errorf("unknown node field: %s", field)
		}
		output, ok := e.nodes.OutputValue(nodeID)
		if !ok {
			return nil, fmt.Errorf("node %q output not found", nodeID)
		}
		return walkFields(output, parts[3:], "output")

	case "loop":
		loopCtx, ok := e.global.Get("loop")
		if !ok {
			return nil, fmt.Errorf("loop context not found (are you inside a loop node?)")
		}
		return walkFields(loopCtx, parts[1:], "loop context")

	default:
		return nil, fmt.Errorf("unknown expression prefix: %s", expr)
	}
}

// walkFields descends into value following each named field in fields,
// supporting both object-field access and numeric array indices.
func walkFields(value any, fields []string, what string) (any, error) {
	current := value
	for _, field := range fields {
		next, err := fieldAccess(current, field)
		if err != nil {
			return nil, fmt.Errorf("field %q not found in %s: %w", field, what, err)
		}
		current = next
	}
	return current, nil
}

func fieldAccess(value any, field string) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		next, ok := v[field]
		if !ok {
			return nil, fmt.Errorf("no such key")
		}
		return next, nil
	case []any:
		idx, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("not a numeric index: %w", err)
		}
		if idx < 0 || idx >= len(v) {
			return nil, fmt.Errorf("index out of range")
		}
		return v[idx], nil
	default:
		return nil, fmt.Errorf("cannot index into %T", value)
	}
}

func valueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
