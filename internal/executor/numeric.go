package executor

import "encoding/json"

// coerceFloat64 reads a param value that may have come from either decoding
// path as a number. YAML (the local `workflow run` path, via schema.Load)
// decodes an untyped integer scalar into Go int; JSON (the distributed path,
// once the coordinator round-trips a workflow through ExecuteRequest)
// decodes every untyped number into float64. A bare `.(float64)` assertion
// only ever sees the JSON shape, so it drops valid YAML integers silently.
func coerceFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
