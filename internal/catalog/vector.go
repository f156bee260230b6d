package catalog

import (
	"encoding/json"
	"strings"
)

// ToVector converts a stored cell into a vector. It accepts numeric slices as
// decoded from JSON, native float slices, and text holding a JSON array or a
// Postgres array literal ("{0.1,0.2}").
func ToVector(v any) ([]float32, bool) {
	switch x := v.(type) {
	case []float32:
		return x, true
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		out := make([]float32, len(x))
		for i, e := range x {
			switch n := e.(type) {
			case float64:
				out[i] = float32(n)
			case float32:
				out[i] = n
			case int:
				out[i] = float32(n)
			case int64:
				out[i] = float32(n)
			case json.Number:
				f, err := n.Float64()
				if err != nil {
					return nil, false
				}
				out[i] = float32(f)
			default:
				return nil, false
			}
		}
		return out, true
	case []byte:
		return ToVector(string(x))
	case string:
		s := strings.TrimSpace(x)
		if strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}") {
			s = "[" + s[1:len(s)-1] + "]"
		}
		if !strings.HasPrefix(s, "[") {
			return nil, false
		}
		var out []float32
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, false
		}
		return out, true
	}
	return nil, false
}
