//go:build e2e
// +build e2e

package e2e

import (
	"math"
	"testing"
)

// TestDevEnv_SelfMatch searches with a row's own abstract and expects that row
// back on top with a score close to 1.
func TestDevEnv_SelfMatch(t *testing.T) {
	base := baseURL(t)

	var seed searchResult
	mustJSON(t, postSearch(t, base, map[string]interface{}{
		"query":        "rainfall",
		"topk":         1,
		"show_columns": []string{"abstract"},
	}), &seed)
	if len(seed.Result) != 1 {
		t.Fatalf("expected one seed row, got %d", len(seed.Result))
	}
	abstract, _ := seed.Result[0]["abstract"].(string)
	if abstract == "" {
		t.Skip("seed row has no abstract text")
	}

	var res searchResult
	mustJSON(t, postSearch(t, base, map[string]interface{}{
		"query":        abstract,
		"topk":         3,
		"show_columns": []string{"abstract", "scores"},
	}), &res)
	if len(res.Result) == 0 {
		t.Fatalf("no results for self query")
	}
	top, _ := res.Result[0]["scores"].(float64)
	if math.Abs(top-1) > 1e-3 {
		t.Fatalf("expected self-match score ~1, got %f", top)
	}
}

func TestDevEnv_ScoresNonIncreasing(t *testing.T) {
	base := baseURL(t)

	var res searchResult
	mustJSON(t, postSearch(t, base, map[string]interface{}{
		"query":        "sea surface temperature",
		"topk":         10,
		"show_columns": []string{"scores"},
	}), &res)
	for i := 1; i < len(res.Result); i++ {
		prev, _ := res.Result[i-1]["scores"].(float64)
		cur, _ := res.Result[i]["scores"].(float64)
		if cur > prev {
			t.Fatalf("scores not sorted at %d: %f > %f", i, cur, prev)
		}
		if len(res.Result[i]) != 1 {
			t.Fatalf("projection leaked fields: %v", res.Result[i])
		}
	}
}
