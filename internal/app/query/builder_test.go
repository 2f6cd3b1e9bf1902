package query

import (
	"encoding/json"
	"net/url"
	"strings"
	"testing"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
)

func decode(t *testing.T, encoded string) map[string]any {
	t.Helper()
	raw, err := url.QueryUnescape(encoded)
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode %q: %v", raw, err)
	}
	return out
}

func TestMatchConditionTransform(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Match: []domain.Condition{
			{Field: "status", Operator: "eq", Value: "active"},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	cond, ok := out["status"].(map[string]any)
	if !ok {
		t.Fatalf("expected condition object for status, got %T", out["status"])
	}
	if cond["$eq"] != "active" {
		t.Fatalf("expected $eq active, got %v", cond)
	}
}

func TestDuplicateFieldLastWriteWins(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Match: []domain.Condition{
			{Field: "a", Operator: "eq", Value: 1},
			{Field: "a", Operator: "gt", Value: 2},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	cond := out["a"].(map[string]any)
	if len(cond) != 1 {
		t.Fatalf("conditions must overwrite, not merge: %v", cond)
	}
	if cond["$gt"] != float64(2) {
		t.Fatalf("expected only the later condition, got %v", cond)
	}
}

func TestWhereMappingPassesThroughUntransformed(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Where: map[string]any{
			"region": map[string]any{"$in": []string{"eu", "us"}},
			"plain":  "value",
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	if out["plain"] != "value" {
		t.Fatalf("flat values must be copied as-is, got %v", out["plain"])
	}
	region := out["region"].(map[string]any)
	if _, ok := region["$in"]; !ok {
		t.Fatalf("mapping branch must not rewrite operators: %v", region)
	}
}

func TestPaginationOmittedWhenAbsent(t *testing.T) {
	encoded, err := Build(domain.FindQuery{Page: 2})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	if out["page"] != float64(2) {
		t.Fatalf("expected page 2, got %v", out["page"])
	}
	if _, ok := out["pageSize"]; ok {
		t.Fatalf("absent pageSize must be omitted, got %v", out["pageSize"])
	}
}

func TestOrderByNormalization(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		OrderBy: []domain.Order{
			{Field: "ts", Order: "desc"},
			{Field: "score", Direction: 5},
			{Field: "name"},
		},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	orders := out["orderBy"].([]any)
	if len(orders) != 3 {
		t.Fatalf("expected 3 order entries, got %d", len(orders))
	}

	first := orders[0].(map[string]any)
	if first["field"] != "ts" || first["direction"] != float64(-1) {
		t.Fatalf("desc must normalize to -1, got %v", first)
	}
	if _, ok := first["order"]; ok {
		t.Fatalf("only direction may appear in output, got %v", first)
	}

	second := orders[1].(map[string]any)
	if second["direction"] != float64(5) {
		t.Fatalf("explicit direction must win, got %v", second)
	}

	third := orders[2].(map[string]any)
	if third["direction"] != float64(1) {
		t.Fatalf("default direction is ascending, got %v", third)
	}
}

func TestSearchPassesThrough(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Search: &domain.Search{Fields: []string{"title", "body"}, Text: "outage"},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	search := out["search"].(map[string]any)
	if search["text"] != "outage" {
		t.Fatalf("expected search text passthrough, got %v", search)
	}
	fields := search["fields"].([]any)
	if len(fields) != 2 || fields[0] != "title" {
		t.Fatalf("expected search fields passthrough, got %v", fields)
	}
}

func TestUnknownOperatorPassesThrough(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Match: []domain.Condition{{Field: "x", Operator: "frobnicate", Value: true}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	out := decode(t, encoded)
	cond := out["x"].(map[string]any)
	if cond["$frobnicate"] != true {
		t.Fatalf("builder must not validate operators, got %v", cond)
	}
}

func TestOutputIsURLSafe(t *testing.T) {
	encoded, err := Build(domain.FindQuery{
		Match: []domain.Condition{{Field: "name", Operator: "eq", Value: "a&b c"}},
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, ch := range []string{"&", " ", "{", "\""} {
		if strings.Contains(encoded, ch) {
			t.Fatalf("encoded query leaks %q: %s", ch, encoded)
		}
	}
}
