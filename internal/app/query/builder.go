// Package query serializes a FindQuery into the single `o` parameter the
// Maxflow read API expects.
package query

import (
	"encoding/json"
	"net/url"

	"github.com/maxflow-ai/maxflow-go/internal/domain"
)

// Build is a pure structural transform from query intent to a percent-encoded
// JSON object. It does not validate fields or operators against any schema,
// so an unknown operator travels to the server untouched.
func Build(q domain.FindQuery) (string, error) {
	out := make(map[string]any)

	// Last write wins when two conditions target the same field; conditions
	// are never merged.
	for _, c := range q.Match {
		out[c.Field] = map[string]any{"$" + c.Operator: c.Value}
	}
	// Flat-mapping conditions skip the operator transform and are copied
	// through as-is.
	for field, cond := range q.Where {
		out[field] = cond
	}

	if q.Page > 0 {
		out["page"] = q.Page
	}
	if q.PageSize > 0 {
		out["pageSize"] = q.PageSize
	}
	if q.Search != nil {
		out["search"] = q.Search
	}
	if len(q.OrderBy) > 0 {
		orders := make([]map[string]any, len(q.OrderBy))
		for i, o := range q.OrderBy {
			orders[i] = map[string]any{"field": o.Field, "direction": direction(o)}
		}
		out["orderBy"] = orders
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return url.QueryEscape(string(raw)), nil
}

func direction(o domain.Order) int {
	if o.Direction != 0 {
		return o.Direction
	}
	if o.Order == "desc" {
		return -1
	}
	return 1
}
