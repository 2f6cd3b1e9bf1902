package domain

// Condition is one match clause of a find query. Operators are sent to the
// server prefixed with "$" and are not validated client-side.
type Condition struct {
	Field    string
	Operator string
	Value    any
}

// Order describes one sort key. A non-zero Direction wins over the Order
// keyword; otherwise "desc" maps to -1 and anything else to 1.
type Order struct {
	Field     string
	Order     string
	Direction int
}

// Search is a free-text search over a set of fields.
type Search struct {
	Fields []string `json:"fields"`
	Text   string   `json:"text"`
}

// FindQuery describes match/sort/page/search intent for a find call. It has
// no identity of its own; build one per call and hand it to the query builder.
type FindQuery struct {
	// Match conditions are applied in order; a later condition on the same
	// field replaces the earlier one, it does not merge with it.
	Match []Condition
	// Where is the flat-mapping alternative to Match: each value is copied
	// into the query as-is, with no operator transform.
	Where map[string]any

	// Page and PageSize pass through only when positive; the server owns
	// any defaulting.
	Page     int
	PageSize int

	Search  *Search
	OrderBy []Order
}
