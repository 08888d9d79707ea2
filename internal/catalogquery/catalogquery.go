// Package catalogquery composes parameterized catalog queries.
//
// A Query is a fixed SELECT head, an ordered list of predicates, and optional
// GROUP BY / ORDER BY tails. Predicates that bind a value use a single "?"
// placeholder; Build numbers placeholders $1..$n in one pass, in the order the
// predicates were added, so clause composition never has to count arguments.
package catalogquery

import (
	"fmt"
	"strings"
)

// SystemSchemas are excluded when a query spans all schemas.
var SystemSchemas = []string{"pg_catalog", "information_schema"}

type predicate struct {
	expr  string
	value any
	bound bool
}

// Query is an immutable-by-convention query under construction.
type Query struct {
	head       string
	predicates []predicate
	groupBy    string
	orderBy    string
	limit      int
}

// New starts a query. head is everything up to (not including) WHERE.
func New(head string) *Query {
	return &Query{head: strings.TrimSpace(head)}
}

// Where adds a predicate without a bound value.
func (q *Query) Where(expr string) *Query {
	q.predicates = append(q.predicates, predicate{expr: expr})
	return q
}

// WhereArg adds a predicate whose single "?" placeholder binds value.
// Panics if expr does not contain exactly one placeholder.
func (q *Query) WhereArg(expr string, value any) *Query {
	if n := strings.Count(expr, "?"); n != 1 {
		panic(fmt.Sprintf("catalogquery: predicate %q must contain exactly one placeholder, found %d", expr, n))
	}
	q.predicates = append(q.predicates, predicate{expr: expr, value: value, bound: true})
	return q
}

// WhereSchema scopes column to one schema, or to every non-system schema when
// all is true.
func (q *Query) WhereSchema(column string, schema string, all bool) *Query {
	if all {
		quoted := make([]string, len(SystemSchemas))
		for i, s := range SystemSchemas {
			quoted[i] = "'" + s + "'"
		}
		return q.Where(fmt.Sprintf("%s NOT IN (%s)", column, strings.Join(quoted, ", ")))
	}
	return q.WhereArg(column+" = ?", schema)
}

// WhereOptional adds the predicate only when value is non-empty.
func (q *Query) WhereOptional(expr string, value string) *Query {
	if value == "" {
		return q
	}
	return q.WhereArg(expr, value)
}

// GroupBy sets the GROUP BY list.
func (q *Query) GroupBy(cols string) *Query {
	q.groupBy = cols
	return q
}

// OrderBy sets the ORDER BY list.
func (q *Query) OrderBy(cols string) *Query {
	q.orderBy = cols
	return q
}

// Limit caps the row count. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Build renders the SQL text and its positional arguments.
func (q *Query) Build() (string, []any) {
	var b strings.Builder
	b.WriteString(q.head)

	var args []any
	for i, p := range q.predicates {
		if i == 0 {
			b.WriteString("\nWHERE ")
		} else {
			b.WriteString("\n  AND ")
		}
		expr := p.expr
		if p.bound {
			args = append(args, p.value)
			expr = strings.Replace(expr, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		b.WriteString(expr)
	}

	if q.groupBy != "" {
		b.WriteString("\nGROUP BY ")
		b.WriteString(q.groupBy)
	}
	if q.orderBy != "" {
		b.WriteString("\nORDER BY ")
		b.WriteString(q.orderBy)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, "\nLIMIT %d", q.limit)
	}
	return b.String(), args
}
