package entities

import (
	"fmt"
	"strings"
)

// Operation is a validated query request. Its concrete type is one of
// *SelectQuery, *InsertQuery, *UpdateQuery or *DeleteQuery.
type Operation interface {
	Action() Action
	Target() string
}

// Where holds the conditions of a statement, rendered in field order:
// filters, then the not clause, then the OR group.
type Where struct {
	Filters []Filter
	Not     *Not
	Or      []Filter
}

// IsEmpty reports whether the statement would run without a WHERE clause
func (w Where) IsEmpty() bool {
	return len(w.Filters) == 0 && w.Not == nil && len(w.Or) == 0
}

// SelectQuery reads rows from a table
type SelectQuery struct {
	Table      string
	Columns    string
	Where      Where
	Order      *Order
	Range      *Range
	Single     bool
	CountExact bool
}

func (q *SelectQuery) Action() Action { return ActionSelect }
func (q *SelectQuery) Target() string { return q.Table }

// InsertQuery inserts a single row
type InsertQuery struct {
	Table string
	Row   map[string]interface{}
}

func (q *InsertQuery) Action() Action { return ActionInsert }
func (q *InsertQuery) Target() string { return q.Table }

// UpdateQuery sets column values on every row matching Where
type UpdateQuery struct {
	Table  string
	Values map[string]interface{}
	Where  Where
}

func (q *UpdateQuery) Action() Action { return ActionUpdate }
func (q *UpdateQuery) Target() string { return q.Table }

// DeleteQuery removes every row matching Where
type DeleteQuery struct {
	Table string
	Where Where
}

func (q *DeleteQuery) Action() Action { return ActionDelete }
func (q *DeleteQuery) Target() string { return q.Table }

// ParseOrExpression parses comma separated column.operator.pattern terms,
// e.g. "status.ilike.open,status.ilike.pending".
func ParseOrExpression(expr string) ([]Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	var terms []Filter
	for _, term := range strings.Split(expr, ",") {
		parts := strings.SplitN(strings.TrimSpace(term), ".", 3)
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q is not column.operator.pattern", ErrInvalidOr, term)
		}

		op := Operator(parts[1])
		pattern := parts[2]
		if sql := op.SQL(); sql == "LIKE" || sql == "ILIKE" {
			pattern = strings.ReplaceAll(pattern, "*", "%")
		}

		terms = append(terms, Filter{Column: parts[0], Operator: op, Value: pattern})
	}
	return terms, nil
}
