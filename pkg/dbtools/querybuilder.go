package dbtools

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/FreePeak/db-query-proxy/internal/domain/entities"
)

// Statement is a SQL string with its positional arguments
type Statement struct {
	SQL  string
	Args []interface{}
}

// psql numbers placeholders $1, $2, ... across the whole statement
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// BuildSelect builds the row query for a select operation
func BuildSelect(q *entities.SelectQuery) (Statement, error) {
	builder := psql.Select(ident(q.Columns)).From(ident(q.Table))
	builder = applyWhere(builder, q.Where)

	if q.Order != nil {
		direction := "ASC"
		if !q.Order.Ascending {
			direction = "DESC"
		}
		builder = builder.OrderBy(fmt.Sprintf("%s %s", ident(q.Order.Column), direction))
	}

	if q.Range != nil {
		builder = builder.
			Limit(uint64(q.Range.Limit())).
			Offset(uint64(q.Range.From))
	}

	return toStatement(builder.ToSql())
}

// BuildCount builds the COUNT(*) query sharing the select's WHERE clause
func BuildCount(q *entities.SelectQuery) (Statement, error) {
	builder := psql.Select("COUNT(*)").From(ident(q.Table))
	builder = applyWhere(builder, q.Where)
	return toStatement(builder.ToSql())
}

// BuildInsert builds a single-row INSERT ... RETURNING *
func BuildInsert(q *entities.InsertQuery) (Statement, error) {
	keys := sortedKeys(q.Row)
	columns := make([]string, len(keys))
	values := make([]interface{}, len(keys))
	for i, col := range keys {
		columns[i] = ident(col)
		values[i] = bindValue(q.Row[col])
	}

	builder := psql.Insert(ident(q.Table)).
		Columns(columns...).
		Values(values...).
		Suffix("RETURNING *")

	return toStatement(builder.ToSql())
}

// BuildUpdate builds UPDATE ... SET ... RETURNING *. An empty Where updates
// every row of the table.
func BuildUpdate(q *entities.UpdateQuery) (Statement, error) {
	builder := psql.Update(ident(q.Table))
	for _, col := range sortedKeys(q.Values) {
		builder = builder.Set(ident(col), bindValue(q.Values[col]))
	}

	for _, cond := range conditions(q.Where) {
		builder = builder.Where(cond)
	}

	return toStatement(builder.Suffix("RETURNING *").ToSql())
}

// BuildDelete builds DELETE FROM. An empty Where deletes every row of the table.
func BuildDelete(q *entities.DeleteQuery) (Statement, error) {
	builder := psql.Delete(ident(q.Table))
	for _, cond := range conditions(q.Where) {
		builder = builder.Where(cond)
	}
	return toStatement(builder.ToSql())
}

func applyWhere(builder sq.SelectBuilder, where entities.Where) sq.SelectBuilder {
	for _, cond := range conditions(where) {
		builder = builder.Where(cond)
	}
	return builder
}

// conditions returns the AND-joined parts of a WHERE clause in render order
func conditions(where entities.Where) []sq.Sqlizer {
	var parts []sq.Sqlizer

	for _, f := range where.Filters {
		parts = append(parts, compare(f))
	}

	if where.Not != nil {
		if where.Not.IsNotNull() {
			parts = append(parts, sq.Expr(fmt.Sprintf("%s IS NOT NULL", ident(where.Not.Column))))
		} else {
			parts = append(parts, sq.Expr(
				fmt.Sprintf("NOT (%s %s ?)", ident(where.Not.Column), where.Not.Operator.SQL()),
				bindValue(where.Not.Value),
			))
		}
	}

	if len(where.Or) > 0 {
		or := make(sq.Or, 0, len(where.Or))
		for _, f := range where.Or {
			or = append(or, compare(f))
		}
		parts = append(parts, or)
	}

	return parts
}

func compare(f entities.Filter) sq.Sqlizer {
	return sq.Expr(fmt.Sprintf("%s %s ?", ident(f.Column), f.Operator.SQL()), bindValue(f.Value))
}

// ident escapes "?" in caller supplied SQL text so squirrel keeps it literal
// instead of numbering it as a placeholder. Postgres uses "?" as a jsonb
// operator.
func ident(s string) string {
	return strings.ReplaceAll(s, "?", "??")
}

// bindValue encodes nested objects and arrays as JSON so they can be bound to
// json/jsonb columns; scalars pass through to the driver.
func bindValue(v interface{}) interface{} {
	switch v.(type) {
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(v)
		if err != nil {
			return v
		}
		return string(b)
	default:
		return v
	}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toStatement(query string, args []interface{}, err error) (Statement, error) {
	if err != nil {
		return Statement{}, fmt.Errorf("failed to build statement: %w", err)
	}
	if args == nil {
		args = []interface{}{}
	}
	return Statement{SQL: query, Args: args}, nil
}
