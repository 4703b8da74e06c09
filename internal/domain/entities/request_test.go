package entities

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		name     string
		expected Action
		mutating bool
	}{
		{"", ActionSelect, false},
		{"select", ActionSelect, false},
		{"insert", ActionInsert, true},
		{"update", ActionUpdate, true},
		{"delete", ActionDelete, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := ParseAction(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, action)
			assert.Equal(t, tt.mutating, action.Mutating())
		})
	}
}

func TestParseActionUnknown(t *testing.T) {
	_, err := ParseAction("upsert")
	require.Error(t, err)

	var unknown *UnknownActionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "upsert", unknown.Action)
	assert.Contains(t, err.Error(), "upsert")
	assert.True(t, IsClientError(err))
}

func TestOperatorSQL(t *testing.T) {
	assert.Equal(t, "=", OpEqual.SQL())
	assert.Equal(t, "ILIKE", OpILike.SQL())
	assert.Equal(t, "LIKE", OpLike.SQL())
	assert.Equal(t, "ILIKE", Operator("ILIKE").SQL())
	assert.Equal(t, "=", Operator("gt").SQL())
	assert.Equal(t, "=", Operator("").SQL())
}

func TestDecodeRequest(t *testing.T) {
	body := `{
		"table": "machine_settings",
		"action": "select",
		"select": "id, plant",
		"filters": [
			{"column": "plant", "type": "eq", "value": "A"},
			{"column": "line", "operator": "ilike", "value": "%1%"}
		],
		"order": {"column": "id"},
		"range": {"from": 10, "to": 19},
		"count": "exact",
		"orRaw": "status.ilike.open",
		"not": {"column": "deleted_at", "operator": "is", "value": null}
	}`

	req, err := DecodeRequest([]byte(body))
	require.NoError(t, err)

	assert.Equal(t, "machine_settings", req.Table)
	require.Len(t, req.Filters, 2)
	assert.Equal(t, Filter{Column: "plant", Operator: OpEqual, Value: "A"}, req.Filters[0])
	assert.Equal(t, OpILike, req.Filters[1].Operator)
	require.NotNil(t, req.Order)
	assert.True(t, req.Order.Ascending)
	assert.Equal(t, 10, req.Range.Limit())
	require.NotNil(t, req.Not)
	assert.True(t, req.Not.IsNotNull())
}

func TestDecodeRequestInvalidJSON(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"table":`))
	assert.ErrorIs(t, err, ErrInvalidBody)
	assert.True(t, IsClientError(err))
}

func TestOrderDescending(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"table":"t","order":{"column":"created_at","ascending":false}}`))
	require.NoError(t, err)
	assert.False(t, req.Order.Ascending)
}

func TestOperationSelect(t *testing.T) {
	req := &Request{
		Table:   "work_centers",
		Filters: []Filter{{Column: "plant", Operator: OpEqual, Value: "A"}},
		Range:   &Range{From: 0, To: 9},
		Count:   "exact",
		Single:  true,
	}

	op, err := req.Operation()
	require.NoError(t, err)

	q, ok := op.(*SelectQuery)
	require.True(t, ok)
	assert.Equal(t, ActionSelect, q.Action())
	assert.Equal(t, "work_centers", q.Target())
	assert.Equal(t, "*", q.Columns)
	assert.True(t, q.CountExact)
	assert.True(t, q.Single)
	assert.Nil(t, q.Order)
	assert.Len(t, q.Where.Filters, 1)
}

func TestOperationErrors(t *testing.T) {
	tests := []struct {
		name   string
		req    Request
		target error
	}{
		{"missing table", Request{Action: "select"}, ErrMissingTable},
		{"insert empty array", Request{Table: "t", Action: "insert", Payload: []byte(`[]`)}, ErrInvalidPayload},
		{"insert object", Request{Table: "t", Action: "insert", Payload: []byte(`{"a":1}`)}, ErrInvalidPayload},
		{"insert missing payload", Request{Table: "t", Action: "insert"}, ErrInvalidPayload},
		{"insert non-object row", Request{Table: "t", Action: "insert", Payload: []byte(`[1]`)}, ErrInvalidPayload},
		{"insert empty row", Request{Table: "t", Action: "insert", Payload: []byte(`[{}]`)}, ErrInvalidPayload},
		{"update array", Request{Table: "t", Action: "update", Payload: []byte(`[{"a":1}]`)}, ErrInvalidPayload},
		{"update empty object", Request{Table: "t", Action: "update", Payload: []byte(`{}`)}, ErrInvalidPayload},
		{"filter without column", Request{Table: "t", Filters: []Filter{{Operator: OpEqual, Value: 1}}}, ErrInvalidFilter},
		{"malformed or", Request{Table: "t", Or: "status.open"}, ErrInvalidOr},
		{"negative range", Request{Table: "t", Range: &Range{From: -1, To: 3}}, ErrInvalidRange},
		{"inverted range", Request{Table: "t", Range: &Range{From: 5, To: 4}}, ErrInvalidRange},
		{"range wider than int", Request{Table: "t", Range: &Range{From: 0, To: math.MaxInt}}, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.req.Operation()
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsClientError(err))
		})
	}
}

func TestOperationInsertUsesFirstRow(t *testing.T) {
	req := &Request{Table: "loss_reasons", Action: "insert", Payload: []byte(`[{"code":"L1"},{"code":"L2"}]`)}

	op, err := req.Operation()
	require.NoError(t, err)

	q := op.(*InsertQuery)
	assert.Equal(t, map[string]interface{}{"code": "L1"}, q.Row)
}

func TestOperationUpdateAndDeleteWithoutFilters(t *testing.T) {
	update := &Request{Table: "shifts", Action: "update", Payload: []byte(`{"active":false}`)}
	op, err := update.Operation()
	require.NoError(t, err)
	assert.True(t, op.(*UpdateQuery).Where.IsEmpty())

	del := &Request{Table: "shifts", Action: "delete"}
	op, err = del.Operation()
	require.NoError(t, err)
	assert.True(t, op.(*DeleteQuery).Where.IsEmpty())
}

func TestOrRawTakesPrecedence(t *testing.T) {
	req := &Request{Table: "t", OrRaw: "a.eq.1", Or: "b.eq.2"}
	op, err := req.Operation()
	require.NoError(t, err)

	or := op.(*SelectQuery).Where.Or
	require.Len(t, or, 1)
	assert.Equal(t, "a", or[0].Column)
}

func TestParseOrExpression(t *testing.T) {
	terms, err := ParseOrExpression("status.ilike.open,status.ilike.*pend*, email.like.*@acme.com")
	require.NoError(t, err)
	require.Len(t, terms, 3)

	assert.Equal(t, Filter{Column: "status", Operator: OpILike, Value: "open"}, terms[0])
	assert.Equal(t, "%pend%", terms[1].Value)
	assert.Equal(t, "email", terms[2].Column)
	assert.Equal(t, "%@acme.com", terms[2].Value)

	terms, err = ParseOrExpression("  ")
	assert.NoError(t, err)
	assert.Nil(t, terms)

	// Wildcards are only translated for pattern operators.
	terms, err = ParseOrExpression("note.eq.a*b")
	require.NoError(t, err)
	assert.Equal(t, "a*b", terms[0].Value)
}

func TestNotIsNotNull(t *testing.T) {
	assert.True(t, (&Not{Column: "c", Operator: "is"}).IsNotNull())
	assert.False(t, (&Not{Column: "c", Operator: "is", Value: true}).IsNotNull())
	assert.False(t, (&Not{Column: "c", Operator: "eq"}).IsNotNull())
	assert.True(t, (&Not{Column: "c", Operator: "is", Value: "null"}).IsNotNull())
	assert.True(t, (&Not{Column: "c", Operator: "IS", Value: "NULL"}).IsNotNull())
	assert.False(t, (&Not{Column: "c", Operator: "is", Value: "nullable"}).IsNotNull())
}

func TestRangeUpToMaxInt(t *testing.T) {
	req := &Request{Table: "t", Range: &Range{From: 1, To: math.MaxInt}}
	op, err := req.Operation()
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, op.(*SelectQuery).Range.Limit())
}

func TestColumnAliases(t *testing.T) {
	aliases := ColumnAliases{
		"work_center": {"workcenter", "wc_code", "WorkCenter"},
		"plant":       {"plant_code"},
	}

	row := map[string]interface{}{"WC_CODE": "WC-1", "plant_code": "P1", "qty": 3}

	assert.Equal(t, map[string]interface{}{
		"work_center": "WC-1",
		"plant":       "P1",
		"qty":         3,
	}, aliases.Normalize(row))
}
