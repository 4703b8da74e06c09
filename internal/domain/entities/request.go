package entities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Action names the relational operation carried by a query request
type Action string

const (
	ActionSelect Action = "select"
	ActionInsert Action = "insert"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Mutating reports whether the action writes to the table
func (a Action) Mutating() bool {
	return a == ActionInsert || a == ActionUpdate || a == ActionDelete
}

// ParseAction maps a wire action name to an Action. An empty name means select.
func ParseAction(name string) (Action, error) {
	switch Action(name) {
	case "":
		return ActionSelect, nil
	case ActionSelect, ActionInsert, ActionUpdate, ActionDelete:
		return Action(name), nil
	default:
		return "", &UnknownActionError{Action: name}
	}
}

// Operator is a column comparison operator
type Operator string

const (
	OpEqual Operator = "eq"
	OpILike Operator = "ilike"
	OpLike  Operator = "like"
	OpIs    Operator = "is"
)

// SQL returns the SQL operator. Unrecognized operators compare with equality.
func (o Operator) SQL() string {
	switch Operator(strings.ToLower(string(o))) {
	case OpILike:
		return "ILIKE"
	case OpLike:
		return "LIKE"
	default:
		return "="
	}
}

// Filter is one column/operator/value condition
type Filter struct {
	Column   string
	Operator Operator
	Value    interface{}
}

// UnmarshalJSON accepts the operator under either "type" or "operator"
func (f *Filter) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column   string      `json:"column"`
		Type     string      `json:"type"`
		Operator string      `json:"operator"`
		Value    interface{} `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	f.Column = raw.Column
	f.Operator = Operator(raw.Type)
	if f.Operator == "" {
		f.Operator = Operator(raw.Operator)
	}
	f.Value = raw.Value
	return nil
}

// Not is a single negated condition
type Not struct {
	Column   string
	Operator Operator
	Value    interface{}
}

// UnmarshalJSON accepts the operator under either "operator" or "type"
func (n *Not) UnmarshalJSON(data []byte) error {
	var f Filter
	if err := f.UnmarshalJSON(data); err != nil {
		return err
	}
	*n = Not(f)
	return nil
}

// IsNotNull reports whether the clause negates an "is null" test. The null
// may arrive as JSON null or as the string "null".
func (n *Not) IsNotNull() bool {
	if Operator(strings.ToLower(string(n.Operator))) != OpIs {
		return false
	}
	if n.Value == nil {
		return true
	}
	s, ok := n.Value.(string)
	return ok && strings.EqualFold(s, "null")
}

// Order is an ORDER BY column and direction
type Order struct {
	Column    string
	Ascending bool
}

// UnmarshalJSON defaults Ascending to true when the key is absent
func (o *Order) UnmarshalJSON(data []byte) error {
	var raw struct {
		Column    string `json:"column"`
		Ascending *bool  `json:"ascending"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	o.Column = raw.Column
	o.Ascending = raw.Ascending == nil || *raw.Ascending
	return nil
}

// Range is a zero-based inclusive row window
type Range struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Limit returns the number of rows in the window
func (r Range) Limit() int {
	return r.To - r.From + 1
}

// Request is a query request as it arrives on the wire
type Request struct {
	Table   string          `json:"table"`
	Action  string          `json:"action"`
	Select  string          `json:"select"`
	Filters []Filter        `json:"filters"`
	Order   *Order          `json:"order"`
	Range   *Range          `json:"range"`
	Payload json.RawMessage `json:"payload"`
	Single  bool            `json:"single"`
	Count   string          `json:"count"`
	OrRaw   string          `json:"orRaw"`
	Or      string          `json:"or"`
	Not     *Not            `json:"not"`
}

// DecodeRequest decodes a request body
func DecodeRequest(body []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	return &req, nil
}

// Operation validates the request and returns the typed operation it describes
func (r *Request) Operation() (Operation, error) {
	if r.Table == "" {
		return nil, ErrMissingTable
	}

	action, err := ParseAction(r.Action)
	if err != nil {
		return nil, err
	}

	switch action {
	case ActionSelect:
		return r.selectQuery()
	case ActionInsert:
		row, err := r.insertRow()
		if err != nil {
			return nil, err
		}
		return &InsertQuery{Table: r.Table, Row: row}, nil
	case ActionUpdate:
		values, err := r.updateValues()
		if err != nil {
			return nil, err
		}
		where, err := r.where()
		if err != nil {
			return nil, err
		}
		return &UpdateQuery{Table: r.Table, Values: values, Where: where}, nil
	default:
		where, err := r.where()
		if err != nil {
			return nil, err
		}
		return &DeleteQuery{Table: r.Table, Where: where}, nil
	}
}

func (r *Request) selectQuery() (*SelectQuery, error) {
	where, err := r.where()
	if err != nil {
		return nil, err
	}

	q := &SelectQuery{
		Table:      r.Table,
		Columns:    strings.TrimSpace(r.Select),
		Where:      where,
		Single:     r.Single,
		CountExact: r.Count == "exact",
	}
	if q.Columns == "" {
		q.Columns = "*"
	}

	if r.Order != nil && r.Order.Column != "" {
		order := *r.Order
		q.Order = &order
	}

	if r.Range != nil {
		if r.Range.From < 0 || r.Range.To < r.Range.From || r.Range.To-r.Range.From == math.MaxInt {
			return nil, fmt.Errorf("%w: from=%d to=%d", ErrInvalidRange, r.Range.From, r.Range.To)
		}
		rng := *r.Range
		q.Range = &rng
	}

	return q, nil
}

func (r *Request) where() (Where, error) {
	var w Where

	for i, f := range r.Filters {
		if f.Column == "" {
			return Where{}, fmt.Errorf("%w: filter %d has no column", ErrInvalidFilter, i)
		}
		w.Filters = append(w.Filters, f)
	}

	if r.Not != nil {
		if r.Not.Column == "" {
			return Where{}, fmt.Errorf("%w: not clause has no column", ErrInvalidFilter)
		}
		not := *r.Not
		w.Not = &not
	}

	expr := r.OrRaw
	if expr == "" {
		expr = r.Or
	}
	or, err := ParseOrExpression(expr)
	if err != nil {
		return Where{}, err
	}
	w.Or = or

	return w, nil
}

func (r *Request) insertRow() (map[string]interface{}, error) {
	payload := bytes.TrimSpace(r.Payload)
	if len(payload) == 0 || payload[0] != '[' {
		return nil, fmt.Errorf("%w: insert requires an array of rows", ErrInvalidPayload)
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: insert requires at least one row", ErrInvalidPayload)
	}

	// Only the first row is inserted.
	row, err := decodeObject(rows[0])
	if err != nil {
		return nil, err
	}
	return row, nil
}

func (r *Request) updateValues() (map[string]interface{}, error) {
	payload := bytes.TrimSpace(r.Payload)
	if len(payload) == 0 || payload[0] != '{' {
		return nil, fmt.Errorf("%w: update requires an object of column values", ErrInvalidPayload)
	}
	return decodeObject(payload)
}

func decodeObject(data []byte) (map[string]interface{}, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, fmt.Errorf("%w: row must be an object", ErrInvalidPayload)
	}

	var obj map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if len(obj) == 0 {
		return nil, fmt.Errorf("%w: row has no columns", ErrInvalidPayload)
	}
	return obj, nil
}
