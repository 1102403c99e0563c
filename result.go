package dbscribe

import (
	"encoding/json"
	"fmt"
	"strconv"
)

type (
	// Shape is the representation Result.Value returns rows in.
	Shape int

	// Result is the outcome of an executed builder. For select, count and
	// distinct it owns the mapped rows and, when joins were requested, the
	// joined fields in a JoinBuffer. For the other operations only the
	// counters are set.
	//
	// Missing is set when the table does not exist; it is not an error.
	Result struct {
		Operation    Operation
		RowsAffected int64
		LastInsertID int64
		Missing      bool

		shape  Shape
		table  *Table
		rows   []Attributes
		joins  *JoinBuffer
		joined map[string]JoinOptions
	}

	// JoinBuffer keeps the joined fields of a select, keyed by the index
	// of the mapped row they were fetched with.
	JoinBuffer struct {
		rows []JoinRow
	}

	// JoinRow is the joined part of one fetched row. Fields are keyed
	// "<table>_<column>".
	JoinRow struct {
		Owner  int
		Fields Attributes
	}
)

const (
	ShapeModel Shape = iota
	ShapeRaw
	ShapeJSON
)

func (s Shape) String() string {
	switch s {
	case ShapeRaw:
		return "raw"
	case ShapeJSON:
		return "json"
	}
	return "model"
}

// Rows returns the mapped rows, keyed by camelCase column alias.
func (r *Result) Rows() []Attributes {
	return r.rows
}

// Len returns the number of mapped rows.
func (r *Result) Len() int {
	return len(r.rows)
}

// Joins returns the buffer of joined fields, nil if no join was requested.
func (r *Result) Joins() *JoinBuffer {
	return r.joins
}

// JSON encodes the mapped rows as an array.
func (r *Result) JSON() ([]byte, error) {
	if len(r.rows) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(r.rows)
}

// Entities populates one entity of the table's model per mapped row.
func (r *Result) Entities() ([]Entity, error) {
	out := make([]Entity, 0, len(r.rows))
	for _, row := range r.rows {
		e, err := r.entity(row, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// EntitiesOf is like Result.Entities but returns the concrete model type.
//
//	users, err := dbscribe.EntitiesOf[*User](result)
func EntitiesOf[T Entity](r *Result) ([]T, error) {
	entities, err := r.Entities()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entities))
	for _, e := range entities {
		t, ok := e.(T)
		if !ok {
			return nil, fmt.Errorf("%w: got %T", ErrInvalidModel, e)
		}
		out = append(out, t)
	}
	return out, nil
}

// Value returns the rows in the shape requested with As: []Attributes,
// JSON bytes or []Entity.
func (r *Result) Value() (interface{}, error) {
	switch r.shape {
	case ShapeRaw:
		return r.rows, nil
	case ShapeJSON:
		return r.JSON()
	}
	return r.Entities()
}

// Count returns the value of a Count query, 0 for a missing table. With
// GroupBy it is the count of the first group; use Column("count") for all
// of them.
func (r *Result) Count() int64 {
	if len(r.rows) == 0 {
		return 0
	}
	return toInt64(r.rows[0]["count"])
}

// Column returns the values of one column (or alias) of every row, in
// order. For a Distinct query it is the list of distinct values.
func (r *Result) Column(name string) []interface{} {
	out := make([]interface{}, 0, len(r.rows))
	alias := ToCamel(name)
	for _, row := range r.rows {
		if v, ok := row[name]; ok {
			out = append(out, v)
			continue
		}
		out = append(out, row[alias])
	}
	return out
}

// Len returns the number of buffered rows.
func (b *JoinBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.rows)
}

// Rows returns the buffered rows in fetch order.
func (b *JoinBuffer) Rows() []JoinRow {
	if b == nil {
		return nil
	}
	return b.rows
}

// Owned returns the buffered rows fetched with the mapped row at index.
func (b *JoinBuffer) Owned(index int) (out []JoinRow) {
	for _, row := range b.Rows() {
		if row.Owner == index {
			out = append(out, row)
		}
	}
	return
}

func (b *JoinBuffer) add(owner int, fields Attributes) {
	b.rows = append(b.rows, JoinRow{Owner: owner, Fields: fields})
}

// mapRows splits flat rows into primary attributes (bare column aliases)
// and joined fields. Rows repeating a primary-key value collapse into the
// first one.
func (t *Table) mapRows(rows []Row, withJoins bool) ([]Attributes, *JoinBuffer) {
	var buffer *JoinBuffer
	if withJoins {
		buffer = &JoinBuffer{}
	}
	aliases := make(map[string]bool, len(t.schema.Columns))
	for _, c := range t.schema.Columns {
		aliases[c.Alias()] = true
	}
	var pkAlias string
	if t.schema.PrimaryKey != "" {
		pkAlias = ToCamel(t.schema.PrimaryKey)
	}
	out := []Attributes{}
	seen := map[string]int{}
	for _, row := range rows {
		attrs := Attributes{}
		joined := Attributes{}
		for key, value := range row {
			if aliases[key] || !withJoins {
				attrs[key] = value
				continue
			}
			joined[key] = value
		}
		owner := len(out)
		duplicate := false
		if pk, ok := attrs[pkAlias]; ok && pkAlias != "" && pk != nil {
			key := fmt.Sprint(pk)
			if i, ok := seen[key]; ok {
				owner = i
				duplicate = true
			} else {
				seen[key] = owner
			}
		}
		if !duplicate {
			out = append(out, attrs)
		}
		if buffer != nil && len(joined) > 0 {
			buffer.add(owner, joined)
		}
	}
	return out, buffer
}

// entity creates and populates one model instance of t, or of the result's
// table if t is nil.
func (r *Result) entity(row Attributes, t *Table) (Entity, error) {
	if t == nil {
		t = r.table
	}
	e, err := t.NewEntity()
	if err != nil {
		return nil, err
	}
	if err := populate(e, row); err != nil {
		return nil, err
	}
	return e, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case uint64:
		return int64(n)
	case uint32:
		return int64(n)
	case float64:
		return int64(n)
	case float32:
		return int64(n)
	case []byte:
		i, _ := strconv.ParseInt(string(n), 10, 64)
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	}
	return 0
}
