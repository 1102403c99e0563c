package dbscribe

import (
	"encoding/json"
	"sort"
	"strings"
)

type (
	// Attributes maps column names (or their camelCase aliases) to values.
	// It is the row type of every query builder and of fetched results.
	Attributes map[string]interface{}

	// Raw is an SQL expression that is written into INSERT and UPDATE
	// statements as is, instead of being bound as a parameter.
	//
	//	users.Update(nil, dbscribe.Attributes{"id": 1, "seen_at": dbscribe.Raw("NOW()")})
	Raw string
)

func (a Attributes) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(a))
}

func (a Attributes) String() string {
	j, _ := json.MarshalIndent(a, "", "  ")
	return string(j)
}

// Keys returns the keys, sorted.
func (a Attributes) Keys() []string {
	keys := make([]string, 0, len(a))
	for key := range a {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// normalizeRows converts builder inputs into Attributes keyed by column
// name. Entities get their PreSave hook called with op before their
// attributes are read. Keys that name no reflected column are dropped.
func (t *Table) normalizeRows(rows []interface{}, withPrimaryKey bool, op Operation) ([]Attributes, error) {
	out := make([]Attributes, 0, len(rows))
	for i, row := range rows {
		var in Attributes
		switch r := row.(type) {
		case Attributes:
			in = r
		case map[string]interface{}:
			in = r
		case Entity:
			if p, ok := r.(PreSaver); ok && op != OpDelete {
				if err := p.PreSave(op); err != nil {
					return nil, err
				}
			}
			in = r.Attributes(withPrimaryKey)
		default:
			return nil, shapeError(t, "row %d: %T is neither a map nor an Entity", i, row)
		}
		out = append(out, t.toColumns(in))
	}
	return out, nil
}

func (t *Table) toColumns(in Attributes) Attributes {
	out := Attributes{}
	for key, value := range in {
		if len(t.schema.Columns) > 0 && !t.hasColumn(key) {
			continue
		}
		out[t.columnName(key)] = value
	}
	return out
}

// sameShape checks every row has exactly the keys of the first one.
func (t *Table) sameShape(rows []Attributes) error {
	if len(rows) == 0 {
		return shapeError(t, "no rows")
	}
	first := rows[0].Keys()
	for i, row := range rows {
		if len(row) == 0 {
			return shapeError(t, "row %d is empty", i)
		}
		keys := row.Keys()
		if strings.Join(keys, ",") != strings.Join(first, ",") {
			return shapeError(t, "row %d has columns [%s], row 0 has [%s]", i,
				strings.Join(keys, ", "), strings.Join(first, ", "))
		}
	}
	return nil
}

// orderedColumns returns the given columns in table column order, unknown
// columns last in name order.
func (t *Table) orderedColumns(columns map[string]bool) (out []string) {
	for _, c := range t.schema.Columns {
		if columns[c.Name] {
			out = append(out, c.Name)
		}
	}
	var rest []string
	for column := range columns {
		if !t.hasColumn(column) {
			rest = append(rest, column)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// isEmpty reports whether a value is left out of a row: nil, an empty
// string or empty bytes.
func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// value writes a bound parameter, or the expression itself for Raw.
func (s *statement) value(v interface{}) *statement {
	if r, ok := v.(Raw); ok {
		return s.write(string(r))
	}
	return s.bind(v)
}
