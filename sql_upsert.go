package dbscribe

import (
	"context"
	"fmt"
	"slices"
)

// Upsert updates the rows that already exist and inserts the others. One
// SELECT fetches the existing values of whereColumns (the primary key if
// empty); a row is updated if each of its where values is found among them,
// otherwise it is inserted, with a primary key from the Table's
// IDGenerator if it has none and the key is not auto_increment.
//
// Updates run first, unless the rows hold nothing but where columns and the
// primary key. Inserts run only if the update succeeded or there was
// nothing to update. The Result of the last operation run is returned.
//
//	users.Upsert(ctx, []string{"email"},
//		dbscribe.Attributes{"email": "alice@example.com", "name": "Alice"},
//		dbscribe.Attributes{"email": "bob@example.com", "name": "Bob"},
//	)
func (t *Table) Upsert(ctx context.Context, whereColumns []string, rows ...interface{}) (*Result, error) {
	if err := t.ready(ctx); err != nil {
		return nil, err
	}
	if !t.exists {
		return &Result{Operation: OpUpsert, Missing: true, table: t}, nil
	}
	pk := t.PrimaryKey()
	columns := make([]string, 0, len(whereColumns))
	for _, column := range whereColumns {
		columns = append(columns, t.columnName(column))
	}
	if len(columns) == 0 {
		if pk == "" {
			return nil, fmt.Errorf("%w: table %q: upsert needs where columns", ErrNoPrimaryKey, t.FullName())
		}
		columns = []string{pk}
	}

	normalized, err := t.normalizeRows(rows, true, OpUpsert)
	if err != nil {
		return nil, err
	}
	if err := t.sameShape(normalized); err != nil {
		return nil, err
	}

	var filters []Attributes
	for i, row := range normalized {
		filter := Attributes{}
		for _, column := range columns {
			value, ok := row[column]
			if !ok {
				return nil, shapeError(t, "row %d has no value for where column %s", i, column)
			}
			filter[column] = value
		}
		filters = append(filters, filter)
	}
	existing, err := t.Select(filters...).As(ShapeRaw).Execute(ctx)
	if err != nil {
		return nil, err
	}
	found := map[string]map[string]bool{}
	for _, column := range columns {
		found[column] = map[string]bool{}
		for _, value := range existing.Column(column) {
			found[column][asString(value)] = true
		}
	}

	var updates, inserts []interface{}
	for _, row := range normalized {
		exists := true
		for _, column := range columns {
			if row[column] == nil || !found[column][asString(row[column])] {
				exists = false
				break
			}
		}
		if exists {
			updates = append(updates, row)
			continue
		}
		if pk != "" && isEmpty(row[pk]) && !t.autoIncrement(pk) && t.newID != nil {
			row[pk] = t.newID()
		}
		inserts = append(inserts, row)
	}

	settable := false
	for column := range normalized[0] {
		if column != pk && !slices.Contains(columns, column) {
			settable = true
		}
	}

	result := &Result{Operation: OpUpsert, table: t}
	if len(updates) > 0 && settable {
		result, err = t.Update(columns, updates...).Execute(ctx)
		if err != nil {
			return nil, err
		}
	}
	if len(inserts) > 0 {
		result, err = t.Insert(inserts...).Execute(ctx)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (t *Table) autoIncrement(column string) bool {
	c, ok := t.schema.Column(column)
	return ok && c.AutoIncrement()
}
