package dbscribe

import (
	"encoding/json"
	"io"
	"slices"
)

type (
	// PermittedTable wraps a Table with a whitelist of columns for mass
	// assignment protection. Create instances using Permit or
	// PermitAllExcept, then use Filter to extract allowed values from user
	// input.
	PermittedTable struct {
		*Table
		permitted []string
	}
)

// Permit creates a PermittedTable that only allows the given columns (or
// their camelCase aliases) in Filter. Columns are matched against the
// reflected schema, so the table must have been reflected (see LoadTable).
// If no column is given, no column is permitted.
func (t *Table) Permit(columns ...string) *PermittedTable {
	permitted := []string{}
	for _, c := range t.schema.Columns {
		if slices.Contains(columns, c.Name) || slices.Contains(columns, c.Alias()) {
			permitted = append(permitted, c.Name)
		}
	}
	return &PermittedTable{t, permitted}
}

// PermitAllExcept creates a PermittedTable that allows every column except
// the given ones.
func (t *Table) PermitAllExcept(columns ...string) *PermittedTable {
	permitted := []string{}
	for _, c := range t.schema.Columns {
		if slices.Contains(columns, c.Name) || slices.Contains(columns, c.Alias()) {
			continue
		}
		permitted = append(permitted, c.Name)
	}
	return &PermittedTable{t, permitted}
}

// PermittedColumns returns the permitted columns in table order.
func (p PermittedTable) PermittedColumns() []string {
	return append([]string{}, p.permitted...)
}

// Filter extracts permitted values from inputs, keyed by column name.
// Inputs can be Attributes, maps, JSON strings, []byte, io.Reader or
// Entities; keys are column names or aliases. Later inputs override
// earlier ones. Inputs that cannot be decoded are skipped.
//
//	attrs := users.Permit("name", "email").Filter(requestBody)
//	users.Insert(attrs).MustExecute(ctx)
func (p PermittedTable) Filter(inputs ...interface{}) Attributes {
	out := Attributes{}
	for _, input := range inputs {
		switch in := input.(type) {
		case Attributes:
			p.filterPermits(in, out)
		case map[string]interface{}:
			p.filterPermits(in, out)
		case string:
			var a Attributes
			if json.Unmarshal([]byte(in), &a) == nil {
				p.filterPermits(a, out)
			}
		case []byte:
			var a Attributes
			if json.Unmarshal(in, &a) == nil {
				p.filterPermits(a, out)
			}
		case io.Reader:
			var a Attributes
			if json.NewDecoder(in).Decode(&a) == nil {
				p.filterPermits(a, out)
			}
		case Entity:
			p.filterPermits(in.Attributes(true), out)
		}
	}
	return out
}

func (p PermittedTable) filterPermits(in Attributes, out Attributes) {
	for key, value := range in {
		column := p.columnName(key)
		if slices.Contains(p.permitted, column) {
			out[column] = value
		}
	}
}
