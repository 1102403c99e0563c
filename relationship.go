package dbscribe

import (
	"sort"
	"strings"
)

type (
	// Direction tells which side of a relationship holds the foreign key.
	Direction int

	// Relationship is one column pair linking the table to a related table.
	Relationship struct {
		Column        string // column of this table
		RelatedTable  string // related table, without prefix
		RelatedColumn string // column of the related table
		Direction     Direction
	}

	// Relationships maps a related table name (without prefix) to every
	// relationship with it.
	Relationships map[string][]Relationship
)

const (
	// Pull means this table holds the foreign key.
	Pull Direction = iota + 1
	// Push means the related table holds a foreign key back to this one.
	Push
)

func (d Direction) String() string {
	switch d {
	case Pull:
		return "pull"
	case Push:
		return "push"
	}
	return ""
}

// With returns the relationships with a table.
func (r Relationships) With(table string) []Relationship {
	return r[table]
}

// Tables returns the names of all related tables, sorted.
func (r Relationships) Tables() (out []string) {
	for name := range r {
		out = append(out, name)
	}
	sort.Strings(out)
	return
}

func (r Relationships) filter(table string, direction Direction) (out []Relationship) {
	for _, rel := range r[table] {
		if direction == 0 || rel.Direction == direction {
			out = append(out, rel)
		}
	}
	return
}

// resolveRelationships merges forward references and back-references of a
// schema into one map. The primary-key constraint and references without a
// target table are skipped.
func resolveRelationships(schema Schema, prefix string) Relationships {
	out := Relationships{}
	columns := make([]string, 0, len(schema.References))
	for column := range schema.References {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		ref := schema.References[column]
		if ref.TargetTable == "" || ref.Constraint == "PRIMARY" {
			continue
		}
		name := strings.TrimPrefix(ref.TargetTable, prefix)
		out[name] = append(out[name], Relationship{
			Column:        column,
			RelatedTable:  name,
			RelatedColumn: ref.TargetColumn,
			Direction:     Pull,
		})
	}

	columns = columns[:0]
	for column := range schema.BackReferences {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		for _, back := range schema.BackReferences[column] {
			if back.SourceTable == "" {
				continue
			}
			name := strings.TrimPrefix(back.SourceTable, prefix)
			out[name] = append(out[name], Relationship{
				Column:        column,
				RelatedTable:  name,
				RelatedColumn: back.SourceColumn,
				Direction:     Push,
			})
		}
	}
	return out
}
