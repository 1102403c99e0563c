package dbscribe

import (
	"context"
	"fmt"
	"strings"
)

type (
	// JoinOptions tune one Join.
	JoinOptions struct {
		// Direction keeps only relationships of one direction. Zero keeps
		// both.
		Direction Direction
		// Where adds equality predicates on the joined table's columns.
		Where Attributes
		// OrderBy, Desc, Start and Count are the defaults of
		// Result.SeekJoin for this table.
		OrderBy []string
		Desc    bool
		Start   int
		Count   int
	}

	join struct {
		name          string
		options       JoinOptions
		target        *Table
		ref           string // table name or alias used in SQL
		relationships []Relationship
	}
)

// selfJoinAlias is the alias of a table joined to itself.
const selfJoinAlias = "t"

// Join adds a LEFT OUTER JOIN with another table of the store. The ON
// clause is built from the relationships between both tables: every
// "this.column = other.column" pair is ORed. Joined columns are selected as
// "<table>_<column>" and kept in the result's JoinBuffer.
//
//	users.Select().Join("orders", dbscribe.JoinOptions{
//		Direction: dbscribe.Push,
//		Where:     dbscribe.Attributes{"status": "paid"},
//	})
//
// Execute and Build return ErrNoRelationship if the tables share no
// relationship in the requested direction.
func (s *SelectQuery) Join(table string, options ...JoinOptions) *SelectQuery {
	for _, j := range s.joins {
		if j.name == table {
			return s
		}
	}
	j := &join{name: table}
	if len(options) > 0 {
		j.options = options[0]
	}
	s.joins = append(s.joins, j)
	return s
}

func (s *SelectQuery) resolveJoin(ctx context.Context, j *join) error {
	if len(s.table.relationships.With(j.name)) == 0 {
		return fmt.Errorf("%w: between %s and %s", ErrNoRelationship, s.table.name, j.name)
	}
	j.relationships = s.table.relationships.filter(j.name, j.options.Direction)
	if len(j.relationships) == 0 {
		return fmt.Errorf("%w: between %s and %s in direction %s",
			ErrNoRelationship, s.table.name, j.name, j.options.Direction)
	}
	target, err := s.table.Related(ctx, j.name)
	if err != nil {
		return err
	}
	j.target = target
	j.ref = target.FullName()
	if target == s.table {
		j.ref = selfJoinAlias
	}
	return nil
}

func (s *SelectQuery) writeJoin(st *statement, j *join) {
	st.write(" LEFT OUTER JOIN ").ident(j.target.FullName())
	if j.ref == selfJoinAlias {
		st.write(" ").ident(selfJoinAlias)
	}
	source := s.table.FullName()
	pairs := make([]string, 0, len(j.relationships))
	for _, rel := range j.relationships {
		pairs = append(pairs, quoteIdent(source+"."+rel.Column)+" = "+quoteIdent(j.ref+"."+rel.RelatedColumn))
	}
	on := strings.Join(pairs, " OR ")
	if len(j.options.Where) > 0 && len(pairs) > 1 {
		on = "(" + on + ")"
	}
	st.write(" ON ", on)
	for _, key := range j.options.Where.Keys() {
		column := quoteIdent(j.ref + "." + j.target.columnName(key))
		value := j.options.Where[key]
		if value == nil {
			st.write(" AND ", column, " IS NULL")
			continue
		}
		st.write(" AND ", column, " = ").bind(value)
	}
}
