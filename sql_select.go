package dbscribe

import (
	"context"
	"strings"
)

type (
	// SelectQuery is created by Table.Select, Table.Count or
	// Table.Distinct. Modifiers only record fragments; the statement is
	// composed by Build and run by Execute.
	SelectQuery struct {
		SQL
		sqlModifiers
		op       Operation
		distinct string
		criteria []Attributes
		joins    []*join
		groupBy  []string
		havings  []condition
		shape    Shape
	}
)

// Select creates a SELECT statement over every column of the table. Each
// criteria row matches when all of its fields match (a nil value matches
// NULL, a slice matches any of its elements); rows are ORed. No criteria,
// or an empty row, selects every row.
//
//	result, err := users.Select(dbscribe.Attributes{"status": "active"}).
//		Join("orders").
//		OrderBy("name").
//		Limit(20).
//		Execute(ctx)
//
// Keys may name a column of a joined table as "<table>.<column>".
func (t *Table) Select(criteria ...Attributes) *SelectQuery {
	return &SelectQuery{
		SQL:      SQL{table: t},
		op:       OpSelect,
		criteria: criteria,
	}
}

// Count creates a SELECT COUNT(*) statement. Read the number with
// Result.Count.
func (t *Table) Count(criteria ...Attributes) *SelectQuery {
	s := t.Select(criteria...)
	s.op = OpCount
	return s
}

// Distinct creates a SELECT DISTINCT statement over one column. Read the
// values with Result.Column.
func (t *Table) Distinct(column string, criteria ...Attributes) *SelectQuery {
	s := t.Select(criteria...)
	s.op = OpDistinct
	s.distinct = column
	return s
}

// As sets the shape Result.Value returns rows in.
func (s *SelectQuery) As(shape Shape) *SelectQuery {
	s.shape = shape
	return s
}

// Adds a condition, ANDed with the criteria and previous conditions. Use ?
// for parameters.
//
//	users.Select().Where("created_at > ?", since)
func (s *SelectQuery) Where(condition string, args ...interface{}) *SelectQuery {
	s.where(condition, args)
	return s
}

// OrWhere is like Where but ORs the condition.
func (s *SelectQuery) OrWhere(condition string, args ...interface{}) *SelectQuery {
	s.orWhere(condition, args)
	return s
}

// Like adds a "column LIKE pattern" condition.
func (s *SelectQuery) Like(column, pattern string) *SelectQuery {
	s.like(column, pattern)
	return s
}

// In adds a "column IN (values)" condition. No values match no row.
func (s *SelectQuery) In(column string, values ...interface{}) *SelectQuery {
	s.in(column, values)
	return s
}

// Adds GROUP BY to the statement.
func (s *SelectQuery) GroupBy(columns ...string) *SelectQuery {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// Adds a HAVING condition. Several conditions are ANDed.
func (s *SelectQuery) Having(condition string, args ...interface{}) *SelectQuery {
	s.havings = append(s.havings, havingCondition(condition, args))
	return s
}

// Adds an ORDER BY term. Direction is "ASC" (default) or "DESC".
func (s *SelectQuery) OrderBy(column string, direction ...string) *SelectQuery {
	s.order(column, direction)
	return s
}

// Adds LIMIT to the statement.
func (s *SelectQuery) Limit(count int) *SelectQuery {
	s.limit = count
	s.hasLimit = true
	return s
}

// Offset sets the first row returned.
func (s *SelectQuery) Offset(start int) *SelectQuery {
	s.offset = start
	return s
}

// Perform operations on the chain.
func (s *SelectQuery) Tap(funcs ...func(*SelectQuery) *SelectQuery) *SelectQuery {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

// String returns the statement, or an empty string if it cannot be built.
func (s *SelectQuery) String() string {
	sql, _, err := s.Build(context.Background())
	if err != nil {
		return ""
	}
	return sql
}

// Build reflects the table (and joined tables) if needed and composes the
// statement. ErrNoTable is returned if the table does not exist.
func (s *SelectQuery) Build(ctx context.Context) (string, []interface{}, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, ErrNoTable
	}
	return s.build(ctx)
}

// MustExecute is like Execute but panics if the operation fails.
func (s *SelectQuery) MustExecute(ctx context.Context) *Result {
	r, err := s.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

// Execute runs the statement and maps the rows. If the table does not exist
// an empty Result with Missing set is returned.
func (s *SelectQuery) Execute(ctx context.Context) (*Result, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Operation: s.op,
		shape:     s.shape,
		table:     s.table,
		rows:      []Attributes{},
	}
	if !found {
		result.Missing = true
		return result, nil
	}
	sql, args, err := s.build(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.table.query(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	withJoins := s.op == OpSelect && len(s.joins) > 0
	result.rows, result.joins = s.table.mapRows(rows, withJoins)
	if withJoins {
		result.joined = map[string]JoinOptions{}
		for _, j := range s.joins {
			result.joined[j.name] = j.options
		}
	}
	return result, nil
}

func (s *SelectQuery) build(ctx context.Context) (string, []interface{}, error) {
	for _, j := range s.joins {
		if err := s.resolveJoin(ctx, j); err != nil {
			return "", nil, err
		}
	}
	var st statement
	st.write("SELECT ", s.columns(), " FROM ").ident(s.table.FullName())
	for _, j := range s.joins {
		s.writeJoin(&st, j)
	}

	var conds []condition
	if where, args := s.criteriaStr(); where != "" {
		conds = append(conds, condition{connector: "AND", sql: where, args: args})
	}
	conds = append(conds, s.conditions...)
	where, args := conditionsToStr(conds, " WHERE ", s.qualify)
	st.write(where)
	st.args = append(st.args, args...)

	if len(s.groupBy) > 0 {
		terms := make([]string, 0, len(s.groupBy))
		for _, g := range s.groupBy {
			if isIdent(g) {
				g = s.qualify(g)
			}
			terms = append(terms, g)
		}
		st.write(" GROUP BY ", strings.Join(terms, ", "))
	}
	having, args := conditionsToStr(s.havings, " HAVING ", s.qualify)
	st.write(having)
	st.args = append(st.args, args...)

	st.write(s.orderByStr(s.qualify), s.limitStr())
	return st.String(), st.args, nil
}

func (s *SelectQuery) columns() string {
	table := s.table.FullName()
	switch s.op {
	case OpCount:
		return "COUNT(*) AS `count`"
	case OpDistinct:
		column := s.table.columnName(s.distinct)
		return "DISTINCT " + quoteIdent(table+"."+column) + " AS " + quoteIdent(ToCamel(column))
	}
	columns := make([]string, 0, len(s.table.schema.Columns))
	for _, c := range s.table.schema.Columns {
		columns = append(columns, quoteIdent(table+"."+c.Name)+" AS "+quoteIdent(c.Alias()))
	}
	for _, j := range s.joins {
		for _, c := range j.target.schema.Columns {
			columns = append(columns, quoteIdent(j.ref+"."+c.Name)+" AS "+quoteIdent(j.name+"_"+c.Name))
		}
	}
	return strings.Join(columns, ", ")
}

// criteriaStr renders the criteria rows. An empty row matches every row,
// so no clause is returned for it.
func (s *SelectQuery) criteriaStr() (string, []interface{}) {
	conds := criteriaToConditions(s.criteria, s.qualify, false)
	for _, c := range conds {
		if c.sql == "" {
			return "", nil
		}
	}
	return conditionsToStr(conds, "", s.qualify)
}

// qualify quotes a column of the table, or "<table>.<column>" of a joined
// table. Keys that are not identifiers are expressions and left alone.
func (s *SelectQuery) qualify(key string) string {
	if !isIdent(key) {
		return key
	}
	i := strings.Index(key, ".")
	if i < 0 {
		return quoteIdent(s.table.FullName() + "." + s.table.columnName(key))
	}
	name, column := key[:i], key[i+1:]
	if name == s.table.name || name == s.table.FullName() {
		return quoteIdent(s.table.FullName() + "." + s.table.columnName(column))
	}
	for _, j := range s.joins {
		if j.target != nil && (name == j.name || name == j.ref) {
			return quoteIdent(j.ref + "." + j.target.columnName(column))
		}
	}
	return quoteIdent(key)
}

func havingCondition(sql string, args []interface{}) condition {
	return condition{connector: "AND", sql: sql, args: args}
}
