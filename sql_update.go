package dbscribe

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

type (
	// UpdateQuery represents an UPDATE statement builder. Create instances
	// using Table.Update.
	UpdateQuery struct {
		SQL
		sqlModifiers
		whereColumns []string
		rows         []interface{}
	}
)

// Update creates one UPDATE statement run once per row. Each row's values
// of whereColumns select the rows to change (the primary key if
// whereColumns is empty); every other column of the row except the primary
// key is SET. All rows must have the same keys.
//
//	users.Update([]string{"email"}, dbscribe.Attributes{
//		"email": "alice@example.com",
//		"name":  "Alice",
//	}).MustExecute(ctx)
//	// UPDATE `users` SET `name` = ? WHERE `email` = ?
//
// A nil value sets the column to NULL.
func (t *Table) Update(whereColumns []string, rows ...interface{}) *UpdateQuery {
	return &UpdateQuery{
		SQL:          SQL{table: t},
		whereColumns: whereColumns,
		rows:         rows,
	}
}

// Adds a condition, ANDed with the where columns. Use ? for parameters.
func (s *UpdateQuery) Where(condition string, args ...interface{}) *UpdateQuery {
	s.where(condition, args)
	return s
}

// OrWhere is like Where but ORs the condition.
func (s *UpdateQuery) OrWhere(condition string, args ...interface{}) *UpdateQuery {
	s.orWhere(condition, args)
	return s
}

// Adds an ORDER BY term. Direction is "ASC" (default) or "DESC".
func (s *UpdateQuery) OrderBy(column string, direction ...string) *UpdateQuery {
	s.order(column, direction)
	return s
}

// Adds LIMIT to the statement.
func (s *UpdateQuery) Limit(count int) *UpdateQuery {
	s.limit = count
	s.hasLimit = true
	return s
}

// Perform operations on the chain.
func (s *UpdateQuery) Tap(funcs ...func(*UpdateQuery) *UpdateQuery) *UpdateQuery {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

// String returns the statement, or an empty string if it cannot be built.
func (s *UpdateQuery) String() string {
	sql, _, err := s.Build(context.Background())
	if err != nil {
		return ""
	}
	return sql
}

// Build composes the statement with the parameters of the first row. See
// BuildBatch for the parameters of every row.
func (s *UpdateQuery) Build(ctx context.Context) (string, []interface{}, error) {
	sql, batch, err := s.BuildBatch(ctx)
	if err != nil {
		return "", nil, err
	}
	return sql, batch[0], nil
}

// BuildBatch composes the statement and the parameters of each row.
func (s *UpdateQuery) BuildBatch(ctx context.Context) (string, [][]interface{}, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, ErrNoTable
	}
	return s.build()
}

// MustExecute is like Execute but panics if the operation fails.
func (s *UpdateQuery) MustExecute(ctx context.Context) *Result {
	r, err := s.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

// Execute runs the statement for every row and sums the affected rows. It
// stops at the first failing row. If the table does not exist a Result with
// Missing set is returned.
func (s *UpdateQuery) Execute(ctx context.Context) (*Result, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Result{Operation: OpUpdate, Missing: true, table: s.table}, nil
	}
	sql, batch, err := s.build()
	if err != nil {
		return nil, err
	}
	total := &Result{Operation: OpUpdate, table: s.table}
	for _, args := range batch {
		r, err := s.execute(ctx, OpUpdate, sql, args)
		if err != nil {
			return nil, err
		}
		total.RowsAffected += r.RowsAffected
	}
	return total, nil
}

func (s *UpdateQuery) build() (string, [][]interface{}, error) {
	pk := s.table.PrimaryKey()
	whereColumns := make([]string, 0, len(s.whereColumns))
	for _, column := range s.whereColumns {
		whereColumns = append(whereColumns, s.table.columnName(column))
	}
	if len(whereColumns) == 0 {
		if pk == "" {
			return "", nil, fmt.Errorf("%w: table %q: update needs where columns", ErrNoPrimaryKey, s.table.FullName())
		}
		whereColumns = []string{pk}
	}
	withPK := pk != "" && slices.Contains(whereColumns, pk)

	rows, err := s.table.normalizeRows(s.rows, withPK, OpUpdate)
	if err != nil {
		return "", nil, err
	}
	if err := s.table.sameShape(rows); err != nil {
		return "", nil, err
	}
	for i, row := range rows {
		for _, column := range whereColumns {
			if _, ok := row[column]; !ok {
				return "", nil, shapeError(s.table, "row %d has no value for where column %s", i, column)
			}
		}
	}
	set := map[string]bool{}
	for column := range rows[0] {
		if column == pk || slices.Contains(whereColumns, column) {
			continue
		}
		set[column] = true
	}
	if len(set) == 0 {
		return "", nil, shapeError(s.table, "no column to set")
	}
	columns := s.table.orderedColumns(set)

	var sql string
	batch := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		var st statement
		st.write("UPDATE ").ident(s.table.FullName()).write(" SET ")
		for i, column := range columns {
			if i > 0 {
				st.write(", ")
			}
			st.ident(column).write(" = ").value(row[column])
		}
		var wheres []string
		for _, column := range whereColumns {
			wheres = append(wheres, quoteIdent(column)+" = ?")
			st.args = append(st.args, row[column])
		}
		conds := append([]condition{rawCondition(strings.Join(wheres, " AND "), nil)}, s.conditions...)
		where, args := conditionsToStr(conds, " WHERE ", s.qualify)
		st.write(where)
		st.args = append(st.args, args...)
		st.write(s.orderByStr(s.qualify), s.limitStr())
		sql = st.String()
		batch = append(batch, st.args)
	}
	return sql, batch, nil
}
