package dbscribe

import (
	"context"
	"slices"
	"strings"
)

type (
	// InsertQuery represents an INSERT statement builder. Create instances
	// using Table.Insert.
	InsertQuery struct {
		SQL
		rows            []interface{}
		ignore          bool
		updateOnDup     bool
		updateColumns   []string
		updateAllExcept []string
	}
)

// Insert creates one INSERT statement for all rows. Rows are Attributes,
// maps or Entities, and all of them must have the same keys. The column
// list is every column with a non-empty value in at least one row; a row
// whose value for such a column is nil or empty gets DEFAULT.
//
//	users.Insert(
//		dbscribe.Attributes{"id": "1", "name": "Alice"},
//		dbscribe.Attributes{"id": "2", "name": ""},
//	).MustExecute(ctx)
//	// INSERT INTO `users` (`id`, `name`) VALUES (?, ?), (?, DEFAULT)
func (t *Table) Insert(rows ...interface{}) *InsertQuery {
	return &InsertQuery{
		SQL:  SQL{table: t},
		rows: rows,
	}
}

// Ignore turns the statement into INSERT IGNORE, skipping rows that
// conflict with a unique key.
func (s *InsertQuery) Ignore() *InsertQuery {
	s.ignore = true
	return s
}

// OnDuplicateKeyUpdate adds an ON DUPLICATE KEY UPDATE clause setting the
// given columns to the inserted values. No columns means every inserted
// column except the primary key.
func (s *InsertQuery) OnDuplicateKeyUpdate(columns ...string) *InsertQuery {
	s.updateOnDup = true
	s.updateColumns = append([]string{}, columns...)
	return s
}

// OnDuplicateKeyUpdateAllExcept is like OnDuplicateKeyUpdate with every
// inserted column except the primary key and the given columns.
func (s *InsertQuery) OnDuplicateKeyUpdateAllExcept(columns ...string) *InsertQuery {
	s.updateOnDup = true
	s.updateColumns = nil
	s.updateAllExcept = append([]string{}, columns...)
	return s
}

// Perform operations on the chain.
func (s *InsertQuery) Tap(funcs ...func(*InsertQuery) *InsertQuery) *InsertQuery {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

// String returns the statement, or an empty string if it cannot be built.
func (s *InsertQuery) String() string {
	sql, _, err := s.Build(context.Background())
	if err != nil {
		return ""
	}
	return sql
}

// Build composes the statement. Shape errors are returned before anything
// reaches the store.
func (s *InsertQuery) Build(ctx context.Context) (string, []interface{}, error) {
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
func (s *InsertQuery) MustExecute(ctx context.Context) *Result {
	r, err := s.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

// Execute runs the statement. RowsAffected and LastInsertID of the Result
// are set from the store's response. If the table does not exist a Result
// with Missing set is returned.
func (s *InsertQuery) Execute(ctx context.Context) (*Result, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Result{Operation: OpInsert, Missing: true, table: s.table}, nil
	}
	sql, args, err := s.build()
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, OpInsert, sql, args)
}

func (s *InsertQuery) build() (string, []interface{}, error) {
	rows, err := s.table.normalizeRows(s.rows, true, OpInsert)
	if err != nil {
		return "", nil, err
	}
	if err := s.table.sameShape(rows); err != nil {
		return "", nil, err
	}
	used := map[string]bool{}
	for _, row := range rows {
		for column, value := range row {
			if !isEmpty(value) {
				used[column] = true
			}
		}
	}
	if len(used) == 0 {
		return "", nil, shapeError(s.table, "every value is empty")
	}
	columns := s.table.orderedColumns(used)

	var st statement
	st.write("INSERT ")
	if s.ignore {
		st.write("IGNORE ")
	}
	st.write("INTO ").ident(s.table.FullName()).write(" (")
	for i, column := range columns {
		if i > 0 {
			st.write(", ")
		}
		st.ident(column)
	}
	st.write(") VALUES ")
	for i, row := range rows {
		if i > 0 {
			st.write(", ")
		}
		st.write("(")
		for j, column := range columns {
			if j > 0 {
				st.write(", ")
			}
			if value := row[column]; isEmpty(value) {
				st.write("DEFAULT")
			} else {
				st.value(value)
			}
		}
		st.write(")")
	}
	if s.updateOnDup {
		s.writeOnDuplicate(&st, columns)
	}
	return st.String(), st.args, nil
}

func (s *InsertQuery) writeOnDuplicate(st *statement, inserted []string) {
	columns := s.updateColumns
	if len(columns) == 0 {
		for _, column := range inserted {
			if column == s.table.PrimaryKey() || slices.Contains(s.updateAllExcept, column) {
				continue
			}
			columns = append(columns, column)
		}
	}
	if len(columns) == 0 {
		// nothing to update, keep the statement valid
		pk := s.table.PrimaryKey()
		if pk == "" {
			pk = inserted[0]
		}
		columns = []string{pk}
	}
	sets := make([]string, 0, len(columns))
	for _, column := range columns {
		column = quoteIdent(s.table.columnName(column))
		sets = append(sets, column+" = VALUES("+column+")")
	}
	st.write(" ON DUPLICATE KEY UPDATE ", strings.Join(sets, ", "))
}

