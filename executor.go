package dbscribe

import (
	"context"
)

type (
	// Row is one row as returned by an Executor, keyed by column name or
	// alias.
	Row = map[string]interface{}

	// ExecResult is the outcome of a statement that returns no rows.
	ExecResult struct {
		RowsAffected int64
		LastInsertID int64
	}

	// Executor receives finished statements and their positional
	// parameters and runs them against the store. Query is used for
	// statements returning rows, Exec for everything else. StoreName is the
	// schema the tables live in and TablePrefix is prepended to every table
	// name before it reaches SQL.
	//
	// See Connection for an Executor over github.com/gopsql/db and the mysql
	// package for one over database/sql.
	Executor interface {
		Query(ctx context.Context, query string, args []interface{}) ([]Row, error)
		Exec(ctx context.Context, query string, args []interface{}) (ExecResult, error)
		StoreName() string
		TablePrefix() string
	}

	// RowScanner is the subset of *sql.Rows (and db.Rows) needed by
	// ScanRows.
	RowScanner interface {
		Columns() ([]string, error)
		Next() bool
		Scan(dest ...interface{}) error
		Err() error
	}
)

// ScanRows reads every remaining row of rows into a map keyed by column
// name. Byte slices are converted to strings.
func ScanRows(rows RowScanner) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		dests := make([]interface{}, len(columns))
		for i := range values {
			dests[i] = &values[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
