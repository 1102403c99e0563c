package dbscribe

import (
	"context"

	"github.com/gopsql/db"
)

type (
	// Connection adapts a github.com/gopsql/db connection to Executor.
	// Connections implementing db.ConvertParameters get the chance to
	// rewrite statements and parameters before they are sent.
	Connection struct {
		conn   db.DB
		store  string
		prefix string
	}

	lastInsertIDer interface {
		LastInsertId() (int64, error)
	}
)

// NewConnection creates an Executor from conn. storeName is the schema
// queried for table metadata and tablePrefix is prepended to table names.
func NewConnection(conn db.DB, storeName, tablePrefix string) *Connection {
	return &Connection{
		conn:   conn,
		store:  storeName,
		prefix: tablePrefix,
	}
}

// DB returns the underlying connection.
func (c *Connection) DB() db.DB {
	return c.conn
}

func (c *Connection) StoreName() string {
	return c.store
}

func (c *Connection) TablePrefix() string {
	return c.prefix
}

// Query runs a statement returning rows.
func (c *Connection) Query(ctx context.Context, query string, args []interface{}) ([]Row, error) {
	if c.conn == nil {
		return nil, ErrNoConnection
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	query, args = c.convert(query, args)
	rows, err := c.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return ScanRows(rows)
}

// Exec runs a statement without returning rows. LastInsertID is only
// filled if the driver's result exposes it.
func (c *Connection) Exec(ctx context.Context, query string, args []interface{}) (ExecResult, error) {
	if c.conn == nil {
		return ExecResult{}, ErrNoConnection
	}
	if err := ctx.Err(); err != nil {
		return ExecResult{}, err
	}
	query, args = c.convert(query, args)
	result, err := c.conn.Exec(query, args...)
	if err != nil {
		return ExecResult{}, err
	}
	ra, err := result.RowsAffected()
	if err != nil {
		return ExecResult{}, err
	}
	out := ExecResult{RowsAffected: ra}
	if r, ok := result.(lastInsertIDer); ok {
		if id, err := r.LastInsertId(); err == nil {
			out.LastInsertID = id
		}
	}
	return out, nil
}

func (c *Connection) convert(query string, args []interface{}) (string, []interface{}) {
	if cp, ok := c.conn.(db.ConvertParameters); ok {
		return cp.ConvertParameters(query, args)
	}
	return query, args
}
