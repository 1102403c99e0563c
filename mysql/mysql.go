// Package mysql runs dbscribe statements against a MySQL store through
// database/sql and github.com/go-sql-driver/mysql.
//
//	conn, err := mysql.Open(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//	users, err := dbscribe.LoadTable(ctx, "users", conn)
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	dbscribe "github.com/ezra-obiwale/DBScribe"
	gosqldriver "github.com/go-sql-driver/mysql"
)

const tablesQuery = "SELECT TABLE_NAME AS table_name FROM information_schema.TABLES " +
	"WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"

// ErrClosed is returned by a DB after Close.
var ErrClosed = errors.New("database is closed")

// DB is a dbscribe.Executor over a *sql.DB.
type DB struct {
	db     *sql.DB
	store  string
	prefix string
	closed bool
}

var _ dbscribe.Executor = (*DB)(nil)

// Open connects to the store described by cfg, tunes the connection pool
// and pings the server.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	dc, err := cfg.driverConfig()
	if err != nil {
		return nil, err
	}
	connector, err := gosqldriver.NewConnector(dc)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}
	db := sql.OpenDB(connector)
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return New(db, dc.DBName, cfg.Prefix), nil
}

// New wraps an open *sql.DB. store is the schema queried for table
// metadata and prefix is prepended to table names.
func New(db *sql.DB, store, prefix string) *DB {
	return &DB{db: db, store: store, prefix: prefix}
}

// SQL returns the underlying *sql.DB.
func (d *DB) SQL() *sql.DB {
	return d.db
}

func (d *DB) StoreName() string {
	return d.store
}

func (d *DB) TablePrefix() string {
	return d.prefix
}

// Table returns a dbscribe.Table bound to d.
func (d *DB) Table(name string, options ...interface{}) *dbscribe.Table {
	return dbscribe.NewTable(name, append([]interface{}{d}, options...)...)
}

// Query runs a statement and scans every row into a map keyed by column
// alias.
func (d *DB) Query(ctx context.Context, query string, args []interface{}) ([]dbscribe.Row, error) {
	if d.closed {
		return nil, ErrClosed
	}
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()
	out, err := dbscribe.ScanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan rows: %w", err)
	}
	return out, nil
}

// Exec runs a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, query string, args []interface{}) (dbscribe.ExecResult, error) {
	if d.closed {
		return dbscribe.ExecResult{}, ErrClosed
	}
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return dbscribe.ExecResult{}, fmt.Errorf("failed to execute statement: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return dbscribe.ExecResult{}, fmt.Errorf("failed to read rows affected: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return dbscribe.ExecResult{}, fmt.Errorf("failed to read last insert id: %w", err)
	}
	return dbscribe.ExecResult{RowsAffected: affected, LastInsertID: id}, nil
}

// Tables lists the base tables of the store carrying the table prefix,
// with the prefix trimmed.
func (d *DB) Tables(ctx context.Context) ([]string, error) {
	rows, err := d.Query(ctx, tablesQuery, []interface{}{d.store})
	if err != nil {
		return nil, err
	}
	var tables []string
	for _, row := range rows {
		name := fmt.Sprint(row["table_name"])
		if !strings.HasPrefix(name, d.prefix) {
			continue
		}
		tables = append(tables, strings.TrimPrefix(name, d.prefix))
	}
	return tables, nil
}

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	if d.closed {
		return ErrClosed
	}
	return d.db.PingContext(ctx)
}

// Close closes the pool. Closing twice is a no-op.
func (d *DB) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}
