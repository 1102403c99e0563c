package main

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ezra-obiwale/DBScribe/internal/config"
	"github.com/ezra-obiwale/DBScribe/mysql"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, output string) (*app, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &app{
		cfg:  &config.Config{Output: output},
		conn: mysql.New(sqlDB, "shop", ""),
	}, mock
}

func expectUsers(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.COLUMNS c")).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "is_nullable", "column_type", "column_key"}).
			AddRow("id", "NO", "int(11)", "PRI").
			AddRow("name", "YES", "varchar(100)", ""))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.TABLE_CONSTRAINTS tc")).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "constraint_type", "column_name"}).
			AddRow("PRIMARY", "PRIMARY KEY", "id"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.KEY_COLUMN_USAGE WHERE")).
		WithArgs("shop", "users").
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "referenced_column"}))
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCountCmd(t *testing.T) {
	a, mock := newTestApp(t, "json")
	expectUsers(mock)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) AS `count` FROM `users` WHERE (`users`.`name` = ?) AND (`users`.`name` LIKE ?)")).
		WithArgs("A", "A%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow([]byte("3")))

	out, err := run(t, newCountCmd(a), "users", "--where", "name=A", "--like", "name=A%")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"table":"users","count":3}]`, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectCmd(t *testing.T) {
	a, mock := newTestApp(t, "table")
	expectUsers(mock)
	mock.ExpectQuery(regexp.QuoteMeta("FROM `users` ORDER BY `users`.`name` DESC LIMIT 2")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow([]byte("2"), []byte("B")).
			AddRow([]byte("1"), nil))

	out, err := run(t, newSelectCmd(a), "users", "--order", "name:desc", "--limit", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "NULL")
	assert.Contains(t, out, "(2 rows)")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSchemaCmd(t *testing.T) {
	a, mock := newTestApp(t, "table")
	expectUsers(mock)

	out, err := run(t, newSchemaCmd(a), "users", "--drop")
	require.NoError(t, err)
	assert.Contains(t, out, "DROP TABLE")
	assert.Contains(t, out, "CREATE TABLE `users`")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMissingTable(t *testing.T) {
	a, mock := newTestApp(t, "table")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.COLUMNS c")).
		WithArgs("shop", "ghosts").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}))

	_, err := run(t, newInspectCmd(a), "ghosts")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `table "ghosts" does not exist in shop`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTablesCmd(t *testing.T) {
	a, mock := newTestApp(t, "yaml")
	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.TABLES")).
		WithArgs("shop").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders").AddRow("users"))

	out, err := run(t, newTablesCmd(a))
	require.NoError(t, err)
	assert.Equal(t, "- table: orders\n- table: users\n", out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
