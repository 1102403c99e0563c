package dbscribe

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

type (
	// SQL is embedded by every query builder. It holds the Table the
	// statement runs against.
	SQL struct {
		table *Table
	}

	// statement accumulates SQL text and positional parameters. Identifiers
	// go through ident, values through bind, so neither needs manual
	// quoting.
	statement struct {
		sql  strings.Builder
		args []interface{}
	}

	condition struct {
		connector string // AND or OR
		operator  string // LIKE, IN or empty for a raw condition
		column    string
		sql       string
		args      []interface{}
	}

	sqlConditions struct {
		conditions []condition
	}

	orderTerm struct {
		expression string
		desc       bool
	}

	sqlModifiers struct {
		sqlConditions
		orderBy  []orderTerm
		limit    int
		hasLimit bool
		offset   int
	}

	// columnQualifier turns a criteria key or modifier column into a quoted
	// column reference.
	columnQualifier func(key string) string
)

// maxRows is the row count MySQL documents for an offset without limit.
const maxRows = "18446744073709551615"

func (s *statement) write(parts ...string) *statement {
	for _, part := range parts {
		s.sql.WriteString(part)
	}
	return s
}

func (s *statement) ident(name string) *statement {
	s.sql.WriteString(quoteIdent(name))
	return s
}

// bind writes one placeholder per value.
func (s *statement) bind(values ...interface{}) *statement {
	for i, value := range values {
		if i > 0 {
			s.sql.WriteString(", ")
		}
		s.sql.WriteString("?")
		s.args = append(s.args, value)
	}
	return s
}

func (s *statement) String() string {
	return s.sql.String()
}

// quoteIdent quotes a possibly dotted identifier with backticks. "*" is
// left alone.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, part := range parts {
		if part == "*" {
			continue
		}
		parts[i] = "`" + strings.ReplaceAll(part, "`", "``") + "`"
	}
	return strings.Join(parts, ".")
}

// isIdent reports whether expr is a plain, possibly dotted, identifier.
func isIdent(expr string) bool {
	if expr == "" {
		return false
	}
	for _, r := range expr {
		switch {
		case r == '_' || r == '.' || r == '*':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (c condition) render(qualify columnQualifier) (string, []interface{}) {
	switch c.operator {
	case "LIKE":
		return qualify(c.column) + " LIKE ?", c.args
	case "IN":
		if len(c.args) == 0 {
			return "1 = 0", nil
		}
		return qualify(c.column) + " IN (?" + strings.Repeat(", ?", len(c.args)-1) + ")", c.args
	}
	return c.sql, c.args
}

func (s *sqlConditions) add(connector string, c condition) {
	c.connector = connector
	s.conditions = append(s.conditions, c)
}

// conditionsToStr joins conditions with their connectors. Each condition is
// parenthesized when there is more than one, and the accumulated clause is
// wrapped whenever the connector changes so conditions apply left to right.
func conditionsToStr(conds []condition, prefix string, qualify columnQualifier) (string, []interface{}) {
	var out string
	var args []interface{}
	moreThanOne := len(conds) > 1
	var previous string
	for i, c := range conds {
		sql, a := c.render(qualify)
		if moreThanOne {
			sql = "(" + sql + ")"
		}
		if i == 0 {
			out = sql
		} else {
			if i > 1 && c.connector != previous {
				out = "(" + out + ")"
			}
			out += " " + c.connector + " " + sql
			previous = c.connector
		}
		args = append(args, a...)
	}
	if out != "" {
		out = prefix + out
	}
	return out, args
}

func (m *sqlModifiers) orderByStr(qualify columnQualifier) string {
	if len(m.orderBy) == 0 {
		return ""
	}
	terms := make([]string, 0, len(m.orderBy))
	for _, o := range m.orderBy {
		term := o.expression
		if isIdent(term) {
			term = qualify(term)
		}
		if o.desc {
			term += " DESC"
		} else {
			term += " ASC"
		}
		terms = append(terms, term)
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (m *sqlModifiers) limitStr() string {
	switch {
	case m.hasLimit && m.offset > 0:
		return " LIMIT " + strconv.Itoa(m.offset) + ", " + strconv.Itoa(m.limit)
	case m.hasLimit:
		return " LIMIT " + strconv.Itoa(m.limit)
	case m.offset > 0:
		return " LIMIT " + strconv.Itoa(m.offset) + ", " + maxRows
	}
	return ""
}

func (m *sqlModifiers) where(condition string, args []interface{}) {
	m.add("AND", rawCondition(condition, args))
}

func (m *sqlModifiers) orWhere(condition string, args []interface{}) {
	m.add("OR", rawCondition(condition, args))
}

func (m *sqlModifiers) like(column, pattern string) {
	m.add("AND", condition{operator: "LIKE", column: column, args: []interface{}{pattern}})
}

func (m *sqlModifiers) in(column string, values []interface{}) {
	m.add("AND", condition{operator: "IN", column: column, args: values})
}

func (m *sqlModifiers) order(column string, direction []string) {
	desc := len(direction) > 0 && strings.EqualFold(strings.TrimSpace(direction[0]), "DESC")
	m.orderBy = append(m.orderBy, orderTerm{expression: column, desc: desc})
}

func rawCondition(sql string, args []interface{}) condition {
	return condition{sql: sql, args: args}
}

// criteriaToConditions renders criteria rows. Fields of a row are ANDed in
// key order, rows are ORed. A nil value matches NULL unless skipNil is set,
// in which case the field is left out; a slice value matches any of its
// elements. A row that renders to nothing gives a condition with empty sql.
func criteriaToConditions(rows []Attributes, qualify columnQualifier, skipNil bool) []condition {
	var out []condition
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for key := range row {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		var fields []condition
		for _, key := range keys {
			value := row[key]
			column := qualify(key)
			switch {
			case value == nil:
				if skipNil {
					continue
				}
				fields = append(fields, rawCondition(column+" IS NULL", nil))
			case isList(value):
				fields = append(fields, condition{operator: "IN", column: key, args: listValues(value)})
			default:
				fields = append(fields, rawCondition(column+" = ?", []interface{}{value}))
			}
		}
		if len(fields) == 0 {
			out = append(out, condition{connector: "OR"})
			continue
		}
		var st statement
		for i, f := range fields {
			if i > 0 {
				st.write(" AND ")
			}
			sql, args := f.render(qualify)
			st.write(sql)
			st.args = append(st.args, args...)
		}
		out = append(out, condition{connector: "OR", sql: st.String(), args: st.args})
	}
	return out
}

// isList reports whether value is a slice or array other than []byte.
func isList(value interface{}) bool {
	if _, ok := value.([]byte); ok {
		return false
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Slice, reflect.Array:
		return true
	}
	return false
}

func listValues(value interface{}) []interface{} {
	rv := reflect.ValueOf(value)
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// execute runs a statement that returns no rows, after logging it.
func (s *SQL) execute(ctx context.Context, op Operation, sql string, args []interface{}) (*Result, error) {
	res, err := s.table.exec(ctx, sql, args)
	if err != nil {
		return nil, err
	}
	return &Result{
		Operation:    op,
		RowsAffected: res.RowsAffected,
		LastInsertID: res.LastInsertID,
		table:        s.table,
	}, nil
}

// qualify quotes a column of the table for statements over one table.
func (s *SQL) qualify(key string) string {
	if !isIdent(key) {
		return key
	}
	return quoteIdent(s.table.columnName(key))
}

// prepare makes sure the table is reflected. found is false when the table
// does not exist.
func (s *SQL) prepare(ctx context.Context) (found bool, err error) {
	if err = s.table.ready(ctx); err != nil {
		return
	}
	return s.table.exists, nil
}

func shapeError(t *Table, format string, args ...interface{}) error {
	return fmt.Errorf("%w: table %q: %s", ErrShape, t.FullName(), fmt.Sprintf(format, args...))
}
