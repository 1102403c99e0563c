package dbscribe

import (
	"context"
	"fmt"
	"strings"
)

type (
	// Column is a column of the reflected schema.
	Column struct {
		Name      string
		Default   *string
		Nullable  bool
		Type      string // full column type, e.g. "varchar(255)"
		Extra     string // e.g. "auto_increment"
		Key       string // PRI, UNI, MUL or empty
		Index     string // name of the first index covering the column
		Charset   string
		Collation string
	}

	// Reference is a foreign key held by this table.
	Reference struct {
		Constraint   string
		Column       string
		TargetSchema string
		TargetTable  string
		TargetColumn string
		OnDelete     string
		OnUpdate     string
	}

	// BackReference is a foreign key of another table pointing to this
	// one.
	BackReference struct {
		SourceTable  string
		SourceColumn string
	}

	// Schema is the reflected catalog of a table. Indexes maps a column to
	// its index name, References maps a column to the foreign key it holds
	// and BackReferences maps a column to the foreign keys pointing at it.
	Schema struct {
		Columns        []Column
		PrimaryKey     string
		Indexes        map[string]string
		References     map[string]Reference
		BackReferences map[string][]BackReference
	}
)

const (
	columnsQuery = "SELECT c.COLUMN_NAME AS column_name, c.COLUMN_DEFAULT AS column_default, " +
		"c.IS_NULLABLE AS is_nullable, c.COLUMN_TYPE AS column_type, c.EXTRA AS extra, " +
		"c.COLUMN_KEY AS column_key, c.CHARACTER_SET_NAME AS charset, " +
		"c.COLLATION_NAME AS collation, s.INDEX_NAME AS index_name " +
		"FROM information_schema.COLUMNS c " +
		"LEFT JOIN information_schema.STATISTICS s ON s.TABLE_SCHEMA = c.TABLE_SCHEMA " +
		"AND s.TABLE_NAME = c.TABLE_NAME AND s.COLUMN_NAME = c.COLUMN_NAME " +
		"WHERE c.TABLE_SCHEMA = ? AND c.TABLE_NAME = ? " +
		"ORDER BY c.ORDINAL_POSITION"

	constraintsQuery = "SELECT tc.CONSTRAINT_NAME AS constraint_name, tc.CONSTRAINT_TYPE AS constraint_type, " +
		"k.COLUMN_NAME AS column_name, k.REFERENCED_TABLE_SCHEMA AS referenced_schema, " +
		"k.REFERENCED_TABLE_NAME AS referenced_table, k.REFERENCED_COLUMN_NAME AS referenced_column, " +
		"r.UPDATE_RULE AS update_rule, r.DELETE_RULE AS delete_rule " +
		"FROM information_schema.TABLE_CONSTRAINTS tc " +
		"JOIN information_schema.KEY_COLUMN_USAGE k ON k.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA " +
		"AND k.CONSTRAINT_NAME = tc.CONSTRAINT_NAME AND k.TABLE_NAME = tc.TABLE_NAME " +
		"LEFT JOIN information_schema.REFERENTIAL_CONSTRAINTS r ON r.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA " +
		"AND r.CONSTRAINT_NAME = tc.CONSTRAINT_NAME " +
		"WHERE tc.TABLE_SCHEMA = ? AND tc.TABLE_NAME = ?"

	backReferencesQuery = "SELECT TABLE_NAME AS table_name, COLUMN_NAME AS column_name, " +
		"REFERENCED_COLUMN_NAME AS referenced_column " +
		"FROM information_schema.KEY_COLUMN_USAGE " +
		"WHERE REFERENCED_TABLE_SCHEMA = ? AND REFERENCED_TABLE_NAME = ?"
)

func newSchema() Schema {
	return Schema{
		Indexes:        map[string]string{},
		References:     map[string]Reference{},
		BackReferences: map[string][]BackReference{},
	}
}

// Column returns a column by name.
func (s Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns column names in ordinal order.
func (s Schema) ColumnNames() (out []string) {
	for _, c := range s.Columns {
		out = append(out, c.Name)
	}
	return
}

// AutoIncrement reports whether the store generates values of the column.
func (c Column) AutoIncrement() bool {
	return strings.Contains(strings.ToLower(c.Extra), "auto_increment")
}

// Alias is the key a column's value has in fetched rows.
func (c Column) Alias() string {
	return ToCamel(c.Name)
}

// Reflect loads columns, indexes, primary key, references and
// back-references of the table from the store's information_schema and
// rebuilds the relationship map. A table that does not exist is not an
// error: the schema is left empty and Exists reports false.
func (t *Table) Reflect(ctx context.Context) error {
	if t.executor == nil {
		return ErrNoConnection
	}
	args := []interface{}{t.executor.StoreName(), t.FullName()}
	schema := newSchema()

	rows, err := t.query(ctx, columnsQuery, args)
	if err != nil {
		return fmt.Errorf("reflecting columns of %s: %w", t.FullName(), err)
	}
	positions := map[string]int{}
	for _, row := range rows {
		name := asString(row["column_name"])
		index := asString(row["index_name"])
		if i, ok := positions[name]; ok {
			if schema.Columns[i].Index == "" && index != "" {
				schema.Columns[i].Index = index
				schema.Indexes[name] = index
			}
			continue
		}
		column := Column{
			Name:      name,
			Nullable:  strings.EqualFold(asString(row["is_nullable"]), "YES"),
			Type:      asString(row["column_type"]),
			Extra:     asString(row["extra"]),
			Key:       asString(row["column_key"]),
			Index:     index,
			Charset:   asString(row["charset"]),
			Collation: asString(row["collation"]),
		}
		if v := row["column_default"]; v != nil {
			d := asString(v)
			column.Default = &d
		}
		if index != "" {
			schema.Indexes[name] = index
		}
		if column.Key == "PRI" && schema.PrimaryKey == "" {
			schema.PrimaryKey = name
		}
		positions[name] = len(schema.Columns)
		schema.Columns = append(schema.Columns, column)
	}
	if len(schema.Columns) == 0 {
		t.setSchema(schema, false)
		return nil
	}

	rows, err = t.query(ctx, constraintsQuery, args)
	if err != nil {
		return fmt.Errorf("reflecting references of %s: %w", t.FullName(), err)
	}
	for _, row := range rows {
		column := asString(row["column_name"])
		constraint := asString(row["constraint_name"])
		switch asString(row["constraint_type"]) {
		case "PRIMARY KEY":
			schema.PrimaryKey = column
		case "FOREIGN KEY":
			if constraint == "PRIMARY" {
				continue
			}
			schema.References[column] = Reference{
				Constraint:   constraint,
				Column:       column,
				TargetSchema: asString(row["referenced_schema"]),
				TargetTable:  asString(row["referenced_table"]),
				TargetColumn: asString(row["referenced_column"]),
				OnDelete:     asString(row["delete_rule"]),
				OnUpdate:     asString(row["update_rule"]),
			}
		}
	}

	rows, err = t.query(ctx, backReferencesQuery, args)
	if err != nil {
		return fmt.Errorf("reflecting back-references of %s: %w", t.FullName(), err)
	}
	for _, row := range rows {
		column := asString(row["referenced_column"])
		schema.BackReferences[column] = append(schema.BackReferences[column], BackReference{
			SourceTable:  asString(row["table_name"]),
			SourceColumn: asString(row["column_name"]),
		})
	}

	t.setSchema(schema, true)
	return nil
}

func (t *Table) setSchema(schema Schema, exists bool) {
	t.schema = schema
	t.exists = exists
	t.reflected = true
	t.related = nil
	t.relationships = resolveRelationships(schema, t.prefix())
	t.columnByKey = map[string]string{}
	for _, c := range schema.Columns {
		t.columnByKey[c.Name] = c.Name
		if alias := c.Alias(); alias != c.Name {
			if _, taken := t.columnByKey[alias]; !taken {
				t.columnByKey[alias] = c.Name
			}
		}
	}
}

// columnName maps a column name or its camelCase alias to the column name.
// Keys that are not known are returned unchanged.
func (t *Table) columnName(key string) string {
	if c, ok := t.columnByKey[key]; ok {
		return c
	}
	return key
}

// hasColumn reports whether key names a reflected column (or its alias).
func (t *Table) hasColumn(key string) bool {
	_, ok := t.columnByKey[key]
	return ok
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}
