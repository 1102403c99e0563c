package dbscribe

import (
	"context"
	"regexp"
	"sort"
	"strings"
)

type (
	// ColumnDefinition describes a column to add or the new definition of
	// an altered column.
	ColumnDefinition struct {
		Name      string
		Type      string
		Nullable  bool
		Default   *string
		Extra     string
		Charset   string
		Collation string
		After     string // place the new column after this one
	}

	// ColumnChange is an altered column.
	ColumnChange struct {
		From string
		To   ColumnDefinition
	}

	// IndexDefinition is an index over one column.
	IndexDefinition struct {
		Column string
		Name   string
	}

	// SchemaChanges are the pending changes of a table's schema. They are
	// kept until SchemaSQL renders them; query builders never touch them.
	SchemaChanges struct {
		NewColumns        []ColumnDefinition
		AlteredColumns    []ColumnChange
		DroppedColumns    []string
		NewReferences     []Reference
		DroppedReferences []string // constraint names
		NewIndexes        []IndexDefinition
		DroppedIndexes    []string // index names
		PrimaryKey        string
	}
)

var literalDefault = regexp.MustCompile(`(?i)^(NULL|CURRENT_TIMESTAMP(\(\d*\))?|-?\d+(\.\d+)?)$`)

// Empty reports whether nothing is pending.
func (c SchemaChanges) Empty() bool {
	return len(c.NewColumns) == 0 && len(c.AlteredColumns) == 0 && len(c.DroppedColumns) == 0 &&
		len(c.NewReferences) == 0 && len(c.DroppedReferences) == 0 &&
		len(c.NewIndexes) == 0 && len(c.DroppedIndexes) == 0 && c.PrimaryKey == ""
}

func (t *Table) pending() *SchemaChanges {
	if t.changes == nil {
		t.changes = &SchemaChanges{}
	}
	return t.changes
}

// PendingChanges returns a copy of the pending schema changes.
func (t *Table) PendingChanges() SchemaChanges {
	if t.changes == nil {
		return SchemaChanges{}
	}
	c := *t.changes
	c.NewColumns = append([]ColumnDefinition{}, c.NewColumns...)
	c.AlteredColumns = append([]ColumnChange{}, c.AlteredColumns...)
	c.DroppedColumns = append([]string{}, c.DroppedColumns...)
	c.NewReferences = append([]Reference{}, c.NewReferences...)
	c.DroppedReferences = append([]string{}, c.DroppedReferences...)
	c.NewIndexes = append([]IndexDefinition{}, c.NewIndexes...)
	c.DroppedIndexes = append([]string{}, c.DroppedIndexes...)
	return c
}

// AddColumn queues a new column.
func (t *Table) AddColumn(def ColumnDefinition) *Table {
	c := t.pending()
	c.NewColumns = append(c.NewColumns, def)
	return t
}

// AlterColumn queues a new definition for an existing column. def.Name may
// differ from name to rename the column.
func (t *Table) AlterColumn(name string, def ColumnDefinition) *Table {
	if def.Name == "" {
		def.Name = name
	}
	c := t.pending()
	c.AlteredColumns = append(c.AlteredColumns, ColumnChange{From: name, To: def})
	return t
}

// DropColumn queues dropping a column, after the foreign key it holds if
// any.
func (t *Table) DropColumn(name string) *Table {
	t.dropReferenceOn(name)
	c := t.pending()
	c.DroppedColumns = append(c.DroppedColumns, name)
	return t
}

// AddReference queues a foreign key from column to targetColumn of
// targetTable (without prefix). rules are the ON DELETE and ON UPDATE
// actions, e.g. "CASCADE", "SET NULL".
func (t *Table) AddReference(column, targetTable, targetColumn string, rules ...string) *Table {
	ref := Reference{
		Constraint:   "fk_" + t.FullName() + "_" + column,
		Column:       column,
		TargetTable:  t.prefix() + targetTable,
		TargetColumn: targetColumn,
	}
	if len(rules) > 0 {
		ref.OnDelete = rules[0]
	}
	if len(rules) > 1 {
		ref.OnUpdate = rules[1]
	}
	c := t.pending()
	c.NewReferences = append(c.NewReferences, ref)
	return t
}

// DropReference queues dropping the foreign key held by column.
func (t *Table) DropReference(column string) *Table {
	t.dropReferenceOn(column)
	return t
}

func (t *Table) dropReferenceOn(column string) {
	c := t.pending()
	kept := c.NewReferences[:0]
	for _, ref := range c.NewReferences {
		if ref.Column != column {
			kept = append(kept, ref)
		}
	}
	c.NewReferences = kept
	if ref, ok := t.schema.References[column]; ok {
		for _, name := range c.DroppedReferences {
			if name == ref.Constraint {
				return
			}
		}
		c.DroppedReferences = append(c.DroppedReferences, ref.Constraint)
	}
}

// AddIndex queues an index over column, named idx_<column> unless a name
// is given.
func (t *Table) AddIndex(column string, name ...string) *Table {
	index := IndexDefinition{Column: column, Name: "idx_" + column}
	if len(name) > 0 && name[0] != "" {
		index.Name = name[0]
	}
	c := t.pending()
	c.NewIndexes = append(c.NewIndexes, index)
	return t
}

// DropIndex queues dropping the index over column, after the foreign key
// the column holds if any.
func (t *Table) DropIndex(column string) *Table {
	t.dropReferenceOn(column)
	c := t.pending()
	name, ok := t.schema.Indexes[column]
	if !ok {
		name = "idx_" + column
	}
	kept := c.NewIndexes[:0]
	for _, index := range c.NewIndexes {
		if index.Column != column {
			kept = append(kept, index)
		}
	}
	c.NewIndexes = kept
	c.DroppedIndexes = append(c.DroppedIndexes, name)
	return t
}

// SetPrimaryKey queues a new primary key.
func (t *Table) SetPrimaryKey(column string) *Table {
	t.pending().PrimaryKey = column
	return t
}

// SchemaSQL renders the pending changes and clears them. A table bound to
// an Executor is reflected first if it has not been yet. A table that does
// not exist gets one CREATE TABLE statement; otherwise foreign keys are
// dropped first, then everything else is changed in one ALTER TABLE. The
// statements are not run. On error the pending changes are kept.
func (t *Table) SchemaSQL(ctx context.Context) ([]string, error) {
	if t.executor != nil {
		if err := t.ready(ctx); err != nil {
			return nil, err
		}
	}
	c := t.PendingChanges()
	t.changes = nil
	if c.Empty() {
		return nil, nil
	}
	if !t.exists {
		var defs []string
		for _, col := range c.NewColumns {
			defs = append(defs, columnDefinitionSQL(col))
		}
		if c.PrimaryKey != "" {
			defs = append(defs, "PRIMARY KEY ("+quoteIdent(c.PrimaryKey)+")")
		}
		for _, index := range c.NewIndexes {
			defs = append(defs, "KEY "+quoteIdent(index.Name)+" ("+quoteIdent(index.Column)+")")
		}
		for _, ref := range c.NewReferences {
			defs = append(defs, referenceSQL(ref))
		}
		return []string{createTableSQL(t.FullName(), defs)}, nil
	}

	var out []string
	table := quoteIdent(t.FullName())
	if len(c.DroppedReferences) > 0 {
		var specs []string
		for _, name := range c.DroppedReferences {
			specs = append(specs, "DROP FOREIGN KEY "+quoteIdent(name))
		}
		out = append(out, "ALTER TABLE "+table+" "+strings.Join(specs, ", "))
	}
	var specs []string
	for _, col := range c.NewColumns {
		spec := "ADD COLUMN " + columnDefinitionSQL(col)
		if col.After != "" {
			spec += " AFTER " + quoteIdent(col.After)
		}
		specs = append(specs, spec)
	}
	for _, change := range c.AlteredColumns {
		specs = append(specs, "CHANGE COLUMN "+quoteIdent(change.From)+" "+columnDefinitionSQL(change.To))
	}
	for _, index := range c.DroppedIndexes {
		specs = append(specs, "DROP INDEX "+quoteIdent(index))
	}
	for _, name := range c.DroppedColumns {
		specs = append(specs, "DROP COLUMN "+quoteIdent(name))
	}
	if c.PrimaryKey != "" {
		if t.schema.PrimaryKey != "" {
			specs = append(specs, "DROP PRIMARY KEY")
		}
		specs = append(specs, "ADD PRIMARY KEY ("+quoteIdent(c.PrimaryKey)+")")
	}
	for _, index := range c.NewIndexes {
		specs = append(specs, "ADD INDEX "+quoteIdent(index.Name)+" ("+quoteIdent(index.Column)+")")
	}
	for _, ref := range c.NewReferences {
		specs = append(specs, "ADD "+referenceSQL(ref))
	}
	if len(specs) > 0 {
		out = append(out, "ALTER TABLE "+table+" "+strings.Join(specs, ", "))
	}
	return out, nil
}

// CreateSQL renders a CREATE TABLE statement from the reflected schema.
// It is empty if the table does not exist.
func (t *Table) CreateSQL() string {
	if !t.exists {
		return ""
	}
	var defs []string
	for _, col := range t.schema.Columns {
		defs = append(defs, columnDefinitionSQL(ColumnDefinition{
			Name:      col.Name,
			Type:      col.Type,
			Nullable:  col.Nullable,
			Default:   col.Default,
			Extra:     col.Extra,
			Charset:   col.Charset,
			Collation: col.Collation,
		}))
	}
	if t.schema.PrimaryKey != "" {
		defs = append(defs, "PRIMARY KEY ("+quoteIdent(t.schema.PrimaryKey)+")")
	}
	indexes := map[string][]string{}
	unique := map[string]bool{}
	for _, col := range t.schema.Columns {
		name := t.schema.Indexes[col.Name]
		if name == "" || name == "PRIMARY" {
			continue
		}
		indexes[name] = append(indexes[name], quoteIdent(col.Name))
		if col.Key == "UNI" {
			unique[name] = true
		}
	}
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := "KEY "
		if unique[name] {
			kind = "UNIQUE KEY "
		}
		defs = append(defs, kind+quoteIdent(name)+" ("+strings.Join(indexes[name], ", ")+")")
	}
	columns := make([]string, 0, len(t.schema.References))
	for column := range t.schema.References {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	for _, column := range columns {
		defs = append(defs, referenceSQL(t.schema.References[column]))
	}
	return createTableSQL(t.FullName(), defs)
}

// DropSQL renders a DROP TABLE IF EXISTS statement.
func (t *Table) DropSQL() string {
	return "DROP TABLE IF EXISTS " + quoteIdent(t.FullName())
}

func createTableSQL(table string, defs []string) string {
	return "CREATE TABLE " + quoteIdent(table) + " (\n\t" + strings.Join(defs, ",\n\t") + "\n)"
}

func columnDefinitionSQL(def ColumnDefinition) string {
	sql := quoteIdent(def.Name) + " " + def.Type
	if def.Charset != "" {
		sql += " CHARACTER SET " + def.Charset
	}
	if def.Collation != "" {
		sql += " COLLATE " + def.Collation
	}
	if def.Nullable {
		sql += " NULL"
	} else {
		sql += " NOT NULL"
	}
	if def.Default != nil {
		sql += " DEFAULT " + defaultLiteral(*def.Default)
	}
	if def.Extra != "" && !strings.EqualFold(def.Extra, "DEFAULT_GENERATED") {
		sql += " " + strings.TrimSpace(strings.ReplaceAll(def.Extra, "DEFAULT_GENERATED", ""))
	}
	return sql
}

func referenceSQL(ref Reference) string {
	sql := "CONSTRAINT " + quoteIdent(ref.Constraint) + " FOREIGN KEY (" + quoteIdent(ref.Column) +
		") REFERENCES " + quoteIdent(ref.TargetTable) + " (" + quoteIdent(ref.TargetColumn) + ")"
	if ref.OnDelete != "" {
		sql += " ON DELETE " + ref.OnDelete
	}
	if ref.OnUpdate != "" {
		sql += " ON UPDATE " + ref.OnUpdate
	}
	return sql
}

// defaultLiteral quotes a default value unless it is NULL, a number or
// CURRENT_TIMESTAMP.
func defaultLiteral(value string) string {
	if literalDefault.MatchString(value) {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
