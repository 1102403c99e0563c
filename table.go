package dbscribe

import (
	"context"
	"errors"
	"reflect"
	"strconv"

	"github.com/google/uuid"
	"github.com/gopsql/logger"
)

type (
	// Table is one table of the store. It is bound to an Executor, owns
	// the reflected schema (columns, primary key, indexes, references and
	// back-references) and the relationship map derived from it, and is
	// the entry point of every query builder.
	//
	// A Table is not safe for concurrent use.
	Table struct {
		name      string
		executor  Executor
		logger    logger.Logger
		modelType reflect.Type
		newID     IDGenerator

		reflected     bool
		exists        bool
		schema        Schema
		relationships Relationships
		columnByKey   map[string]string

		related map[string]*Table
		changes *SchemaChanges
	}

	// IDGenerator returns a new primary-key value for rows inserted by
	// Upsert without one. The default generates UUIDs.
	IDGenerator func() string

	// Operation is the kind of statement a query builder composes.
	Operation int
)

const (
	OpSelect Operation = iota + 1
	OpCount
	OpDistinct
	OpInsert
	OpUpdate
	OpDelete
	OpUpsert
)

var (
	ErrNoConnection   = errors.New("no connection")
	ErrShape          = errors.New("invalid row shape")
	ErrNoRelationship = errors.New("no relationship")
	ErrInvalidModel   = errors.New("model must implement Entity")
	ErrNoPrimaryKey   = errors.New("no primary key")
	ErrNoTable        = errors.New("table does not exist")
)

func (o Operation) String() string {
	switch o {
	case OpSelect:
		return "select"
	case OpCount:
		return "count"
	case OpDistinct:
		return "distinct"
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	case OpUpsert:
		return "upsert"
	}
	return "unknown"
}

// NewTable creates a Table by name (without prefix). No query is issued,
// see LoadTable or Reflect. Options can be an Executor, a logger.Logger, an
// Entity used as the model of fetched rows, or an IDGenerator.
func NewTable(name string, options ...interface{}) *Table {
	t := &Table{
		name:  name,
		newID: uuid.NewString,
	}
	t.SetOptions(options...)
	return t
}

// NewTableFor creates a Table for an entity, using ToTableName for its name
// and the entity as the model.
func NewTableFor(entity Entity, options ...interface{}) *Table {
	return NewTable(ToTableName(entity), append([]interface{}{entity}, options...)...)
}

// LoadTable is like NewTable but reflects the schema right away if an
// Executor is given.
func LoadTable(ctx context.Context, name string, options ...interface{}) (*Table, error) {
	t := NewTable(name, options...)
	if t.executor == nil {
		return t, nil
	}
	if err := t.Reflect(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t Table) String() string {
	return `table (name: "` + t.name + `") has ` +
		strconv.Itoa(len(t.schema.Columns)) + " columns"
}

// Name returns the table name without prefix.
func (t *Table) Name() string {
	return t.name
}

// FullName returns the table name as used in SQL, with the executor's
// table prefix.
func (t *Table) FullName() string {
	return t.prefix() + t.name
}

func (t *Table) prefix() string {
	if t.executor == nil {
		return ""
	}
	return t.executor.TablePrefix()
}

// Exists reports whether the last reflection found the table.
func (t *Table) Exists() bool {
	return t.exists
}

// Schema returns the reflected schema.
func (t *Table) Schema() Schema {
	return t.schema
}

// PrimaryKey returns the primary-key column, empty if there is none.
func (t *Table) PrimaryKey() string {
	return t.schema.PrimaryKey
}

// Relationships returns the relationship map computed at the last
// reflection.
func (t *Table) Relationships() Relationships {
	return t.relationships
}

// RelationshipsWith returns the relationships with another table.
func (t *Table) RelationshipsWith(table string) []Relationship {
	return t.relationships.With(table)
}

// SetOptions sets the executor (see SetExecutor), logger (see SetLogger),
// model (see SetModel) and/or IDGenerator.
func (t *Table) SetOptions(options ...interface{}) *Table {
	for _, option := range options {
		switch o := option.(type) {
		case Executor:
			t.SetExecutor(o)
		case logger.Logger:
			t.SetLogger(o)
		case IDGenerator:
			t.newID = o
		case Entity:
			t.SetModel(o)
		}
	}
	return t
}

// Executor returns the executor of the Table.
func (t *Table) Executor() Executor {
	return t.executor
}

// SetExecutor binds the Table to an executor. Reflected schema is kept
// until the next Reflect.
func (t *Table) SetExecutor(executor Executor) *Table {
	t.executor = executor
	t.related = nil
	return t
}

// SetLogger sets the logger every statement is written to before it is
// executed. Use logger.StandardLogger for Go's standard log package. No
// logger is used by default.
func (t *Table) SetLogger(logger logger.Logger) *Table {
	t.logger = logger
	return t
}

// SetModel sets the entity type fetched rows are populated into. A new
// value of the same type is created for every row.
func (t *Table) SetModel(model Entity) *Table {
	rt := reflect.TypeOf(model)
	if rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	t.modelType = rt
	return t
}

// Quiet returns a copy of the Table without logger.
func (t *Table) Quiet() *Table {
	c := *t
	c.logger = nil
	c.related = nil
	return &c
}

// NewEntity returns a new, empty instance of the model, bound to the
// Table. Record is used if no model is set.
func (t *Table) NewEntity() (Entity, error) {
	var e Entity
	if t.modelType == nil {
		e = &Record{}
	} else {
		var ok bool
		e, ok = reflect.New(t.modelType).Interface().(Entity)
		if !ok {
			return nil, ErrInvalidModel
		}
	}
	if b, ok := e.(TableBinder); ok {
		b.BindTable(t)
	}
	if s, ok := e.(RelationshipSetter); ok {
		s.SetRelationships(t.relationships)
	}
	return e, nil
}

// Related returns the Table for another table of the same store, reflected
// and cached. The Table itself is returned for its own name.
func (t *Table) Related(ctx context.Context, name string) (*Table, error) {
	if name == t.name {
		return t, nil
	}
	if r, ok := t.related[name]; ok {
		return r, nil
	}
	r := NewTable(name, t.executor)
	r.logger = t.logger
	if err := r.Reflect(ctx); err != nil {
		return nil, err
	}
	if t.related == nil {
		t.related = map[string]*Table{}
	}
	t.related[name] = r
	return r, nil
}

// ready checks the executor and reflects the schema once.
func (t *Table) ready(ctx context.Context) error {
	if t.executor == nil {
		return ErrNoConnection
	}
	if t.reflected {
		return nil
	}
	return t.Reflect(ctx)
}

func (t *Table) query(ctx context.Context, sql string, args []interface{}) ([]Row, error) {
	t.log(sql, args)
	return t.executor.Query(ctx, sql, args)
}

func (t *Table) exec(ctx context.Context, sql string, args []interface{}) (ExecResult, error) {
	t.log(sql, args)
	return t.executor.Exec(ctx, sql, args)
}

func (t *Table) log(sql string, args []interface{}) {
	if t.logger == nil {
		return
	}
	if len(args) == 0 {
		t.logger.Debug(sql)
		return
	}
	t.logger.Debug(sql, args)
}
