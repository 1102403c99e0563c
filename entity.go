package dbscribe

import (
	"encoding/json"
)

type (
	// Entity is a value fetched rows are populated into and rows to write
	// are read from.
	Entity interface {
		// Attributes returns the attribute values keyed by column name or
		// alias. The primary key is left out unless withPrimaryKey is set.
		Attributes(withPrimaryKey bool) Attributes
		// Populate assigns fetched attributes.
		Populate(Attributes) error
	}

	// PreSaver is called before an entity is written by Insert, Update or
	// Upsert.
	PreSaver interface {
		PreSave(Operation) error
	}

	// PostFetcher is called after an entity has been populated.
	PostFetcher interface {
		PostFetch() error
	}

	// TableBinder receives the Table an entity was created by.
	TableBinder interface {
		BindTable(*Table)
	}

	// RelationshipSetter receives the relationship map of the table an
	// entity was created by.
	RelationshipSetter interface {
		SetRelationships(Relationships)
	}

	// ModelWithTableName names the table of an entity. See ToTableName.
	ModelWithTableName interface {
		TableName() string
	}

	// Record is the Entity used when a Table has no model.
	Record struct {
		values        Attributes
		table         *Table
		relationships Relationships
	}
)

var (
	_ Entity             = (*Record)(nil)
	_ TableBinder        = (*Record)(nil)
	_ RelationshipSetter = (*Record)(nil)
)

// NewRecord creates a Record holding a copy of values.
func NewRecord(values Attributes) *Record {
	r := &Record{}
	r.Populate(values)
	return r
}

func (r *Record) Attributes(withPrimaryKey bool) Attributes {
	out := Attributes{}
	var pk string
	if r.table != nil {
		pk = r.table.PrimaryKey()
	}
	for key, value := range r.values {
		if !withPrimaryKey && pk != "" && (key == pk || key == ToCamel(pk)) {
			continue
		}
		out[key] = value
	}
	return out
}

func (r *Record) Populate(values Attributes) error {
	if r.values == nil {
		r.values = Attributes{}
	}
	for key, value := range values {
		r.values[key] = value
	}
	return nil
}

// Get returns a value by key, falling back to the camelCase form of key.
func (r *Record) Get(key string) interface{} {
	if v, ok := r.values[key]; ok {
		return v
	}
	return r.values[ToCamel(key)]
}

// Set assigns a value. An existing camelCase key is updated in place.
func (r *Record) Set(key string, value interface{}) {
	if r.values == nil {
		r.values = Attributes{}
	}
	if _, ok := r.values[key]; !ok {
		if camel := ToCamel(key); camel != key {
			if _, ok := r.values[camel]; ok {
				key = camel
			}
		}
	}
	r.values[key] = value
}

// Table returns the Table the record was fetched by, if any.
func (r *Record) Table() *Table {
	return r.table
}

func (r *Record) BindTable(t *Table) {
	r.table = t
}

func (r *Record) SetRelationships(relationships Relationships) {
	r.relationships = relationships
}

func (r *Record) Relationships() Relationships {
	return r.relationships
}

func (r *Record) MarshalJSON() ([]byte, error) {
	if r.values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r.values)
}
