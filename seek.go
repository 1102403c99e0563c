package dbscribe

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// SeekOptions tune Result.SeekJoin. Zero values fall back to the
// JoinOptions the table was joined with.
type SeekOptions struct {
	OrderBy []string
	Desc    bool
	Start   int
	Count   int
	// Model is the entity type matches are populated into. The joined
	// table's model (Record by default) is used if nil.
	Model Entity
}

// SeekJoin searches the joined rows of table kept by a select with Join,
// without querying the store. A buffered row matches if, for every key of
// match, its value equals the row's value (or is a slice containing it).
// Matches are populated into entities, deduplicated by the joined table's
// primary key, ordered and paginated.
//
//	result, _ := users.Select().Join("orders").Execute(ctx)
//	for i, user := range result.Rows() {
//		orders, _ := result.SeekJoin("orders", dbscribe.Attributes{"user_id": user["id"]})
//		...
//	}
//
// Nothing is returned if the table was not joined or no row matches.
func (r *Result) SeekJoin(table string, match Attributes, opts ...SeekOptions) ([]Entity, error) {
	joinOptions, ok := r.joined[table]
	if !ok || r.joins.Len() == 0 {
		return nil, nil
	}
	var o SeekOptions
	if len(opts) > 0 {
		o = opts[0]
	}
	if len(o.OrderBy) == 0 {
		o.OrderBy = joinOptions.OrderBy
		o.Desc = o.Desc || joinOptions.Desc
	}
	if o.Start == 0 {
		o.Start = joinOptions.Start
	}
	if o.Count == 0 {
		o.Count = joinOptions.Count
	}
	if o.Start < 0 {
		o.Start = 0
	}

	var target *Table
	if r.table != nil {
		target, _ = r.table.Related(context.Background(), table)
	}
	var pkAlias string
	if target != nil && target.PrimaryKey() != "" {
		pkAlias = ToCamel(target.PrimaryKey())
	}

	prefix := table + "_"
	var found []Attributes
	seen := map[string]bool{}
	for _, row := range r.joins.rows {
		attrs := Attributes{}
		for key, value := range row.Fields {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			column := strings.TrimPrefix(key, prefix)
			if target != nil && target.exists && !target.hasColumn(column) {
				continue
			}
			attrs[ToCamel(column)] = value
		}
		if allNil(attrs) || !matches(attrs, match) {
			continue
		}
		if pk, ok := attrs[pkAlias]; ok && pkAlias != "" {
			key := fmt.Sprint(pk)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		found = append(found, attrs)
	}

	if len(o.OrderBy) > 0 {
		sort.SliceStable(found, func(i, j int) bool {
			for _, key := range o.OrderBy {
				a, b := seekValue(found[i], key), seekValue(found[j], key)
				if a == b {
					continue
				}
				if o.Desc {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	if o.Start >= len(found) {
		return nil, nil
	}
	found = found[o.Start:]
	if o.Count > 0 && o.Count < len(found) {
		found = found[:o.Count]
	}

	out := make([]Entity, 0, len(found))
	for _, attrs := range found {
		var e Entity
		var err error
		switch {
		case o.Model != nil:
			e, err = modelTable(o.Model, target).NewEntity()
			if err == nil {
				err = populate(e, attrs)
			}
		case target != nil:
			e, err = r.entity(attrs, target)
		default:
			e = NewRecord(attrs)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// matches compares by string form so values scanned from the store match
// values given by the caller regardless of their Go type.
func matches(attrs, match Attributes) bool {
	for key, want := range match {
		got := seekValue(attrs, key)
		if isList(want) {
			hit := false
			for _, v := range listValues(want) {
				if asString(v) == got {
					hit = true
					break
				}
			}
			if !hit {
				return false
			}
			continue
		}
		if asString(want) != got {
			return false
		}
	}
	return true
}

func seekValue(attrs Attributes, key string) string {
	v, ok := attrs[key]
	if !ok {
		v = attrs[ToCamel(key)]
	}
	return asString(v)
}

func allNil(attrs Attributes) bool {
	for _, v := range attrs {
		if v != nil {
			return false
		}
	}
	return true
}

// modelTable returns a copy of t using model as its model.
func modelTable(model Entity, t *Table) *Table {
	if t == nil {
		return NewTable(ToTableName(model), model)
	}
	c := *t
	c.related = nil
	return c.SetModel(model)
}

func populate(e Entity, attrs Attributes) error {
	if err := e.Populate(attrs); err != nil {
		return err
	}
	if p, ok := e.(PostFetcher); ok {
		return p.PostFetch()
	}
	return nil
}
