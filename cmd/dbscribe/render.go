package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	dbscribe "github.com/ezra-obiwale/DBScribe"
	"github.com/ezra-obiwale/DBScribe/internal/config"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

var heading = color.New(color.FgCyan, color.Bold)

type (
	columnView struct {
		Name     string  `json:"name" yaml:"name"`
		Type     string  `json:"type" yaml:"type"`
		Nullable bool    `json:"nullable" yaml:"nullable"`
		Default  *string `json:"default" yaml:"default"`
		Key      string  `json:"key,omitempty" yaml:"key,omitempty"`
		Extra    string  `json:"extra,omitempty" yaml:"extra,omitempty"`
		Index    string  `json:"index,omitempty" yaml:"index,omitempty"`
	}

	relationshipView struct {
		Table         string `json:"table" yaml:"table"`
		Column        string `json:"column" yaml:"column"`
		RelatedColumn string `json:"related_column" yaml:"related_column"`
		Direction     string `json:"direction" yaml:"direction"`
	}

	inspection struct {
		Table         string             `json:"table" yaml:"table"`
		PrimaryKey    string             `json:"primary_key" yaml:"primary_key"`
		Columns       []columnView       `json:"columns" yaml:"columns"`
		Relationships []relationshipView `json:"relationships" yaml:"relationships"`
	}

	joinView struct {
		Owner  int                 `json:"owner" yaml:"owner"`
		Fields dbscribe.Attributes `json:"fields" yaml:"fields"`
	}
)

func inspect(t *dbscribe.Table) inspection {
	schema := t.Schema()
	out := inspection{
		Table:         t.FullName(),
		PrimaryKey:    schema.PrimaryKey,
		Columns:       []columnView{},
		Relationships: []relationshipView{},
	}
	for _, c := range schema.Columns {
		out.Columns = append(out.Columns, columnView{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			Default:  c.Default,
			Key:      c.Key,
			Extra:    c.Extra,
			Index:    c.Index,
		})
	}
	relationships := t.Relationships()
	for _, name := range relationships.Tables() {
		for _, rel := range relationships.With(name) {
			out.Relationships = append(out.Relationships, relationshipView{
				Table:         name,
				Column:        rel.Column,
				RelatedColumn: rel.RelatedColumn,
				Direction:     rel.Direction.String(),
			})
		}
	}
	return out
}

// encode writes v as JSON or YAML. ok is false for the table format.
func encode(w io.Writer, format string, v interface{}) (ok bool, err error) {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

// render writes rows in the given format. The table format shows columns
// in order.
func render(w io.Writer, format string, columns []string, rows []dbscribe.Attributes) error {
	if rows == nil {
		rows = []dbscribe.Attributes{}
	}
	if ok, err := encode(w, format, rows); ok {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	writeTable(w, columns, len(rows), func(i int, column string) interface{} {
		return rows[i][column]
	})
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func renderInspection(w io.Writer, format string, t *dbscribe.Table) error {
	view := inspect(t)
	if ok, err := encode(w, format, view); ok {
		return err
	}

	heading.Fprintf(w, "%s", view.Table)
	if view.PrimaryKey != "" {
		fmt.Fprintf(w, " (primary key %s)", view.PrimaryKey)
	}
	fmt.Fprintln(w)
	writeTable(w, []string{"column", "type", "nullable", "default", "key", "extra", "index"}, len(view.Columns),
		func(i int, column string) interface{} {
			c := view.Columns[i]
			switch column {
			case "column":
				return c.Name
			case "type":
				return c.Type
			case "nullable":
				return c.Nullable
			case "default":
				if c.Default == nil {
					return nil
				}
				return *c.Default
			case "key":
				return c.Key
			case "extra":
				return c.Extra
			}
			return c.Index
		})

	heading.Fprintln(w, "Relationships")
	if len(view.Relationships) == 0 {
		fmt.Fprintln(w, "(none)")
		return nil
	}
	writeTable(w, []string{"table", "column", "related column", "direction"}, len(view.Relationships),
		func(i int, column string) interface{} {
			r := view.Relationships[i]
			switch column {
			case "table":
				return r.Table
			case "column":
				return r.Column
			case "related column":
				return r.RelatedColumn
			}
			return r.Direction
		})
	return nil
}

func renderJoins(w io.Writer, format string, joins *dbscribe.JoinBuffer) error {
	views := []joinView{}
	keys := map[string]bool{}
	for _, row := range joins.Rows() {
		views = append(views, joinView{Owner: row.Owner, Fields: row.Fields})
		for k := range row.Fields {
			keys[k] = true
		}
	}
	if ok, err := encode(w, format, views); ok {
		return err
	}

	heading.Fprintln(w, "Joined rows")
	if len(views) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}
	columns := []string{}
	for k := range keys {
		columns = append(columns, k)
	}
	sort.Strings(columns)
	writeTable(w, append([]string{"row"}, columns...), len(views), func(i int, column string) interface{} {
		if column == "row" {
			return views[i].Owner
		}
		return views[i].Fields[column]
	})
	return nil
}

func writeTable(w io.Writer, columns []string, n int, cell func(i int, column string) interface{}) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	// Headers are column aliases, shown as is.
	t.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	t.AppendHeader(header)
	for i := 0; i < n; i++ {
		row := make(table.Row, len(columns))
		for j, c := range columns {
			row[j] = formatValue(cell(i, c))
		}
		t.AppendRow(row)
	}
	t.Render()
}

func formatValue(v interface{}) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}
