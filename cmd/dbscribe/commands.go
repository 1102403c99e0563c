package main

import (
	"fmt"
	"strings"

	dbscribe "github.com/ezra-obiwale/DBScribe"
	"github.com/spf13/cobra"
)

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tables, err := a.conn.Tables(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([]dbscribe.Attributes, len(tables))
			for i, name := range tables {
				rows[i] = dbscribe.Attributes{"table": name}
			}
			return render(cmd.OutOrStdout(), a.cfg.Output, []string{"table"}, rows)
		},
	}
}

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect TABLE",
		Short: "Show the columns and relationships of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTable(cmd, args[0])
			if err != nil {
				return err
			}
			return renderInspection(cmd.OutOrStdout(), a.cfg.Output, t)
		},
	}
}

func newSchemaCmd(a *app) *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "schema TABLE",
		Short: "Print the CREATE TABLE statement of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.loadTable(cmd, args[0])
			if err != nil {
				return err
			}
			if drop {
				fmt.Fprintln(cmd.OutOrStdout(), t.DropSQL()+";")
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.CreateSQL()+";")
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "print a DROP TABLE statement first")
	return cmd
}

// queryFlags are the flags shared by select and count.
type queryFlags struct {
	where []string
	like  []string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "column=value criterion, repeatable; value NULL matches NULL")
	cmd.Flags().StringArrayVar(&f.like, "like", nil, "column=pattern LIKE criterion, repeatable")
}

func (f *queryFlags) apply(q *dbscribe.SelectQuery) (*dbscribe.SelectQuery, error) {
	for _, l := range f.like {
		column, pattern, ok := strings.Cut(l, "=")
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid --like %q: want column=pattern", l)
		}
		q = q.Like(column, pattern)
	}
	return q, nil
}

func newSelectCmd(a *app) *cobra.Command {
	var (
		qf     queryFlags
		joins  []string
		order  []string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "select TABLE",
		Short: "Fetch rows of a table",
		Example: `  dbscribe select users --where status=active --order name --limit 10
  dbscribe select users --join orders -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseWhere(qf.where)
			if err != nil {
				return err
			}
			t, err := a.loadTable(cmd, args[0])
			if err != nil {
				return err
			}
			q, err := qf.apply(t.Select(criteria).As(dbscribe.ShapeRaw))
			if err != nil {
				return err
			}
			for _, name := range joins {
				q = q.Join(name)
			}
			for _, o := range order {
				column, direction := parseOrder(o)
				q = q.OrderBy(column, direction)
			}
			if limit > 0 {
				q = q.Limit(limit)
			}
			if offset > 0 {
				q = q.Offset(offset)
			}
			result, err := q.Execute(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := render(out, a.cfg.Output, aliases(t), result.Rows()); err != nil {
				return err
			}
			if len(joins) > 0 {
				return renderJoins(out, a.cfg.Output, result.Joins())
			}
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringArrayVarP(&joins, "join", "j", nil, "related table to join, repeatable")
	cmd.Flags().StringArrayVar(&order, "order", nil, "column to order by, with an optional :desc suffix, repeatable")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of rows")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip, needs --limit")
	return cmd
}

func newCountCmd(a *app) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "count TABLE",
		Short: "Count rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := parseWhere(qf.where)
			if err != nil {
				return err
			}
			t, err := a.loadTable(cmd, args[0])
			if err != nil {
				return err
			}
			q, err := qf.apply(t.Count(criteria))
			if err != nil {
				return err
			}
			result, err := q.Execute(cmd.Context())
			if err != nil {
				return err
			}
			rows := []dbscribe.Attributes{{"table": t.Name(), "count": result.Count()}}
			return render(cmd.OutOrStdout(), a.cfg.Output, []string{"table", "count"}, rows)
		},
	}
	qf.register(cmd)
	return cmd
}

// loadTable reflects a table and fails if it does not exist.
func (a *app) loadTable(cmd *cobra.Command, name string) (*dbscribe.Table, error) {
	t, err := dbscribe.LoadTable(cmd.Context(), name, append([]interface{}{a.conn}, a.tableOptions()...)...)
	if err != nil {
		return nil, err
	}
	if !t.Exists() {
		return nil, fmt.Errorf("table %q does not exist in %s", t.FullName(), a.conn.StoreName())
	}
	return t, nil
}

// parseWhere turns column=value pairs into criteria. A value of NULL
// matches NULL.
func parseWhere(pairs []string) (dbscribe.Attributes, error) {
	criteria := dbscribe.Attributes{}
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid --where %q: want column=value", pair)
		}
		if strings.EqualFold(value, "null") {
			criteria[column] = nil
			continue
		}
		criteria[column] = value
	}
	return criteria, nil
}

// parseOrder splits "name:desc" into column and direction.
func parseOrder(s string) (column, direction string) {
	column, direction, _ = strings.Cut(s, ":")
	direction = strings.ToUpper(direction)
	if direction != "DESC" {
		direction = "ASC"
	}
	return
}

// aliases returns the keys of fetched rows in column order.
func aliases(t *dbscribe.Table) []string {
	columns := t.Schema().Columns
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Alias()
	}
	return out
}
