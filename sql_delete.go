package dbscribe

import (
	"context"
)

type (
	// DeleteQuery represents a DELETE statement builder. Create instances
	// using Table.Delete.
	DeleteQuery struct {
		SQL
		sqlModifiers
		criteria []interface{}
	}
)

// Delete creates a DELETE statement. Each criteria row (Attributes, map or
// Entity) matches when all of its non-nil fields match; rows are ORed. No
// criteria and no Where deletes every row of the table.
//
//	orders.Delete(dbscribe.Attributes{"user_id": 1, "status": "cancelled"}).MustExecute(ctx)
//	// DELETE FROM `orders` WHERE `status` = ? AND `user_id` = ?
//
// A criteria row without any non-nil field is a shape error, so that it
// cannot widen the statement to the whole table.
func (t *Table) Delete(criteria ...interface{}) *DeleteQuery {
	return &DeleteQuery{
		SQL:      SQL{table: t},
		criteria: criteria,
	}
}

// Adds a condition, ANDed with the criteria. Use ? for parameters.
func (s *DeleteQuery) Where(condition string, args ...interface{}) *DeleteQuery {
	s.where(condition, args)
	return s
}

// OrWhere is like Where but ORs the condition.
func (s *DeleteQuery) OrWhere(condition string, args ...interface{}) *DeleteQuery {
	s.orWhere(condition, args)
	return s
}

// Like adds a "column LIKE pattern" condition.
func (s *DeleteQuery) Like(column, pattern string) *DeleteQuery {
	s.like(column, pattern)
	return s
}

// In adds a "column IN (values)" condition. No values match no row.
func (s *DeleteQuery) In(column string, values ...interface{}) *DeleteQuery {
	s.in(column, values)
	return s
}

// Adds an ORDER BY term. Direction is "ASC" (default) or "DESC".
func (s *DeleteQuery) OrderBy(column string, direction ...string) *DeleteQuery {
	s.order(column, direction)
	return s
}

// Adds LIMIT to the statement.
func (s *DeleteQuery) Limit(count int) *DeleteQuery {
	s.limit = count
	s.hasLimit = true
	return s
}

// Perform operations on the chain.
func (s *DeleteQuery) Tap(funcs ...func(*DeleteQuery) *DeleteQuery) *DeleteQuery {
	for i := range funcs {
		s = funcs[i](s)
	}
	return s
}

// String returns the statement, or an empty string if it cannot be built.
func (s *DeleteQuery) String() string {
	sql, _, err := s.Build(context.Background())
	if err != nil {
		return ""
	}
	return sql
}

// Build composes the statement.
func (s *DeleteQuery) Build(ctx context.Context) (string, []interface{}, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return "", nil, err
	}
	if !found {
		return "", nil, ErrNoTable
	}
	return s.build()
}

// MustExecute is like Execute but panics if the operation fails.
func (s *DeleteQuery) MustExecute(ctx context.Context) *Result {
	r, err := s.Execute(ctx)
	if err != nil {
		panic(err)
	}
	return r
}

// Execute runs the statement. If the table does not exist a Result with
// Missing set is returned.
func (s *DeleteQuery) Execute(ctx context.Context) (*Result, error) {
	found, err := s.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return &Result{Operation: OpDelete, Missing: true, table: s.table}, nil
	}
	sql, args, err := s.build()
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, OpDelete, sql, args)
}

func (s *DeleteQuery) build() (string, []interface{}, error) {
	rows, err := s.table.normalizeRows(s.criteria, true, OpDelete)
	if err != nil {
		return "", nil, err
	}
	criteria := criteriaToConditions(rows, s.qualify, true)
	for i, c := range criteria {
		if c.sql == "" {
			return "", nil, shapeError(s.table, "criteria row %d has no value", i)
		}
	}
	var conds []condition
	if where, args := conditionsToStr(criteria, "", s.qualify); where != "" {
		conds = append(conds, condition{connector: "AND", sql: where, args: args})
	}
	conds = append(conds, s.conditions...)

	var st statement
	st.write("DELETE FROM ").ident(s.table.FullName())
	where, args := conditionsToStr(conds, " WHERE ", s.qualify)
	st.write(where)
	st.args = append(st.args, args...)
	st.write(s.orderByStr(s.qualify), s.limitStr())
	return st.String(), st.args, nil
}
