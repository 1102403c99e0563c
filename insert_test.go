package dbscribe

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// signup stamps its name before it is written.
type signup struct {
	Record
}

func (s *signup) PreSave(op Operation) error {
	if op == OpInsert {
		s.Set("name", "stamped")
	}
	return nil
}

func TestInsert(t *testing.T) {
	t.Parallel()
	fake := newFakeExecutor()
	users := NewTable("users", fake)
	orders := NewTable("orders", fake)
	tags := NewTable("tags", fake)

	s := &signup{}
	s.Populate(Attributes{"id": "9", "name": "x"})

	tests := []struct {
		name     string
		build    func() *InsertQuery
		wantSQL  string
		wantArgs []interface{}
	}{
		{
			name: "empty values are DEFAULT",
			build: func() *InsertQuery {
				return users.Insert(Attributes{"id": "1", "name": "Alice"}, Attributes{"id": "2", "name": ""})
			},
			wantSQL:  "INSERT INTO `p_users` (`id`, `name`) VALUES (?, ?), (?, DEFAULT)",
			wantArgs: []interface{}{"1", "Alice", "2"},
		},
		{
			name: "column left out when empty in every row",
			build: func() *InsertQuery {
				return users.Insert(Attributes{"id": "1", "email": nil}, Attributes{"id": "2", "email": ""})
			},
			wantSQL:  "INSERT INTO `p_users` (`id`) VALUES (?), (?)",
			wantArgs: []interface{}{"1", "2"},
		},
		{
			name: "aliases and unknown keys",
			build: func() *InsertQuery {
				return users.Insert(map[string]interface{}{"parentId": "0", "id": "1", "nickname": "al"})
			},
			wantSQL:  "INSERT INTO `p_users` (`id`, `parent_id`) VALUES (?, ?)",
			wantArgs: []interface{}{"1", "0"},
		},
		{
			name:     "entity",
			build:    func() *InsertQuery { return users.Insert(s) },
			wantSQL:  "INSERT INTO `p_users` (`id`, `name`) VALUES (?, ?)",
			wantArgs: []interface{}{"9", "stamped"},
		},
		{
			name: "raw expression",
			build: func() *InsertQuery {
				return orders.Insert(Attributes{"user_id": "u1", "status": Raw("'new'")})
			},
			wantSQL:  "INSERT INTO `p_orders` (`user_id`, `status`) VALUES (?, 'new')",
			wantArgs: []interface{}{"u1"},
		},
		{
			name:     "ignore",
			build:    func() *InsertQuery { return tags.Insert(Attributes{"id": "t1", "label": "go"}).Ignore() },
			wantSQL:  "INSERT IGNORE INTO `p_tags` (`id`, `label`) VALUES (?, ?)",
			wantArgs: []interface{}{"t1", "go"},
		},
		{
			name: "on duplicate key update",
			build: func() *InsertQuery {
				return users.Insert(Attributes{"id": "1", "name": "A", "email": "a@example.com"}).OnDuplicateKeyUpdate()
			},
			wantSQL: "INSERT INTO `p_users` (`id`, `name`, `email`) VALUES (?, ?, ?) " +
				"ON DUPLICATE KEY UPDATE `name` = VALUES(`name`), `email` = VALUES(`email`)",
			wantArgs: []interface{}{"1", "A", "a@example.com"},
		},
		{
			name: "on duplicate key update columns",
			build: func() *InsertQuery {
				return users.Insert(Attributes{"id": "1", "name": "A", "email": "a@example.com"}).OnDuplicateKeyUpdate("email")
			},
			wantSQL: "INSERT INTO `p_users` (`id`, `name`, `email`) VALUES (?, ?, ?) " +
				"ON DUPLICATE KEY UPDATE `email` = VALUES(`email`)",
			wantArgs: []interface{}{"1", "A", "a@example.com"},
		},
		{
			name: "on duplicate key update all except",
			build: func() *InsertQuery {
				return users.Insert(Attributes{"id": "1", "name": "A", "email": "a@example.com"}).
					Tap(func(q *InsertQuery) *InsertQuery { return q.OnDuplicateKeyUpdateAllExcept("email") })
			},
			wantSQL: "INSERT INTO `p_users` (`id`, `name`, `email`) VALUES (?, ?, ?) " +
				"ON DUPLICATE KEY UPDATE `name` = VALUES(`name`)",
			wantArgs: []interface{}{"1", "A", "a@example.com"},
		},
		{
			name: "on duplicate key with nothing to update",
			build: func() *InsertQuery {
				return tags.Insert(Attributes{"id": "t1"}).OnDuplicateKeyUpdate()
			},
			wantSQL:  "INSERT INTO `p_tags` (`id`) VALUES (?) ON DUPLICATE KEY UPDATE `id` = VALUES(`id`)",
			wantArgs: []interface{}{"t1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := tt.build().Build(context.Background())
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if sql != tt.wantSQL {
				t.Errorf("Build() sql = %q, want %q", sql, tt.wantSQL)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("Build() args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestInsertShapeErrors(t *testing.T) {
	t.Parallel()
	users := NewTable("users", newFakeExecutor())

	tests := []struct {
		name string
		rows []interface{}
	}{
		{"no rows", nil},
		{"different keys", []interface{}{Attributes{"id": "1"}, Attributes{"name": "x"}}},
		{"empty row", []interface{}{Attributes{}}},
		{"only unknown keys", []interface{}{Attributes{"nickname": "al"}}},
		{"every value empty", []interface{}{Attributes{"name": ""}, Attributes{"name": nil}}},
		{"not a row", []interface{}{42}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := users.Insert(tt.rows...).Build(context.Background())
			if !errors.Is(err, ErrShape) {
				t.Errorf("Build() error = %v, want %v", err, ErrShape)
			}
		})
	}
}

func TestInsertExecute(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	fake.affected = 2
	fake.lastID = 9
	orders := NewTable("orders", fake)

	result, err := orders.Insert(
		Attributes{"user_id": "u1", "status": "new"},
		Attributes{"user_id": "u2", "status": "new"},
	).Execute(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if result.Operation != OpInsert || result.RowsAffected != 2 || result.LastInsertID != 9 {
		t.Errorf("Execute() = %+v", result)
	}
	data := fake.data()
	if len(data) != 1 {
		t.Fatalf("statements = %d, want 1", len(data))
	}
	if want := []interface{}{"u1", "new", "u2", "new"}; !reflect.DeepEqual(data[0].args, want) {
		t.Errorf("args = %v, want %v", data[0].args, want)
	}

	errDown := errors.New("down")
	fake.execErr = errDown
	if _, err := orders.Insert(Attributes{"user_id": "u1", "status": "new"}).Execute(ctx); !errors.Is(err, errDown) {
		t.Errorf("Execute() error = %v, want %v", err, errDown)
	}
}

func TestInsertMissingTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	ghosts := NewTable("ghosts", fake)

	result, err := ghosts.Insert(Attributes{"id": 1}).Execute(ctx)
	if err != nil || !result.Missing {
		t.Errorf("Execute() = %+v, %v, want missing", result, err)
	}
	if _, _, err := ghosts.Insert(Attributes{"id": 1}).Build(ctx); !errors.Is(err, ErrNoTable) {
		t.Errorf("Build() error = %v, want %v", err, ErrNoTable)
	}
	if got := ghosts.Insert(Attributes{"id": 1}).String(); got != "" {
		t.Errorf("String() = %q, want empty", got)
	}
	if len(fake.data()) != 0 {
		t.Errorf("statements = %v, want none", fake.data())
	}
}
