package dbscribe

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestUpsert(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	fake.queued = [][]Row{{{"id": "1", "name": "Old", "email": "a@example.com", "parentId": nil}}}
	fake.affected = 1
	var generator IDGenerator = func() string { return "gen-1" }
	users := NewTable("users", fake, generator)

	result, err := users.Upsert(ctx, []string{"email"},
		Attributes{"email": "a@example.com", "name": "A"},
		Attributes{"email": "b@example.com", "name": "B"},
	)
	if err != nil {
		t.Fatal(err)
	}
	if result.Operation != OpInsert {
		t.Errorf("Operation = %v, want %v", result.Operation, OpInsert)
	}

	want := []fakeStatement{
		{
			"SELECT " + usersColumns + " FROM `p_users` WHERE (`p_users`.`email` = ?) OR (`p_users`.`email` = ?)",
			[]interface{}{"a@example.com", "b@example.com"},
		},
		{
			"UPDATE `p_users` SET `name` = ? WHERE `email` = ?",
			[]interface{}{"A", "a@example.com"},
		},
		{
			"INSERT INTO `p_users` (`id`, `name`, `email`) VALUES (?, ?, ?)",
			[]interface{}{"gen-1", "B", "b@example.com"},
		},
	}
	if got := fake.data(); !reflect.DeepEqual(got, want) {
		t.Errorf("statements = %v, want %v", got, want)
	}
}

func TestUpsertAutoIncrement(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	orders := NewTable("orders", fake, IDGenerator(func() string { return "unused" }))

	if _, err := orders.Upsert(ctx, nil, Attributes{"id": nil, "user_id": "u1", "status": "new"}); err != nil {
		t.Fatal(err)
	}
	data := fake.data()
	if len(data) != 2 {
		t.Fatalf("statements = %d, want 2", len(data))
	}
	if want := "INSERT INTO `p_orders` (`user_id`, `status`) VALUES (?, ?)"; data[1].sql != want {
		t.Errorf("insert = %q, want %q", data[1].sql, want)
	}
}

func TestUpsertNothingToSet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	fake.queued = [][]Row{{{"id": "t1", "label": "go"}}}
	tags := NewTable("tags", fake)

	result, err := tags.Upsert(ctx, nil, Attributes{"id": "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Operation != OpUpsert || result.RowsAffected != 0 {
		t.Errorf("Upsert() = %+v", result)
	}
	if got := len(fake.data()); got != 1 {
		t.Errorf("statements = %d, want only the select", got)
	}
}

func TestUpsertErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()

	if _, err := NewTable("logs", fake).Upsert(ctx, nil, Attributes{"level": "x"}); !errors.Is(err, ErrNoPrimaryKey) {
		t.Errorf("Upsert() error = %v, want %v", err, ErrNoPrimaryKey)
	}
	if _, err := NewTable("users", fake).Upsert(ctx, []string{"email"}, Attributes{"name": "A"}); !errors.Is(err, ErrShape) {
		t.Errorf("Upsert() error = %v, want %v", err, ErrShape)
	}
	result, err := NewTable("ghosts", fake).Upsert(ctx, nil, Attributes{"id": 1})
	if err != nil || !result.Missing {
		t.Errorf("Upsert() = %+v, %v, want missing", result, err)
	}
	if len(fake.data()) != 0 {
		t.Errorf("statements = %v, want none", fake.data())
	}
}
