package dbscribe

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestMapRows(t *testing.T) {
	t.Parallel()
	users := loadTable(t, "users")
	rows := []Row{
		{"id": "1", "name": "A", "orders_id": int64(1)},
		{"id": "1", "name": "A", "orders_id": int64(2)},
		{"id": nil, "name": "no key"},
		{"id": nil, "name": "no key"},
		{"id": "2", "name": "B", "orders_id": nil},
	}

	got, buffer := users.mapRows(rows, true)
	want := []Attributes{
		{"id": "1", "name": "A"},
		{"id": nil, "name": "no key"},
		{"id": nil, "name": "no key"},
		{"id": "2", "name": "B"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mapRows() = %v, want %v", got, want)
	}
	wantJoins := []JoinRow{
		{Owner: 0, Fields: Attributes{"orders_id": int64(1)}},
		{Owner: 0, Fields: Attributes{"orders_id": int64(2)}},
		{Owner: 3, Fields: Attributes{"orders_id": nil}},
	}
	if !reflect.DeepEqual(buffer.Rows(), wantJoins) {
		t.Errorf("JoinBuffer.Rows() = %v, want %v", buffer.Rows(), wantJoins)
	}

	flat, buffer := users.mapRows(rows[:1], false)
	if buffer != nil || buffer.Len() != 0 {
		t.Errorf("JoinBuffer = %v, want nil", buffer)
	}
	if _, ok := flat[0]["orders_id"]; !ok {
		t.Error("without joins every field is kept")
	}
}

func TestResultJSON(t *testing.T) {
	t.Parallel()
	empty := &Result{}
	if j, _ := empty.JSON(); string(j) != "[]" {
		t.Errorf("JSON() = %s, want []", j)
	}
	r := &Result{rows: []Attributes{{"id": 1, "firstName": "A"}}}
	if j, _ := r.JSON(); string(j) != `[{"firstName":"A","id":1}]` {
		t.Errorf("JSON() = %s", j)
	}
}

func TestEntitiesOf(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	fake.queued = [][]Row{
		{{"id": "1", "name": "A", "email": nil, "parentId": nil}},
		{{"id": "1", "name": "A", "email": nil, "parentId": nil}},
	}
	users := NewTable("users", fake).SetModel(&account{})

	accounts, err := EntitiesOf[*account](users.Select().MustExecute(ctx))
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 || !accounts[0].fetched || accounts[0].Get("name") != "A" {
		t.Errorf("EntitiesOf() = %#v", accounts)
	}
	if accounts[0].Table() != users {
		t.Error("entity must be bound to its table")
	}
	if got := accounts[0].Relationships().Tables(); !reflect.DeepEqual(got, []string{"orders", "users"}) {
		t.Errorf("Relationships().Tables() = %v", got)
	}

	_, err = EntitiesOf[*Record](users.Select().MustExecute(ctx))
	if !errors.Is(err, ErrInvalidModel) {
		t.Errorf("EntitiesOf() error = %v, want %v", err, ErrInvalidModel)
	}
}

func TestResultColumn(t *testing.T) {
	t.Parallel()
	r := &Result{rows: []Attributes{{"parentId": "x"}, {"parent_id": "y"}, {}}}
	if got, want := r.Column("parent_id"), []interface{}{"x", "y", nil}; !reflect.DeepEqual(got, want) {
		t.Errorf("Column() = %v, want %v", got, want)
	}
}

func TestToInt64(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   interface{}
		want int64
	}{
		{int64(3), 3},
		{3, 3},
		{uint64(3), 3},
		{float64(3), 3},
		{[]byte("42"), 42},
		{"7", 7},
		{"x", 0},
		{nil, 0},
	}
	for _, tt := range tests {
		if got := toInt64(tt.in); got != tt.want {
			t.Errorf("toInt64(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestShapeString(t *testing.T) {
	t.Parallel()
	for shape, want := range map[Shape]string{ShapeModel: "model", ShapeRaw: "raw", ShapeJSON: "json"} {
		if got := shape.String(); got != want {
			t.Errorf("Shape(%d).String() = %q, want %q", shape, got, want)
		}
	}
}
