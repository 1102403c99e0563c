package dbscribe

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/gopsql/logger"
)

type account struct {
	Record
	fetched bool
}

func (a *account) PostFetch() error {
	a.fetched = true
	return nil
}

type invoice struct{}

func (invoice) TableName() string { return "billing_invoices" }

func (invoice) Attributes(bool) Attributes { return nil }
func (invoice) Populate(Attributes) error  { return nil }

func TestReflect(t *testing.T) {
	t.Parallel()
	users := NewTable("users", newFakeExecutor())
	if err := users.Reflect(context.Background()); err != nil {
		t.Fatalf("Reflect() error = %v", err)
	}
	if !users.Exists() {
		t.Fatal("Exists() = false, want true")
	}
	schema := users.Schema()
	if got, want := schema.ColumnNames(), []string{"id", "name", "email", "parent_id"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ColumnNames() = %v, want %v", got, want)
	}
	if got := users.PrimaryKey(); got != "id" {
		t.Errorf("PrimaryKey() = %q, want %q", got, "id")
	}
	wantIndexes := map[string]string{"id": "PRIMARY", "email": "email", "parent_id": "fk_users_parent"}
	if !reflect.DeepEqual(schema.Indexes, wantIndexes) {
		t.Errorf("Indexes = %v, want %v", schema.Indexes, wantIndexes)
	}
	wantRef := Reference{
		Constraint:   "fk_users_parent",
		Column:       "parent_id",
		TargetSchema: "shop",
		TargetTable:  "p_users",
		TargetColumn: "id",
		OnDelete:     "SET NULL",
		OnUpdate:     "CASCADE",
	}
	if got := schema.References["parent_id"]; got != wantRef {
		t.Errorf("References[parent_id] = %+v, want %+v", got, wantRef)
	}
	if _, ok := schema.References["id"]; ok {
		t.Error("primary key must not be a reference")
	}
	wantBack := []BackReference{{"p_orders", "user_id"}, {"p_users", "parent_id"}}
	if got := schema.BackReferences["id"]; !reflect.DeepEqual(got, wantBack) {
		t.Errorf("BackReferences[id] = %v, want %v", got, wantBack)
	}
	email, _ := schema.Column("email")
	if !email.Nullable || email.Key != "UNI" {
		t.Errorf("Column(email) = %+v", email)
	}
}

func TestReflectMissingTable(t *testing.T) {
	t.Parallel()
	ghosts := NewTable("ghosts", newFakeExecutor())
	if err := ghosts.Reflect(context.Background()); err != nil {
		t.Fatalf("Reflect() error = %v", err)
	}
	if ghosts.Exists() {
		t.Error("Exists() = true, want false")
	}
	schema := ghosts.Schema()
	if len(schema.Columns) != 0 || len(schema.References) != 0 || len(schema.BackReferences) != 0 || schema.PrimaryKey != "" {
		t.Errorf("Schema() = %+v, want empty", schema)
	}
}

func TestReflectNoConnection(t *testing.T) {
	t.Parallel()
	if err := NewTable("users").Reflect(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("Reflect() error = %v, want %v", err, ErrNoConnection)
	}
	_, err := NewTable("users").Select().Execute(context.Background())
	if !errors.Is(err, ErrNoConnection) {
		t.Errorf("Execute() error = %v, want %v", err, ErrNoConnection)
	}
}

func TestReflectFirstIndexWins(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{
		store: "shop",
		catalog: map[string]fakeTable{
			"items": {
				columns: []Row{
					catalogColumn("id", "int", "PRI", "PRIMARY", false),
					catalogColumn("sku", "varchar(20)", "MUL", "", false),
					catalogColumn("sku", "varchar(20)", "MUL", "idx_sku", false),
					catalogColumn("sku", "varchar(20)", "MUL", "idx_sku_name", false),
				},
			},
		},
	}
	items, err := LoadTable(context.Background(), "items", fake)
	if err != nil {
		t.Fatalf("LoadTable() error = %v", err)
	}
	schema := items.Schema()
	if len(schema.Columns) != 2 {
		t.Fatalf("len(Columns) = %d, want 2", len(schema.Columns))
	}
	if got := schema.Indexes["sku"]; got != "idx_sku" {
		t.Errorf("Indexes[sku] = %q, want %q", got, "idx_sku")
	}
	if got := items.PrimaryKey(); got != "id" {
		t.Errorf("PrimaryKey() = %q, want %q from column key", got, "id")
	}
}

func TestTableNames(t *testing.T) {
	t.Parallel()
	fake := newFakeExecutor()
	users := NewTable("users", fake)
	if got := users.FullName(); got != "p_users" {
		t.Errorf("FullName() = %q, want %q", got, "p_users")
	}
	if got := users.Name(); got != "users" {
		t.Errorf("Name() = %q, want %q", got, "users")
	}
	if got := NewTableFor(invoice{}).Name(); got != "billing_invoices" {
		t.Errorf("NewTableFor().Name() = %q, want %q", got, "billing_invoices")
	}
	if got := NewTable("users").FullName(); got != "users" {
		t.Errorf("FullName() without executor = %q, want %q", got, "users")
	}
}

func TestRelated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	fake := newFakeExecutor()
	users, err := LoadTable(ctx, "users", fake)
	if err != nil {
		t.Fatal(err)
	}
	orders, err := users.Related(ctx, "orders")
	if err != nil {
		t.Fatal(err)
	}
	if !orders.Exists() || orders.PrimaryKey() != "id" {
		t.Errorf("Related(orders) = %v", orders)
	}
	n := len(fake.statements)
	again, _ := users.Related(ctx, "orders")
	if again != orders || len(fake.statements) != n {
		t.Error("Related() must be cached")
	}
	if self, _ := users.Related(ctx, "users"); self != users {
		t.Error("Related() of its own name must return the table")
	}

	if err := users.Reflect(ctx); err != nil {
		t.Fatal(err)
	}
	if fresh, _ := users.Related(ctx, "orders"); fresh == orders {
		t.Error("Related() must not be cached across reflections")
	}
}

func TestNewEntity(t *testing.T) {
	t.Parallel()
	users := NewTable("users", newFakeExecutor())
	e, err := users.NewEntity()
	if err != nil {
		t.Fatal(err)
	}
	r, ok := e.(*Record)
	if !ok {
		t.Fatalf("NewEntity() = %T, want *Record", e)
	}
	if r.Table() != users {
		t.Error("Record must be bound to its table")
	}

	users.SetModel(&account{})
	e, err = users.NewEntity()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*account); !ok {
		t.Errorf("NewEntity() = %T, want *account", e)
	}
}

func TestSetOptions(t *testing.T) {
	t.Parallel()
	fake := newFakeExecutor()
	var generator IDGenerator = func() string { return "fixed" }
	users := NewTable("users", fake, generator, &account{})
	if users.Executor() != fake {
		t.Error("Executor() not set")
	}
	if got := users.newID(); got != "fixed" {
		t.Errorf("newID() = %q, want %q", got, "fixed")
	}
	if users.modelType != reflect.TypeOf(account{}) {
		t.Errorf("modelType = %v", users.modelType)
	}
	if users.Quiet().logger != nil {
		t.Error("Quiet() must drop the logger")
	}
}

type fakeLogger struct {
	logger.Logger
	lines [][]interface{}
}

func (l *fakeLogger) Debug(args ...interface{}) {
	l.lines = append(l.lines, args)
}

func TestLogging(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	log := &fakeLogger{}
	users, err := LoadTable(ctx, "users", newFakeExecutor(), log)
	if err != nil {
		t.Fatal(err)
	}
	if len(log.lines) != 3 {
		t.Errorf("reflection logged %d statements, want 3", len(log.lines))
	}

	if _, err := users.Select(Attributes{"name": "a"}).Execute(ctx); err != nil {
		t.Fatal(err)
	}
	last := log.lines[len(log.lines)-1]
	if sql, _ := last[0].(string); !strings.HasPrefix(sql, "SELECT `p_users`.`id`") {
		t.Errorf("logged %q, want the select statement", last[0])
	}
	if want := []interface{}{"a"}; len(last) != 2 || !reflect.DeepEqual(last[1], want) {
		t.Errorf("logged args %v, want %v", last[1:], want)
	}

	n := len(log.lines)
	if _, err := users.Quiet().Select().Execute(ctx); err != nil {
		t.Fatal(err)
	}
	if len(log.lines) != n {
		t.Error("Quiet() table still logs")
	}
}
