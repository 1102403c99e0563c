// Package dbscribe builds and runs MySQL statements for one table at a time
// from the table's own catalog.
//
// # Overview
//
// A Table reflects its columns, primary key, indexes, foreign keys and the
// foreign keys of other tables pointing at it from information_schema, and
// derives a relationship map from them. Query builders use that map to join
// related tables without hand-written ON clauses, and map the flat rows
// back into one value per primary key, keeping the joined rows aside for
// SeekJoin.
//
// Key features include:
//   - Schema reflection of columns, indexes, references and back-references
//   - Relationships tagged Pull (this table holds the key) or Push
//   - SELECT, COUNT, DISTINCT, INSERT, UPDATE, DELETE and upsert builders
//   - Joins derived from relationships, with collision-free column aliases
//   - Results as raw rows, JSON or entities, with in-memory SeekJoin
//   - Mass assignment protection via Permit and Filter
//   - Pending schema changes rendered as CREATE TABLE or ALTER TABLE
//
// # Basic Usage
//
// Bind a table to an Executor, such as the one of the mysql package or a
// Connection over github.com/gopsql/db:
//
//	conn, err := mysql.Open(ctx, cfg)
//	users, err := dbscribe.LoadTable(ctx, "users", conn)
//
//	// Insert rows
//	users.Insert(
//		dbscribe.Attributes{"id": "1", "name": "Alice"},
//		dbscribe.Attributes{"id": "2", "name": "Bob"},
//	).MustExecute(ctx)
//
//	// Find rows: fields of a row are ANDed, rows are ORed
//	result := users.Select(
//		dbscribe.Attributes{"name": "Alice"},
//		dbscribe.Attributes{"name": "Bob"},
//	).OrderBy("name").MustExecute(ctx)
//
//	// Update by primary key
//	users.Update(nil, dbscribe.Attributes{"id": "1", "name": "Carol"}).MustExecute(ctx)
//
//	// Delete
//	users.Delete(dbscribe.Attributes{"id": "2"}).MustExecute(ctx)
//
// Builders compose nothing until Build or Execute is called, and each entry
// point returns a new builder, so nothing carries over from one statement
// to the next.
//
// # Statements
//
// Identifiers are quoted with backticks and every value is bound with a
// positional ? placeholder. Fetched columns are aliased with their
// camelCase names (first_name AS firstName); joined columns with
// "<table>_<column>".
//
// # Joins
//
//	result, err := users.Select().
//		Join("orders", dbscribe.JoinOptions{Direction: dbscribe.Push}).
//		Execute(ctx)
//	for _, user := range result.Rows() {
//		orders, _ := result.SeekJoin("orders", dbscribe.Attributes{"user_id": user["id"]})
//		...
//	}
//
// Joining a table that shares no relationship returns ErrNoRelationship.
//
// # Entities
//
// Rows are populated into the table's model, an Entity, or into Record if
// none is set. Entities can implement PreSaver, PostFetcher, TableBinder
// and RelationshipSetter to take part in the lifecycle.
//
// # Missing Tables
//
// A table absent from the store is not an error: Execute returns a Result
// with Missing set, and no rows.
//
// # Logging
//
// Every statement is logged before it runs if a logger.Logger is set:
//
//	users.SetLogger(logger.StandardLogger)
package dbscribe
