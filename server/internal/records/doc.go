// Package records is the record source behind the snapshot: a database/sql
// backed reader that returns up to N rows of one maintrack table in primary
// key order.
//
// Open(cfg) selects the driver:
//
//	sqlite  : github.com/mattn/go-sqlite3 (dsn is a file path)
//	mysql   : github.com/go-sql-driver/mysql (add parseTime=true to the dsn)
//	postgres: github.com/lib/pq
//
// Rows(ctx, table, limit) returns the typed types.Rows variant for the table.
// EnsureSchema creates the tables for sqlite deployments; the other drivers
// expect a migrated database.
package records
