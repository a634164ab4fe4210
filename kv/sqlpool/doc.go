// Package sqlpool implements kv.Pool on a relational database.
//
// A lease is one exclusive *sql.Conn taken from database/sql's pool. Each
// session is stored as a row in session_records plus one row per attribute in
// session_fields. Record expiry is a millisecond timestamp checked on every
// read; a Sweeper deletes expired rows on a cron schedule.
//
// Supported drivers are "sqlite3" (github.com/mattn/go-sqlite3) and "postgres"
// (github.com/lib/pq). The schema is applied with golang-migrate from
// migrations embedded in this package.
//
// # Hash emulation
//
// Records follow Redis hash semantics: a record without fields does not exist,
// deleting the last field removes the record, and a write to an expired record
// starts from an empty hash.
package sqlpool
