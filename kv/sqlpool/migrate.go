package sqlpool

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

const migrationsTable = "session_schema_migrations"

// Migrate applies the embedded schema for driver to the database at dsn.
// It opens and closes its own handle so the caller's pool keeps every
// connection.
func Migrate(driver, dsn string) error {
	d, err := dialectFor(driver)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("sqlpool: open for migration: %w", err)
	}

	var instance database.Driver
	switch d.name {
	case DriverSQLite:
		instance, err = sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
	case DriverPostgres:
		instance, err = postgres.WithInstance(db, &postgres.Config{MigrationsTable: migrationsTable})
	}
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("sqlpool: migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+d.name)
	if err != nil {
		_ = instance.Close()
		return fmt.Errorf("sqlpool: migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, d.name, instance)
	if err != nil {
		_ = src.Close()
		_ = instance.Close()
		return fmt.Errorf("sqlpool: migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sqlpool: migrate up: %w", err)
	}
	return nil
}
