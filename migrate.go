package eventlog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	migratelib "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// applyMigrations declares the three es_* tables and their indexes
// idempotently, per the normative schema in the spec. golang-migrate
// needs a database/sql connection; the pgx stdlib adapter gives it one
// against the same DSN the pool was built from, so schema setup and
// runtime query traffic still ultimately talk to the same database
// through the same driver family.
func applyMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return &StoreError{Op: "Setup", Err: fmt.Errorf("open migration connection: %w", err)}
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return &StoreError{Op: "Setup", Err: fmt.Errorf("create migration driver: %w", err)}
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return &StoreError{Op: "Setup", Err: fmt.Errorf("load embedded migrations: %w", err)}
	}

	m, err := migratelib.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return &StoreError{Op: "Setup", Err: fmt.Errorf("build migrator: %w", err)}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migratelib.ErrNoChange) {
		return &StoreError{Op: "Setup", Err: fmt.Errorf("apply migrations: %w", err)}
	}

	return nil
}
