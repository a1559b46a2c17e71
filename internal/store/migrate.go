package store

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/sqlite/*.sql
var sqliteMigrations embed.FS

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// Migrate runs all pending goose migrations for the given dialect against
// an already-open *sql.DB. Grounded on the teacher's
// internal/infrastructure/migrations.Manager, which also drives goose
// programmatically rather than shelling out to the CLI.
func Migrate(db *sql.DB, dialect string) error {
	goose.SetBaseFS(nil)

	var sub fs.FS
	var err error
	switch dialect {
	case "sqlite3", "sqlite":
		sub, err = fs.Sub(sqliteMigrations, "migrations/sqlite")
		dialect = "sqlite3"
	case "postgres":
		sub, err = fs.Sub(postgresMigrations, "migrations/postgres")
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("preparing migration filesystem: %w", err)
	}

	goose.SetBaseFS(sub)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
