package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver
	_ "modernc.org/sqlite"             // registers "sqlite" driver
)

// Open opens the storage backend for the given profile and returns a ready,
// migrated Store. Grounded on the teacher's internal/storage.NewStorage
// profile switch.
func Open(ctx context.Context, profile, sqlitePath, databaseURL string) (Store, error) {
	switch profile {
	case "lite", "":
		return openSQLite(ctx, sqlitePath)
	case "standard":
		return openPostgres(ctx, databaseURL)
	default:
		return nil, fmt.Errorf("unknown storage profile %q", profile)
	}
}

func openSQLite(ctx context.Context, path string) (Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1) // WAL mode, single-writer discipline matching the teacher's sqlite backend
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	if err := Migrate(db, "sqlite3"); err != nil {
		return nil, fmt.Errorf("migrating sqlite database: %w", err)
	}
	return newSQLStore(db, "sqlite3"), nil
}

func openPostgres(ctx context.Context, databaseURL string) (Store, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("standard profile requires a database URL")
	}
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	db.SetMaxOpenConns(20)
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres database: %w", err)
	}
	if err := Migrate(db, "postgres"); err != nil {
		return nil, fmt.Errorf("migrating postgres database: %w", err)
	}
	return newSQLStore(db, "postgres"), nil
}
