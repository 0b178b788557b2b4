package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Dialect selects placeholder and DDL flavour for the SQL route cache.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// Initialize the route_cache schema.
func InitSchema(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	boolType := "INTEGER"
	if dialect == DialectPostgres {
		boolType = "BOOLEAN"
	}

	// Timestamps are unix milliseconds so both dialects round-trip them identically.
	createRouteCacheQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS route_cache (
		route_key TEXT PRIMARY KEY,
		geometry TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		duration_min DOUBLE PRECISION NOT NULL,
		is_fallback %s NOT NULL,
		use_count INTEGER NOT NULL,
		created_at BIGINT NOT NULL,
		last_used BIGINT NOT NULL
	);
	`, boolType)

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_cache_last_used
	ON route_cache(last_used);
	`

	statements := []string{
		createRouteCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
