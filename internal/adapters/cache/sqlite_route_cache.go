package cache

import (
	"database/sql"
	"time"
)

// NewSqliteRouteCache returns a SQLite-backed cache. The schema must exist; see InitSchema.
func NewSqliteRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db, Dialect: DialectSQLite, now: time.Now}
}
