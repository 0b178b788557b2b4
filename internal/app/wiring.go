// Package app builds the concrete adapters selected by configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"transport-route-service/internal/adapters/cache"
	"transport-route-service/internal/adapters/routing"
	"transport-route-service/internal/config"
	"transport-route-service/internal/platform/db"
	"transport-route-service/internal/ports"
)

// OpenPersistentCache is OpenCache for tools that operate on stored entries.
// The memory backend is refused since a fresh process has nothing stored in it.
func OpenPersistentCache(ctx context.Context, cfg config.CacheConfig) (ports.RouteCache, func() error, error) {
	if cfg.Backend == "memory" {
		return nil, nil, fmt.Errorf("open cache: backend %q holds no persistent entries", cfg.Backend)
	}
	return OpenCache(ctx, cfg)
}

// OpenCache opens the configured cache backend. The returned close func releases it.
func OpenCache(ctx context.Context, cfg config.CacheConfig) (ports.RouteCache, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryRouteCache(), noop, nil

	case "sqlite":
		conn, err := db.OpenSQLite(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, conn, cache.DialectSQLite); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return cache.NewSqliteRouteCache(conn), conn.Close, nil

	case "postgres":
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := cache.InitSchema(ctx, conn, cache.DialectPostgres); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		return cache.NewSQLRouteCache(conn), conn.Close, nil

	case "redis":
		c, err := cache.NewRedisRouteCacheFromURL(cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, err
		}
		return c, c.Close, nil

	default:
		return nil, nil, fmt.Errorf("open cache: unknown backend %q", cfg.Backend)
	}
}

// OpenSQL opens the SQL database behind a sqlite or postgres cache backend.
func OpenSQL(ctx context.Context, cfg config.CacheConfig) (*sql.DB, cache.Dialect, error) {
	switch cfg.Backend {
	case "sqlite":
		conn, err := db.OpenSQLite(ctx, cfg.DBPath)
		return conn, cache.DialectSQLite, err
	case "postgres":
		conn, err := db.Open(ctx, cfg.DatabaseURL)
		return conn, cache.DialectPostgres, err
	default:
		return nil, 0, fmt.Errorf("open sql: backend %q is not a SQL backend", cfg.Backend)
	}
}

// NetworkProvider builds the configured routing provider, or nil for "none".
func NetworkProvider(cfg config.RoutingConfig) (ports.RouteProvider, error) {
	switch cfg.Provider {
	case "osrm":
		return routing.NewOSRMProvider(routing.Options{
			BaseURL:           cfg.OSRMBaseURL,
			Profile:           cfg.OSRMProfile,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}), nil
	case "ors":
		p, err := routing.NewORSProvider(routing.Options{
			BaseURL:           cfg.ORSBaseURL,
			Profile:           cfg.ORSProfile,
			APIKey:            cfg.ORSAPIKey,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("network provider: unknown provider %q", cfg.Provider)
	}
}
