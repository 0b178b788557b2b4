package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/platform/obs"
)

// SQLRouteCache is a SQL-backed RouteCache for Postgres (pgx stdlib driver) or SQLite.
//
// Geometry is stored polyline-encoded. Every mutation is a single statement, so
// the replacement rule holds under concurrent stores without explicit locking.
type SQLRouteCache struct {
	DB      *sql.DB
	Dialect Dialect
	now     func() time.Time
}

// NewSQLRouteCache returns a Postgres-backed cache.
func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db, Dialect: DialectPostgres, now: time.Now}
}

const returningColumns = `geometry, distance_km, duration_min, is_fallback, use_count, created_at, last_used`

// Fetch a cached route and record the hit.
func (s *SQLRouteCache) Lookup(ctx context.Context, key string) (_ domain.CacheEntry, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Lookup")(&err)

	if s.DB == nil {
		return domain.CacheEntry{}, false, errors.New("route cache: db is nil")
	}

	if key == "" {
		return domain.CacheEntry{}, false, errors.New("lookup route cache: key must not be empty")
	}

	q := s.rebind(`
	UPDATE route_cache
	SET use_count = use_count + 1,
		last_used = ?
	WHERE route_key = ?
	RETURNING ` + returningColumns + `;
	`)

	row := s.DB.QueryRowContext(ctx, q, s.now().UnixMilli(), key)
	entry, err := scanEntry(key, row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("lookup route cache key=%q: %w", key, err)
	}

	return entry, true, nil
}

// Store a route result, applying the fallback replacement rule in the upsert itself.
func (s *SQLRouteCache) Store(ctx context.Context, key string, result domain.RouteResult) (_ domain.CacheEntry, err error) {
	defer obs.Time(ctx, "route.cache.Store")(&err)

	if s.DB == nil {
		return domain.CacheEntry{}, errors.New("route cache: db is nil")
	}

	if key == "" {
		return domain.CacheEntry{}, errors.New("insert route cache: key must not be empty")
	}

	// CASE keeps the stored columns when a fallback would displace a network route.
	keep := `NOT route_cache.is_fallback AND excluded.is_fallback`
	q := s.rebind(`
	INSERT INTO route_cache (
		route_key,
		geometry,
		distance_km,
		duration_min,
		is_fallback,
		use_count,
		created_at,
		last_used
	)
	VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	ON CONFLICT (route_key) DO UPDATE
	SET geometry = CASE WHEN ` + keep + ` THEN route_cache.geometry ELSE excluded.geometry END,
		distance_km = CASE WHEN ` + keep + ` THEN route_cache.distance_km ELSE excluded.distance_km END,
		duration_min = CASE WHEN ` + keep + ` THEN route_cache.duration_min ELSE excluded.duration_min END,
		is_fallback = CASE WHEN ` + keep + ` THEN route_cache.is_fallback ELSE excluded.is_fallback END,
		use_count = route_cache.use_count + 1,
		last_used = excluded.last_used
	RETURNING ` + returningColumns + `;
	`)

	now := s.now().UnixMilli()
	row := s.DB.QueryRowContext(ctx, q,
		key,
		geo.Encode(result.Geometry),
		result.DistanceKm,
		result.DurationMinutes,
		result.IsFallback,
		now,
		now,
	)

	entry, err := scanEntry(key, row)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	return entry, nil
}

// Remove entries whose last use is older than olderThan.
func (s *SQLRouteCache) Prune(ctx context.Context, olderThan time.Time) (_ int, err error) {
	defer obs.Time(ctx, "route.cache.Prune")(&err)

	if s.DB == nil {
		return 0, errors.New("route cache: db is nil")
	}

	res, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM route_cache WHERE last_used < ?;`), olderThan.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune route cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune route cache: rows affected: %w", err)
	}

	return int(n), nil
}

func (s *SQLRouteCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	if s.DB == nil {
		return domain.CacheStats{}, errors.New("route cache: db is nil")
	}

	q := `
	SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN is_fallback THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(use_count), 0)
	FROM route_cache;
	`

	var stats domain.CacheStats
	if err := s.DB.QueryRowContext(ctx, q).Scan(&stats.TotalEntries, &stats.FallbackEntries, &stats.TotalUsage); err != nil {
		return domain.CacheStats{}, fmt.Errorf("route cache stats: %w", err)
	}
	stats.NetworkEntries = stats.TotalEntries - stats.FallbackEntries

	return stats, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *SQLRouteCache) rebind(q string) string {
	if s.Dialect != DialectPostgres {
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func scanEntry(key string, row *sql.Row) (domain.CacheEntry, error) {
	var (
		encoded             string
		distance, duration  float64
		isFallback          bool
		useCount            int
		createdAt, lastUsed int64
	)

	if err := row.Scan(&encoded, &distance, &duration, &isFallback, &useCount, &createdAt, &lastUsed); err != nil {
		return domain.CacheEntry{}, err
	}

	geometry, err := geo.Decode(encoded)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("decode stored geometry: %w", err)
	}

	return domain.CacheEntry{
		Key: key,
		Result: domain.RouteResult{
			Geometry:        geometry,
			DistanceKm:      distance,
			DurationMinutes: duration,
			IsFallback:      isFallback,
		},
		UseCount:  useCount,
		CreatedAt: time.UnixMilli(createdAt),
		LastUsed:  time.UnixMilli(lastUsed),
	}, nil
}
