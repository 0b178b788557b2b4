package ports

import (
	"context"
	"time"

	"transport-route-service/internal/domain"
)

// Port: content-addressable store of resolved routes, keyed by domain.RouteKey.
//
// Implementations must make Store atomic per key and apply the replacement rule:
// a network result replaces a stored fallback, a fallback never replaces a stored
// network result, otherwise the latest store wins. Lookup hits and stores both
// increment UseCount and refresh LastUsed.
type RouteCache interface {
	Lookup(ctx context.Context, key string) (domain.CacheEntry, bool, error)
	Store(ctx context.Context, key string, result domain.RouteResult) (domain.CacheEntry, error)
	// Remove entries not used since olderThan; returns the number removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)
	Stats(ctx context.Context) (domain.CacheStats, error)
}
