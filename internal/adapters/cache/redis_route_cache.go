package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"transport-route-service/internal/domain"
	"transport-route-service/internal/geo"
	"transport-route-service/internal/platform/obs"
)

const defaultRedisPrefix = "routecache:"

// RedisRouteCache stores each entry as a hash under prefix+key and indexes
// keys in a sorted set scored by last use. Mutations run as Lua scripts so
// the replacement rule and use counting are atomic across processes.
type RedisRouteCache struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRouteCache(rdb redis.UniversalClient, prefix string) *RedisRouteCache {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisRouteCache{rdb: rdb, prefix: prefix, now: time.Now}
}

// NewRedisRouteCacheFromURL parses a redis:// URL.
func NewRedisRouteCacheFromURL(rawURL, prefix string) (*RedisRouteCache, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("redis route cache: parse url: %w", err)
	}
	return NewRedisRouteCache(redis.NewClient(opt), prefix), nil
}

// Hash fields: g geometry, d distance, t duration, f fallback, n uses, c created, u last used.
var entryFields = []string{"g", "d", "t", "f", "n", "c", "u"}

var storeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	redis.call('HSET', KEYS[1], 'g', ARGV[1], 'd', ARGV[2], 't', ARGV[3], 'f', ARGV[4], 'n', '1', 'c', ARGV[5], 'u', ARGV[5])
else
	local stored = redis.call('HGET', KEYS[1], 'f')
	if not (stored == '0' and ARGV[4] == '1') then
		redis.call('HSET', KEYS[1], 'g', ARGV[1], 'd', ARGV[2], 't', ARGV[3], 'f', ARGV[4])
	end
	redis.call('HINCRBY', KEYS[1], 'n', 1)
	redis.call('HSET', KEYS[1], 'u', ARGV[5])
end
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[6])
return redis.call('HMGET', KEYS[1], 'g', 'd', 't', 'f', 'n', 'c', 'u')
`)

var lookupScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], 'n', 1)
redis.call('HSET', KEYS[1], 'u', ARGV[1])
redis.call('ZADD', KEYS[2], ARGV[1], ARGV[2])
return redis.call('HMGET', KEYS[1], 'g', 'd', 't', 'f', 'n', 'c', 'u')
`)

var pruneScript = redis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, m in ipairs(members) do
	redis.call('DEL', ARGV[2] .. m)
	redis.call('ZREM', KEYS[1], m)
end
return #members
`)

var statsScript = redis.NewScript(`
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
local total, fallback, usage = 0, 0, 0
for _, m in ipairs(members) do
	local v = redis.call('HMGET', ARGV[1] .. m, 'f', 'n')
	if v[1] then
		total = total + 1
		if v[1] == '1' then
			fallback = fallback + 1
		end
		usage = usage + tonumber(v[2])
	end
end
return {total, fallback, usage}
`)

func (c *RedisRouteCache) Lookup(ctx context.Context, key string) (_ domain.CacheEntry, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Lookup")(&err)

	if key == "" {
		return domain.CacheEntry{}, false, errors.New("lookup route cache: key must not be empty")
	}

	now := c.now().UnixMilli()
	raw, err := lookupScript.Run(ctx, c.rdb, []string{c.prefix + key, c.indexKey()}, now, key).Slice()
	if errors.Is(err, redis.Nil) {
		return domain.CacheEntry{}, false, nil
	}
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("lookup route cache key=%q: %w", key, err)
	}

	entry, err := parseRedisEntry(key, raw)
	if err != nil {
		return domain.CacheEntry{}, false, fmt.Errorf("lookup route cache key=%q: %w", key, err)
	}
	return entry, true, nil
}

func (c *RedisRouteCache) Store(ctx context.Context, key string, result domain.RouteResult) (_ domain.CacheEntry, err error) {
	defer obs.Time(ctx, "route.cache.Store")(&err)

	if key == "" {
		return domain.CacheEntry{}, errors.New("insert route cache: key must not be empty")
	}

	fallback := "0"
	if result.IsFallback {
		fallback = "1"
	}

	args := []any{
		geo.Encode(result.Geometry),
		strconv.FormatFloat(result.DistanceKm, 'g', -1, 64),
		strconv.FormatFloat(result.DurationMinutes, 'g', -1, 64),
		fallback,
		c.now().UnixMilli(),
		key,
	}

	raw, err := storeScript.Run(ctx, c.rdb, []string{c.prefix + key, c.indexKey()}, args...).Slice()
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("insert route cache key=%q: %w", key, err)
	}

	entry, err := parseRedisEntry(key, raw)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("insert route cache key=%q: %w", key, err)
	}
	return entry, nil
}

func (c *RedisRouteCache) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	n, err := pruneScript.Run(ctx, c.rdb, []string{c.indexKey()}, olderThan.UnixMilli(), c.prefix).Int()
	if err != nil {
		return 0, fmt.Errorf("prune route cache: %w", err)
	}
	return n, nil
}

func (c *RedisRouteCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	vals, err := statsScript.Run(ctx, c.rdb, []string{c.indexKey()}, c.prefix).Int64Slice()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("route cache stats: %w", err)
	}
	if len(vals) != 3 {
		return domain.CacheStats{}, fmt.Errorf("route cache stats: unexpected reply length %d", len(vals))
	}

	return domain.CacheStats{
		TotalEntries:    int(vals[0]),
		FallbackEntries: int(vals[1]),
		NetworkEntries:  int(vals[0] - vals[1]),
		TotalUsage:      int(vals[2]),
	}, nil
}

func (c *RedisRouteCache) indexKey() string { return c.prefix + "index" }

func parseRedisEntry(key string, raw []any) (domain.CacheEntry, error) {
	if len(raw) != len(entryFields) {
		return domain.CacheEntry{}, fmt.Errorf("unexpected reply length %d", len(raw))
	}

	str := make([]string, len(raw))
	for i, v := range raw {
		s, ok := v.(string)
		if !ok {
			return domain.CacheEntry{}, fmt.Errorf("field %q missing", entryFields[i])
		}
		str[i] = s
	}

	geometry, err := geo.Decode(str[0])
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("decode stored geometry: %w", err)
	}

	distance, err := strconv.ParseFloat(str[1], 64)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("parse distance: %w", err)
	}
	duration, err := strconv.ParseFloat(str[2], 64)
	if err != nil {
		return domain.CacheEntry{}, fmt.Errorf("parse duration: %w", err)
	}

	var ints [3]int64
	for i := range ints {
		if ints[i], err = strconv.ParseInt(str[4+i], 10, 64); err != nil {
			return domain.CacheEntry{}, fmt.Errorf("parse field %q: %w", entryFields[4+i], err)
		}
	}

	return domain.CacheEntry{
		Key: key,
		Result: domain.RouteResult{
			Geometry:        geometry,
			DistanceKm:      distance,
			DurationMinutes: duration,
			IsFallback:      str[3] == "1",
		},
		UseCount:  int(ints[0]),
		CreatedAt: time.UnixMilli(ints[1]),
		LastUsed:  time.UnixMilli(ints[2]),
	}, nil
}

func (c *RedisRouteCache) Close() error { return c.rdb.Close() }
