// Command cachetool administers the persistent route cache.
//
//	cachetool init          create the route_cache schema (sqlite/postgres)
//	cachetool prune [-days] remove entries unused for the given number of days
//	cachetool stats         print cache statistics
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"transport-route-service/internal/adapters/cache"
	"transport-route-service/internal/app"
	"transport-route-service/internal/config"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	switch os.Args[1] {
	case "init":
		if err := initSchema(ctx, cfg.Cache); err != nil {
			log.Fatal(err)
		}
		log.Println("Schema ready.")

	case "prune":
		fs := flag.NewFlagSet("prune", flag.ExitOnError)
		days := fs.Int("days", cfg.Cache.RetentionDays, "remove entries unused for this many days")
		_ = fs.Parse(os.Args[2:])

		n, err := prune(ctx, cfg.Cache, *days, time.Now())
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Removed %d entries older than %d days.", n, *days)

	case "stats":
		if err := stats(ctx, cfg.Cache, os.Stdout); err != nil {
			log.Fatal(err)
		}

	default:
		usage()
		os.Exit(2)
	}
}

func initSchema(ctx context.Context, cfg config.CacheConfig) error {
	conn, dialect, err := app.OpenSQL(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	defer conn.Close()

	log.Println("Initializing database schema...")
	return cache.InitSchema(ctx, conn, dialect)
}

// prune removes entries whose last use is more than days before now.
func prune(ctx context.Context, cfg config.CacheConfig, days int, now time.Time) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("prune: -days must be positive, got %d", days)
	}

	c, closeFn, err := app.OpenPersistentCache(ctx, cfg)
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	defer closeFn()

	n, err := c.Prune(ctx, now.Add(-time.Duration(days)*24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("prune: %w", err)
	}
	return n, nil
}

func stats(ctx context.Context, cfg config.CacheConfig, w io.Writer) error {
	c, closeFn, err := app.OpenPersistentCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer closeFn()

	s, err := c.Stats(ctx)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	_, err = fmt.Fprintf(w, "total=%d network=%d fallback=%d usage=%d hit_potential=%d\n",
		s.TotalEntries, s.NetworkEntries, s.FallbackEntries, s.TotalUsage, s.HitPotential())
	return err
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cachetool init | prune [-days N] | stats")
}
