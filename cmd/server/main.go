package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"transport-route-service/internal/adapters/routing"
	"transport-route-service/internal/api"
	"transport-route-service/internal/app"
	"transport-route-service/internal/config"
	"transport-route-service/internal/domain"
	"transport-route-service/internal/platform/obs"
	"transport-route-service/internal/ports"
	"transport-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (cache backend, routing provider) behind ports and starts the HTTP server.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()
	obs.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	routeCache, closeCache, err := app.OpenCache(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("open route cache", zap.String("backend", cfg.Cache.Backend), zap.Error(err))
	}
	defer func() {
		if err := closeCache(); err != nil {
			logger.Warn("close route cache", zap.Error(err))
		}
	}()

	network, err := app.NetworkProvider(cfg.Routing)
	if err != nil {
		logger.Fatal("build routing provider", zap.Error(err))
	}

	fallback := routing.NewFallbackProvider(cfg.Routing.FallbackMinutesPerKm)
	resolver := services.NewRouteResolver(routeCache, network, fallback)

	metric, err := services.ParseMetric(cfg.Optimizer.Metric)
	if err != nil {
		logger.Fatal("optimizer metric", zap.Error(err))
	}

	// Batched matrices come straight from the provider; otherwise pair costs go
	// through the resolver so they are cached like any other route.
	var costs ports.RouteProvider = resolver
	if mp, ok := network.(ports.MatrixProvider); ok {
		costs = mp
	}

	optimizer := &services.SequenceOptimizer{
		Resolver:    resolver,
		Costs:       costs,
		Metric:      metric,
		Parallelism: cfg.Optimizer.Parallelism,
		TwoOpt:      cfg.Optimizer.TwoOpt,
	}

	tariff := domain.DefaultCostParameters()
	router := api.NewRouter(api.Deps{
		Resolver:  resolver,
		Optimizer: optimizer,
		Cache:     routeCache,
		Costs:     &tariff,
	})

	if cfg.Cache.RetentionDays > 0 {
		go pruneLoop(ctx, routeCache, time.Duration(cfg.Cache.RetentionDays)*24*time.Hour)
	}

	// Timeouts are tuned for cold-cache optimization (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("addr", srv.Addr),
		zap.String("provider", cfg.Routing.Provider),
		zap.String("cache", cfg.Cache.Backend),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// pruneLoop drops cache entries unused for longer than retention, once at start and then daily.
func pruneLoop(ctx context.Context, c ports.RouteCache, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		n, err := c.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			obs.L().Warn("prune route cache", zap.Error(err))
		} else {
			obs.L().Info("pruned route cache", zap.Int("removed", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
