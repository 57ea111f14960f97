package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/damon-houk/forex-conversion-service/internal/application/service"
	"github.com/damon-houk/forex-conversion-service/internal/config"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/api"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/cache"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/db"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/handler"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/forex-conversion-service/internal/infrastructure/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	shutdownTimeout  = 15 * time.Second
	redisPingTimeout = 5 * time.Second
)

func main() {
	bootLog := logger.NewJSONLogger(os.Stdout, logger.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		bootLog.Fatal("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		bootLog.Warn("Unknown log level, using INFO", map[string]interface{}{
			"log_level": cfg.LogLevel,
		})
	}
	appLogger := logger.NewJSONLogger(os.Stdout, level).WithField("service", "forex-conversion")
	logger.SetDefaultLogger(appLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, appLogger)
	stop()

	// Fatal exits without running defers, so it only happens once run has released everything
	if err != nil {
		appLogger.Fatal("Server exited with error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// run wires the service and serves until ctx is done. Every resource it opens
// is closed before it returns, including on startup failures.
func run(ctx context.Context, cfg *config.Config, appLogger logger.Logger) error {
	appLogger.Info("Starting forex conversion service", map[string]interface{}{
		"port":          cfg.Port,
		"data_dir":      cfg.DataDir,
		"cache_backend": cfg.RateCacheBackend,
		"bulk_workers":  cfg.BulkWorkers,
	})

	if cfg.ExchangeAPIKey == "" {
		appLogger.Warn("EXCHANGE_API_KEY is not set; provider calls will be rejected", nil)
	}

	// The rate store may need a network round trip, so it is built before the database is locked
	store, closeStore, err := newRateStore(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer closeStore()

	badgerDB, err := db.Open(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database in %s: %w", cfg.DataDir, err)
	}
	defer func() {
		if err := badgerDB.Close(); err != nil {
			appLogger.Error("Error closing BadgerDB", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	forexMetrics := metrics.NewForexMetrics(reg)

	// Initialize repositories
	txRepo := db.NewBadgerTransactionRepository(badgerDB, appLogger.WithField("component", "transaction_repository"))

	// Initialize the provider client and the rate cache in front of it
	apiClient := api.NewExchangeRateAPIClient(api.ClientConfig{
		BaseURL: cfg.ExchangeAPIBaseURL,
		APIKey:  cfg.ExchangeAPIKey,
		Timeout: cfg.ExchangeAPITimeout,
	}, nil, forexMetrics, appLogger.WithField("component", "exchange_rate_api"))

	rateCache := cache.NewExchangeRateCache(store, apiClient, forexMetrics, appLogger.WithField("component", "rate_cache"))

	// Initialize services
	rateService := service.NewExchangeRateService(rateCache, appLogger)
	conversionService := service.NewConversionService(rateCache, txRepo, forexMetrics, appLogger)
	bulkService := service.NewBulkConversionService(conversionService, cfg.BulkWorkers, forexMetrics, appLogger)
	historyService := service.NewHistoryService(txRepo, appLogger)

	// Setup router
	router := mux.NewRouter()
	router.Use(
		middleware.RequestIDMiddleware,
		middleware.LoggingMiddleware(appLogger),
		middleware.MetricsMiddleware(forexMetrics),
	)

	handler.NewExchangeRateHandler(rateService, appLogger).RegisterRoutes(router)
	handler.NewConversionHandler(conversionService, appLogger).RegisterRoutes(router)
	handler.NewBulkConversionHandler(bulkService, cfg.MaxUploadBytes, appLogger).RegisterRoutes(router)
	handler.NewHistoryHandler(historyService, appLogger).RegisterRoutes(router)
	handler.NewOperationalHandler(reg, appLogger).RegisterRoutes(router)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server listening", map[string]interface{}{
			"addr": server.Addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case err := <-serverErr:
		if err != nil {
			runErr = fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		appLogger.Info("Shutdown signal received", nil)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Graceful shutdown failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	appLogger.Info("Server stopped", nil)
	return runErr
}

// newRateStore builds the configured rate cache backend and a func that releases it
func newRateStore(ctx context.Context, cfg *config.Config, log logger.Logger) (cache.RateStore, func(), error) {
	if cfg.RateCacheBackend == config.CacheBackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}

		log.Info("Using Redis rate cache", map[string]interface{}{
			"addr": cfg.RedisAddr,
			"ttl":  cfg.RateCacheTTL.String(),
		})

		return cache.NewRedisRateStore(client, cfg.RateCacheTTL), func() {
			if err := client.Close(); err != nil {
				log.Error("Error closing Redis client", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}, nil
	}

	store := cache.NewMemoryRateStore()
	store.SetExpiration(cfg.RateCacheTTL)

	if cfg.RateCacheTTL > 0 {
		go sweepExpired(ctx, store, cfg.RateCacheTTL, log)
	}

	log.Info("Using in-memory rate cache", map[string]interface{}{
		"ttl": cfg.RateCacheTTL.String(),
	})

	return store, func() {}, nil
}

// sweepExpired drops expired rates once per TTL until ctx is done
func sweepExpired(ctx context.Context, store *cache.MemoryRateStore, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.CleanExpired(); n > 0 {
				log.Debug("Expired rates removed", map[string]interface{}{
					"removed": n,
				})
			}
		}
	}
}
