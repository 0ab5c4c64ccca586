package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/dermaclinic-admin/internal/api"
	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/config"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/invoice"
	"github.com/hackgods/dermaclinic-admin/internal/logging"
	"github.com/hackgods/dermaclinic-admin/internal/metrics"
	"github.com/hackgods/dermaclinic-admin/internal/notify"
	"github.com/hackgods/dermaclinic-admin/internal/reconcile"
	redisclient "github.com/hackgods/dermaclinic-admin/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New(cfg.Env, cfg.LogLevel, "api-server")
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis, optional
	var rdb *redis.Client
	var locker redisclient.Locker = redisclient.NoopLocker{}
	if cfg.RedisAddr != "" {
		rdb, err = redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing redis")
			}
		}()
		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		logger.Info().Msg("connected to Redis")
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, reconciliation runs are only serialised per process")
	}

	pricing := reconcile.DefaultPricing()
	if cfg.PricingFile != "" {
		pricing, err = reconcile.LoadPricing(cfg.PricingFile)
		if err != nil {
			logger.Fatal().Err(err).Msg("pricing table load error")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	store := db.NewPgStore(pgPool)
	engine := reconcile.NewEngine(
		appointment.NewRepository(store),
		store,
		locker,
		metrics.NewReconcileMetrics(reg),
		logger,
		reconcile.Options{Pricing: pricing, RejectAmbiguous: cfg.RejectAmbiguous},
	)
	notifier := notify.NewService(store, metrics.NewNotifyMetrics(reg), logger)
	invoices := invoice.NewService(store, notifier, invoice.Options{
		TaxRate:   cfg.InvoiceTaxRate,
		DueInDays: cfg.InvoiceDueInDays,
	}, logger)

	router := api.NewRouter(api.RouterConfig{
		Reconciler:  engine,
		Runs:        store,
		Notifier:    notifier,
		Invoices:    invoices,
		Postgres:    pgPool,
		Redis:       api.RedisPinger(rdb),
		Gatherer:    reg,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		Env:         cfg.Env,
		Version:     version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		// runs and exports can take a while on a large collection
		WriteTimeout: cfg.LockTTL + 30*time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
