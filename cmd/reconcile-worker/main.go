package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/config"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/logging"
	"github.com/hackgods/dermaclinic-admin/internal/reconcile"
	redisclient "github.com/hackgods/dermaclinic-admin/internal/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zerolog.New(os.Stderr).Fatal().Err(err).Msg("config load error")
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "reconcile-worker")

	policies := make([]reconcile.Policy, 0, len(cfg.WorkerPolicies))
	for _, p := range cfg.WorkerPolicies {
		policy, err := reconcile.ParsePolicy(p)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid RECONCILE_POLICIES")
		}
		policies = append(policies, policy)
	}

	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Strs("policies", cfg.WorkerPolicies).
		Msg("reconcile-worker starting up")

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

	// The worker shares the run lock with operators, so Redis is mandatory here.
	if cfg.RedisAddr == "" {
		logger.Fatal().Msg("REDIS_ADDR or REDIS_URL is required for the worker")
	}
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	pricing := reconcile.DefaultPricing()
	if cfg.PricingFile != "" {
		if pricing, err = reconcile.LoadPricing(cfg.PricingFile); err != nil {
			logger.Fatal().Err(err).Msg("pricing table load error")
		}
	}

	store := db.NewPgStore(pgPool)
	engine := reconcile.NewEngine(
		appointment.NewRepository(store),
		store,
		redisclient.NewRedisLocker(rdb, cfg.LockTTL),
		nil,
		logger,
		reconcile.Options{Pricing: pricing, RejectAmbiguous: cfg.RejectAmbiguous},
	)

	// Run once at startup
	runOnce(rootCtx, engine, policies, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reconcile worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, engine, policies, logger)
		}
	}
}

func runOnce(ctx context.Context, engine *reconcile.Engine, policies []reconcile.Policy, logger zerolog.Logger) {
	for _, policy := range policies {
		start := time.Now()
		report, err := engine.Run(ctx, policy, reconcile.RunOptions{})
		switch {
		case errors.Is(err, reconcile.ErrRunInProgress):
			logger.Info().Str("policy", string(policy)).Msg("another run holds the lock, skipping this tick")
		case err != nil:
			logger.Error().Err(err).Str("policy", string(policy)).Msg("reconciliation run error")
		default:
			logger.Info().
				Str("policy", string(policy)).
				Int("updated", report.Updated).
				Int("failed", report.Failed).
				Dur("took", time.Since(start)).
				Msg("scheduled run complete")
		}
	}
}
