package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hackgods/dermaclinic-admin/internal/appointment"
	"github.com/hackgods/dermaclinic-admin/internal/config"
	"github.com/hackgods/dermaclinic-admin/internal/db"
	"github.com/hackgods/dermaclinic-admin/internal/logging"
	"github.com/hackgods/dermaclinic-admin/internal/reconcile"
	redisclient "github.com/hackgods/dermaclinic-admin/internal/redis"
)

type runFlags struct {
	dryRun bool
	xlsx   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "reconcile",
		Short:         "Backfill missing identity and pricing data on appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var flags runFlags
	rootCmd.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "compute changes without writing them")
	rootCmd.PersistentFlags().StringVar(&flags.xlsx, "xlsx", "", "also write the report as an .xlsx workbook to this path")

	rootCmd.AddCommand(policyCmd(reconcile.PolicyIdentity, "Fill userName, userEmail and userPhone from the users collection", &flags))
	rootCmd.AddCommand(policyCmd(reconcile.PolicyPricing, "Fill amount and serviceCategory from the pricing table", &flags))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func policyCmd(policy reconcile.Policy, short string, flags *runFlags) *cobra.Command {
	return &cobra.Command{
		Use:   string(policy),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), policy, *flags)
		},
	}
}

func run(ctx context.Context, policy reconcile.Policy, flags runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config load error: %w", err)
	}
	logger := logging.New(cfg.Env, cfg.LogLevel, "reconcile")

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		return fmt.Errorf("postgres connection error: %w", err)
	}
	defer pgPool.Close()

	locker, closeLocker, err := newLocker(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLocker()

	pricing := reconcile.DefaultPricing()
	if cfg.PricingFile != "" {
		if pricing, err = reconcile.LoadPricing(cfg.PricingFile); err != nil {
			return err
		}
	}

	store := db.NewPgStore(pgPool)
	engine := reconcile.NewEngine(
		appointment.NewRepository(store),
		store,
		locker,
		nil,
		logger,
		reconcile.Options{Pricing: pricing, RejectAmbiguous: cfg.RejectAmbiguous},
	)

	report, err := engine.Run(ctx, policy, reconcile.RunOptions{DryRun: flags.dryRun})
	if err != nil {
		return err
	}

	if err := report.WriteText(os.Stdout); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	if flags.xlsx != "" {
		f, err := os.Create(flags.xlsx)
		if err != nil {
			return fmt.Errorf("create %s: %w", flags.xlsx, err)
		}
		defer f.Close()
		if err := report.WriteXLSX(f); err != nil {
			return err
		}
		logger.Info().Str("path", flags.xlsx).Msg("workbook written")
	}
	return nil
}

func newLocker(ctx context.Context, cfg config.Config, logger zerolog.Logger) (redisclient.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn().Msg("REDIS_ADDR not set, running without the cross-process run lock")
		return redisclient.NoopLocker{}, func() {}, nil
	}

	rdb, err := redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		return nil, nil, fmt.Errorf("redis connection error: %w", err)
	}
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}
	return redisclient.NewRedisLocker(rdb, cfg.LockTTL), closeFn, nil
}
