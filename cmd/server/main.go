package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/mathieu-neron/postrate/internal/auth"
	"github.com/mathieu-neron/postrate/internal/config"
	"github.com/mathieu-neron/postrate/internal/db"
	"github.com/mathieu-neron/postrate/internal/handler"
	"github.com/mathieu-neron/postrate/internal/metrics"
	"github.com/mathieu-neron/postrate/internal/middleware"
	"github.com/mathieu-neron/postrate/internal/repository"
	"github.com/mathieu-neron/postrate/internal/repository/memory"
	"github.com/mathieu-neron/postrate/internal/router"
	"github.com/mathieu-neron/postrate/internal/service"
)

const version = "1.0.0"

func main() {
	rootCmd := &cobra.Command{
		Use:           "postrate",
		Short:         "Weighted post rating service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP API (default)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServer(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reconcile",
			Short: "Rebuild every post aggregate from its votes and repair drift",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runReconcile(cmd.Context())
			},
		},
		newIssueTokenCmd(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newIssueTokenCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Print a session token for a user (development only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			issuer, err := auth.NewTokenIssuer(sessionConfig(cfg))
			if err != nil {
				return err
			}
			token, expiresAt, err := issuer.Issue(userID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n# expires %s\n", token, expiresAt.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id to put in the token subject")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func sessionConfig(cfg *config.Config) auth.Config {
	return auth.Config{
		SigningSecret: []byte(cfg.SessionSigningSecret),
		Issuer:        cfg.SessionIssuer,
		Audience:      cfg.SessionAudience,
		TokenTTL:      cfg.SessionTTL,
	}
}

// openStore returns the configured store and, for Postgres, its pool.
func openStore(ctx context.Context, cfg *config.Config) (service.Store, *pgxpool.Pool, error) {
	if cfg.StoreDriver == config.DriverMemory {
		middleware.Logger.Warn().Msg("using in-memory store, data is lost on exit")
		return memory.NewStore(), nil, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, middleware.Logger)
	if err != nil {
		return nil, nil, err
	}
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repository.NewStore(pool), pool, nil
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	middleware.InitLogger(cfg.LogLevel, "postrate")
	logger := middleware.Logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	metrics.Register(pool)

	cache := service.NewCacheService(ctx, cfg.RedisURL, logger)
	defer cache.Close()

	var validator service.TokenValidator
	if cfg.SessionSigningSecret != "" {
		v, err := auth.NewSessionValidator(sessionConfig(cfg))
		if err != nil {
			return err
		}
		validator = v
	} else {
		logger.Warn().Msg("SESSION_SIGNING_SECRET not set, only anonymous votes are accepted")
	}

	anon, err := service.NewAnonymousTracker(service.AnonymousTrackerConfig{
		SigningSecret: []byte(cfg.AnonTokenSecret),
		DailyLimit:    cfg.AnonDailyLimit,
		TokenTTL:      cfg.AnonTokenTTL,
		Location:      cfg.Location,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	reconciler := service.NewReconcileWorker(store, cache, cfg.ReconcileSchedule, logger)
	workerDone, err := reconciler.Start(ctx)
	if err != nil {
		return err
	}

	voteSvc := service.NewVoteService(service.VoteServiceConfig{
		Posts:      store,
		Voters:     store,
		Votes:      store,
		Weights:    service.NewWeightService(time.Now),
		Anonymous:  anon,
		Activity:   service.NewActivityLogger(store),
		Cache:      cache,
		Reconciler: reconciler,
		Timeout:    cfg.VoteTimeout,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{
		AppName:      "postrate API",
		ServerHeader: "postrate",
	})
	router.Setup(app, &router.Handlers{
		Vote:     handler.NewVoteHandler(voteSvc, cfg.AnonCookieName, cfg.IsProduction()),
		Post:     handler.NewPostHandler(service.NewRatingService(store, cache, logger)),
		Health:   handler.NewHealthHandler(store, cache.Client(), version),
		Identity: service.NewIdentityService(store, validator, cfg.IPHashSalt),
	}, router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		VoteRateLimit: cfg.VoteRateLimit,
		Metrics:       true,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Environment).Str("store", cfg.StoreDriver).Msg("server starting")
		errCh <- app.Listen(":"+cfg.Port, fiber.ListenConfig{DisableStartupMessage: true})
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		stop()
		<-workerDone
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := app.ShutdownWithContext(shutdownCtx)
	<-workerDone
	if shutdownErr != nil && !errors.Is(shutdownErr, context.Canceled) {
		return shutdownErr
	}
	return nil
}

func runReconcile(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	middleware.InitLogger(cfg.LogLevel, "postrate-reconcile")

	store, pool, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if pool != nil {
		defer pool.Close()
	}

	cache := service.NewCacheService(ctx, cfg.RedisURL, middleware.Logger)
	defer cache.Close()

	report, err := service.NewReconcileWorker(store, cache, cfg.ReconcileSchedule, middleware.Logger).RunAll(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info().
		Int("checked", report.Checked).
		Int("repaired", report.Repaired).
		Int("failed", report.Failed).
		Msg("reconcile finished")
	if report.Failed > 0 {
		return fmt.Errorf("%d posts failed to reconcile", report.Failed)
	}
	return nil
}
