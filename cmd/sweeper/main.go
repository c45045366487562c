package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"bidhive-auction-core/internal/adapters/docstore"
	"bidhive-auction-core/internal/adapters/notifier"
	"bidhive-auction-core/internal/adapters/redis"
	"bidhive-auction-core/internal/adapters/scheduler"
	"bidhive-auction-core/internal/app"
	"bidhive-auction-core/internal/config"
	"bidhive-auction-core/internal/ports/outbound"
)

func main() {

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	initLogging(cfg)

	log.Info().Msg("Starting BidHive expiry sweeper...")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize document store
	var store outbound.Store
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		conn, err := docstore.NewConnection(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer conn.Close()

		pgStore := docstore.NewPostgresStore(conn)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate document store")
		}
		store = pgStore
		log.Info().Msg("Postgres document store initialized")
	case config.BackendMemory:
		store = docstore.NewMemoryStore()
		log.Info().Msg("In-memory document store initialized")
	}

	// Create Redis client for live notification fanout
	redisClient := redis.NewClient(cfg)
	if err := redis.PingRedis(redisClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	log.Info().Msg("Redis connection established")

	// Create notification gateway
	gateway := notifier.NewStoreNotifier(notifier.StoreNotifierParams{
		Store:       store,
		RedisClient: redisClient,
		Logger:      log.Logger,
	})

	// Create business services
	lifecycleService := app.NewLifecycleService(app.LifecycleServiceParams{
		Store:    store,
		Notifier: gateway,
		Logger:   log.Logger,
	})

	log.Info().Msg("Business services initialized")

	// Create and start the sweep scheduler
	sweepScheduler := scheduler.NewSweepScheduler(scheduler.SweepSchedulerParams{
		Sweeper:  lifecycleService,
		Interval: cfg.Sweep.Interval,
		Logger:   log.Logger,
	})
	sweepScheduler.Start()
	log.Info().Dur("interval", cfg.Sweep.Interval).Msg("Sweep scheduler started")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case <-ctx.Done():
		log.Info().Msg("Context cancelled")
	}

	// Graceful shutdown
	log.Info().Msg("Starting graceful shutdown...")

	sweepScheduler.Stop()
	log.Info().Msg("Sweep scheduler stopped")

	lifecycleService.Stop()
	log.Info().Msg("Settlement pool drained")

	if err := redisClient.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing Redis client")
	}

	log.Info().Msg("Graceful shutdown completed")
}

func initLogging(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Set log format
	if cfg.Logging.Format == "json" {
		// JSON format (default)
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		// Console format for development
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global logger
	zerolog.DefaultContextLogger = &log.Logger
}
