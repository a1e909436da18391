package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/content-collections/internal/api"
	"github.com/content-collections/internal/cache"
	"github.com/content-collections/internal/config"
	"github.com/content-collections/internal/database"
	"github.com/content-collections/internal/events"
	"github.com/content-collections/internal/metrics"
	"github.com/content-collections/internal/repository"
	"github.com/content-collections/internal/service"
	"github.com/content-collections/internal/validation"
	"github.com/content-collections/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	log := logger.FromEnv()
	log.Info().Msg("Starting content collections server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	resultCache, err := cache.New(ctx, cfg.Cache, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open validation cache")
	}
	defer resultCache.Close()

	publisher := events.New(&cfg.Events, metrics.DefaultMetrics, log)
	defer publisher.Close()

	repos := repository.New(db)
	services := service.NewServices(repos, cfg, service.Deps{
		Validator: validation.NewValidator(),
		Cache:     resultCache,
		Publisher: publisher,
		Metrics:   metrics.DefaultMetrics,
	}, log)

	go services.Job.StartProcessor(ctx)
	log.Info().Msg("Background job processor started")

	prometheus.MustRegister(collectors.NewDBStatsCollector(db.DB, cfg.Database.Name))

	router := api.NewRouter(services, cfg, log, api.WithHealthCheck("database", db.HealthCheck))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	services.Job.StopProcessor()
	stop()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
