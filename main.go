package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	database "github.com/FACorreiaa/go-route-attractions/app/db"
	appLogger "github.com/FACorreiaa/go-route-attractions/app/logger"
	"github.com/FACorreiaa/go-route-attractions/app/observability/metrics"
	"github.com/FACorreiaa/go-route-attractions/app/tracer"
	"github.com/FACorreiaa/go-route-attractions/config"
	"github.com/FACorreiaa/go-route-attractions/internal/api/enrich"
	"github.com/FACorreiaa/go-route-attractions/internal/api/geocode"
	"github.com/FACorreiaa/go-route-attractions/internal/api/places"
	"github.com/FACorreiaa/go-route-attractions/internal/api/routing"
	"github.com/FACorreiaa/go-route-attractions/internal/api/trip"
	api "github.com/FACorreiaa/go-route-attractions/internal/router"
)

func main() {
	// --- Initial Loading ---
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	// --- Logger Setup ---
	logger := setupLogger()
	slog.SetDefault(logger)

	// --- Application Context & Shutdown ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	metrics.InitAppMetrics()

	// --- Database Setup ---
	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- Dependency Injection ---
	resolver := geocode.NewNominatimResolver(
		cfg.Providers.Nominatim.BaseURL,
		cfg.Providers.Nominatim.UserAgent,
		&http.Client{Timeout: cfg.Providers.Nominatim.Timeout},
		logger,
	)
	routeProvider := routing.NewOSRMProvider(
		cfg.Providers.OSRM.BaseURL,
		&http.Client{Timeout: cfg.Providers.OSRM.Timeout},
		logger,
	)
	poiFinder := places.NewOverpassFinder(
		cfg.Providers.Overpass.BaseURL,
		&http.Client{Timeout: cfg.Providers.Overpass.Timeout},
		logger,
	)

	// Descriptions are best-effort: without an API key the pipeline still
	// runs, attractions just come back without blurbs.
	var generator enrich.Generator
	if aiClient, err := enrich.NewAIClient(ctx); err != nil {
		logger.Warn("Description generation disabled", slog.Any("error", err))
	} else {
		generator = aiClient
	}
	enricher := enrich.NewService(generator, logger)

	tripRepo := trip.NewTripRepository(pool, logger)
	tripService := trip.NewServiceImpl(tripRepo, resolver, routeProvider, poiFinder, enricher, trip.PipelineConfig{
		SearchRadiusKm: cfg.Pipeline.SearchRadiusKm,
		MaxDistanceKm:  cfg.Pipeline.MaxDistanceKm,
		TopN:           cfg.Pipeline.TopN,
	}, logger)
	tripHandler := trip.NewHandler(tripService, logger)

	// --- Stale Route Sweeper ---
	go runStaleSweeper(ctx, tripService, cfg.Pipeline.SweepInterval, logger)

	// --- Router Setup ---
	routerConfig := &api.Config{
		TripHandler: tripHandler,
	}
	mainRouter := api.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	// --- HTTP Server Setup ---
	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// --- Start Server Goroutine ---
	go func() {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server ListenAndServe error", slog.Any("error", err))
			cancel()
		}
	}()

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()

	// --- Graceful Shutdown ---
	logger.Info("Shutdown signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
	} else {
		logger.Info("HTTP server gracefully stopped")
	}

	logger.Info("Application shut down complete.")
}

// runStaleSweeper periodically deletes cached routes older than the
// freshness window, the out-of-band counterpart to the in-request stale
// eviction.
func runStaleSweeper(ctx context.Context, tripService trip.Service, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 12 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := tripService.PurgeStale(ctx)
			if err != nil {
				logger.Error("Stale route sweep failed", slog.Any("error", err))
				continue
			}
			metrics.Get().StaleRoutesDeletedTotal.Add(ctx, deleted)
			logger.Info("Stale route sweep complete", slog.Int64("deleted", deleted))
		}
	}
}

// setupLogger configures and returns the application logger.
func setupLogger() *slog.Logger {
	var logger *slog.Logger
	env := os.Getenv("APP_ENV")

	if env == "development" || env == "" { // Default to development if not set
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
		log.Println("Initialized development logger (tint)")
	} else {
		// JSON logs for production or other environments
		jsonOpts := &slog.HandlerOptions{
			Level:     slog.LevelInfo,
			AddSource: false,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
		log.Println("Initialized production logger (JSON)")
	}
	return logger
}
