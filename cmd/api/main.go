package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"fleetdocs/docs"
	"fleetdocs/internal/cache"
	"fleetdocs/internal/config"
	"fleetdocs/internal/database"
	"fleetdocs/internal/database/migration"
	"fleetdocs/internal/events"
	handlers "fleetdocs/internal/http/handler"
	"fleetdocs/internal/http/middleware"
	"fleetdocs/internal/logger"
	"fleetdocs/internal/metrics"
	"fleetdocs/internal/otel"
	"fleetdocs/internal/remote"
	"fleetdocs/internal/repository"
	"fleetdocs/internal/repository/memory"
	"fleetdocs/internal/repository/postgres"
	"fleetdocs/internal/resilience"
	"fleetdocs/internal/service"
	"fleetdocs/internal/storage"
)

// @title fleetdocs API
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()

	if err := cfg.ApplyPolicyFile(); err != nil {
		log.Fatal().Err(err).Msg("failed to load upload policy")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	executor := resilience.NewExecutor(resilience.FromAppConfig(cfg.Resilience))
	var checks []handlers.Check

	// GraphQL client for the fleet backend, traced and rate limited
	httpClient := &http.Client{
		Timeout:   time.Duration(cfg.GraphQL.TimeoutSec) * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	var limiter *rate.Limiter
	if cfg.GraphQL.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.GraphQL.RateLimitRPS), cfg.GraphQL.RateBurst)
	}
	client := remote.New(cfg.GraphQL.Endpoint, remote.Options{
		Token:       cfg.GraphQL.Token,
		RESTBaseURL: cfg.GraphQL.RESTBaseURL,
		HTTPClient:  httpClient,
		Executor:    executor,
		Limiter:     limiter,
	})
	var api remote.DocumentAPI = client

	// Optional Redis cache for assignments and system configuration
	if cfg.Redis.Addr != "" {
		rc := cache.NewRedis(cfg.Redis, log)
		defer rc.Close()
		api = remote.NewCached(client, rc, time.Duration(cfg.Redis.CacheTTLSec)*time.Second)
		checks = append(checks, handlers.Check{Name: "redis", Ping: rc.Ping})
	}

	// Staged files spool in MinIO when configured, in memory otherwise
	var blobStore storage.Storage = storage.NewMemory()
	if cfg.MinIO.Endpoint != "" {
		blobStore, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize object storage")
		}
	}

	// Commit reports go to PostgreSQL when configured, in memory otherwise
	var reports repository.CommitReportRepository = memory.NewCommitReportMemory()
	if database.Enabled(cfg.Database) {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		reports = postgres.NewCommitReportPostgres(db)
		checks = append(checks, handlers.Check{Name: "postgres", Ping: database.Ping(db)})
	}

	// Commit events over NATS, or a no-op publisher
	var publisher events.Publisher = events.Noop{}
	if cfg.NATS.URL != "" {
		np, err := events.NewNATS(cfg.NATS.URL, cfg.NATS.Subject, events.Options{Executor: executor})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to nats")
		}
		publisher = np
	}
	defer publisher.Close()

	// Prometheus registry shared by HTTP and commit metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	commitMetrics, err := metrics.NewCommitMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register commit metrics")
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	// Initialize services
	stagingSvc := service.NewStagingService(service.StagingDeps{
		API:      api,
		Spool:    storage.NewSpool(blobStore),
		Reports:  reports,
		Events:   publisher,
		Recorder: commitMetrics,
		Gauge:    commitMetrics,
		Config:   cfg.Staging,
	})
	archiveSvc := service.NewArchiveService(api, client)

	// Idle session janitor
	go stagingSvc.Run(ctx, time.Minute)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
	})

	// Register global middleware
	app.Use(recover.New())
	app.Use(otelfiber.Middleware())
	app.Use(cors.New())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger())
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		Staging: stagingSvc,
		Archive: archiveSvc,
		Checks:  checks,
		Auth:    middleware.Auth(cfg.Auth),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Swagger: docs.SwaggerInfo,
	})

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting_down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("server_starting")
	if err := app.Listen(addr); err != nil {
		// return instead of exiting so deferred closers run
		log.Error().Err(err).Msg("failed to start server")
		return
	}
}
