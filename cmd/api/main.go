package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stocksync-platform/sync-service/internal/adapters"
	"github.com/stocksync-platform/sync-service/internal/api/handlers"
	"github.com/stocksync-platform/sync-service/internal/application"
	"github.com/stocksync-platform/sync-service/internal/config"
	"github.com/stocksync-platform/sync-service/internal/domain"
	mongoRepo "github.com/stocksync-platform/sync-service/internal/infrastructure/mongodb"
	"github.com/stocksync-platform/sync-service/internal/offline"
	"github.com/stocksync-platform/sync-service/pkg/kafka"
	"github.com/stocksync-platform/sync-service/pkg/logging"
	"github.com/stocksync-platform/sync-service/pkg/metrics"
	"github.com/stocksync-platform/sync-service/pkg/middleware"
	"github.com/stocksync-platform/sync-service/pkg/mongodb"
	"github.com/stocksync-platform/sync-service/pkg/tracing"
)

const serviceName = "sync-service"

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootstrap := logging.New(logging.DefaultConfig(serviceName))
		bootstrap.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logger := logging.New(cfg.LoggerConfig(serviceName))
	logger.SetDefault()
	logger.Info("Starting sync-service API")

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracerProvider, err := tracing.Initialize(ctx, cfg.TracerConfig(serviceName))
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
		// Continue without tracing - don't exit
	} else if tracerProvider != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
		logger.Info("Tracing initialized", "endpoint", cfg.Tracing.OTLPEndpoint)
	}

	// Initialize Prometheus metrics
	m := metrics.New(metrics.DefaultConfig(serviceName))
	logger.Info("Metrics initialized")

	// Initialize MongoDB with instrumentation
	mongoClient, err := mongodb.NewClient(ctx, cfg.MongoClientConfig())
	if err != nil {
		logger.WithError(err).Error("Failed to connect to MongoDB")
		os.Exit(1)
	}
	instrumentedMongo := mongodb.NewInstrumentedClient(mongoClient, m, logger)
	defer instrumentedMongo.Close(ctx)
	logger.Info("Connected to MongoDB", "database", cfg.MongoDB.Database)

	// Initialize Kafka producer with instrumentation
	kafkaProducer := kafka.NewProducer(cfg.KafkaProducerConfig())
	instrumentedProducer := kafka.NewInstrumentedProducer(kafkaProducer, m, logger)
	defer instrumentedProducer.Close()
	logger.Info("Kafka producer initialized", "brokers", cfg.Kafka.Brokers)

	// Best effort: brokers without auto-creation get the topics now,
	// provisioned clusters report TopicAlreadyExists
	if err := kafka.CreateTopics(ctx, cfg.Kafka.Brokers); err != nil {
		logger.WithError(err).Warn("Kafka topic provisioning failed, continuing")
	}

	// Initialize repositories
	db := instrumentedMongo.Database()
	stocks := mongoRepo.NewStockRepository(db)
	movements := mongoRepo.NewMovementRepository(db)
	conflicts := mongoRepo.NewPendingConflictRepository(db)
	seatPools := mongoRepo.NewSeatPoolRepository(db)
	offlineQueue := mongoRepo.NewOfflineQueueRepository(db)
	logger.Info("Repositories initialized")

	// Channel adapters are shared across tenants; per-tenant isolation
	// lives in the engine, not the adapters
	registry := domain.NewAdapterRegistry()
	registry.Register(adapters.NewCounterSaleAdapter(stocks, movements, logger))
	registry.Register(adapters.NewSingleVendorAdapter(stocks, movements, logger))
	registry.Register(adapters.NewMultiVendorAdapter(stocks, movements, logger))
	registry.Register(adapters.NewTransportAdapter(seatPools, movements, logger))
	logger.Info("Channel adapters registered", "channels", registry.Channels())

	// Engines are built lazily per tenant on first request
	provider := application.NewEngineProvider(
		func(tenantID string) *application.SyncEngine {
			return application.NewSyncEngine(tenantID, registry, stocks, movements, conflicts, logger,
				application.WithPublisher(instrumentedProducer),
				application.WithMetrics(m),
				application.WithOfflinePendingCounter(offlineQueue),
				application.WithConflictTTL(cfg.Conflict.TTL),
			)
		},
		func(engine *application.SyncEngine) *application.ConflictResolutionService {
			return application.NewConflictResolutionService(engine, conflicts, stocks, movements, m, logger)
		},
	)

	// Offline replay drains against the local engine unless a remote
	// sync endpoint is configured
	var submitter offline.Submitter
	var probe offline.ConnectivityProbe
	if cfg.Offline.SyncEndpoint != "" {
		submitter = offline.NewHTTPSubmitter(cfg.Offline.SyncEndpoint, nil, logger)
		probe = httpProbe(cfg.Offline.SyncEndpoint)
		logger.Info("Offline replay targets remote endpoint", "endpoint", cfg.Offline.SyncEndpoint)
	} else {
		submitter = offline.NewEngineSubmitter(provider)
		probe = func(context.Context) bool { return true }
	}
	replay := offline.NewReplayEngine(offlineQueue, submitter, probe, logger,
		offline.WithMetrics(m))

	// Setup Gin router with middleware
	router := gin.New()
	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Slog()))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.SimpleTracingMiddleware(serviceName))

	router.NoRoute(middleware.NoRoute())
	router.NoMethod(middleware.NoMethod())

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, func() error {
		return instrumentedMongo.HealthCheck(ctx)
	}))
	router.GET("/metrics", middleware.MetricsEndpoint(m))

	// API v1 routes, tenant scope required
	api := router.Group("/api/v1")
	api.Use(middleware.TenantAuth(nil))
	handlers.NewEventHandler(provider, logger).RegisterRoutes(api)
	handlers.NewStockHandler(provider, logger).RegisterRoutes(api)
	handlers.NewConflictHandler(provider, logger).RegisterRoutes(api)
	handlers.NewOfflineHandler(replay, offlineQueue, logger).RegisterRoutes(api)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.Server.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// httpProbe reports whether the remote sync endpoint answers its
// health check
func httpProbe(baseURL string) offline.ConnectivityProbe {
	client := &http.Client{Timeout: 3 * time.Second}
	return func(ctx context.Context) bool {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
		if err != nil {
			return false
		}
		resp, err := client.Do(req)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode < http.StatusInternalServerError
	}
}
