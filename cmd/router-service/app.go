package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"switchyard/internal/api"
	"switchyard/internal/audit"
	"switchyard/internal/broker"
	"switchyard/internal/config"
	"switchyard/internal/config_handler"
	"switchyard/internal/constants"
	"switchyard/internal/dispatch"
	"switchyard/internal/logger"
	"switchyard/internal/orchestration"
	"switchyard/internal/orchestrator"
	"switchyard/internal/routing"
	"switchyard/pkg/bootstrap"
	"switchyard/pkg/cel"
	"switchyard/pkg/health"
	"switchyard/pkg/logging"
	"switchyard/pkg/metrics"
	"switchyard/pkg/middleware"
	"switchyard/pkg/models"
	"switchyard/pkg/ratelimit"
	"switchyard/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	mongoClient    *mongo.Client
	registry       *orchestration.Registry
	engine         *routing.Engine
	service        *orchestrator.Service
	trail          *audit.Trail
	auditCancel    context.CancelFunc
	tracerProvider *tracing.TracerProvider
	server         *http.Server
	router         *gin.Engine
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitBroker(constants.ServiceName); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	if err := a.initOrchestrations(ctx); err != nil {
		return fmt.Errorf("failed to load orchestrations: %w", err)
	}

	if err := a.initAudit(ctx); err != nil {
		return fmt.Errorf("failed to initialize audit trail: %w", err)
	}

	a.initService()

	if a.Config.Broker.Kafka.ProvisionTargets {
		if err := a.provisionTopics(ctx); err != nil {
			return fmt.Errorf("failed to provision topics: %w", err)
		}
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterRouterMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterAPIMetrics()
	if a.Config.Audit.Enabled {
		metrics.RegisterAuditMetrics()
	}
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initOrchestrations(ctx context.Context) error {
	evaluator := cel.NewEvaluator()
	loader := orchestration.NewFileLoader(evaluator, a.Logger)
	a.registry = orchestration.NewRegistry(loader, a.Config.Orchestrations, a.Logger)
	if err := a.registry.LoadAll(ctx); err != nil {
		return err
	}

	engine := routing.NewEngine(evaluator, a.Logger)
	a.engine = engine
	return nil
}

func (a *App) initAudit(ctx context.Context) error {
	if !a.Config.Audit.Enabled {
		return nil
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if a.Config.Audit.Sink == "mongodb" {
		client, err := a.dbConnector.InitMongoDB(initCtx)
		if err != nil {
			return err
		}
		a.mongoClient = client
		if client == nil {
			a.Logger.Warnw("Audit sink is mongodb but no URI is configured, using the log sink")
		}
	}

	store, err := audit.NewStore(initCtx, a.mongoClient, a.Config.Audit, a.Logger)
	if err != nil {
		return err
	}

	a.trail = audit.NewTrail(store, a.Logger)
	auditCtx, cancel := context.WithCancel(context.Background())
	a.auditCancel = cancel
	a.trail.Start(auditCtx)
	return nil
}

func (a *App) initService() {
	dispatcher := dispatch.NewDispatcher(a.Producer, a.Config.CircuitBreaker, a.Logger)

	deadLetterTarget := a.Config.Routing.DeadLetterTarget
	if deadLetterTarget == "" {
		deadLetterTarget = constants.DefaultDeadLetterTarget
	}

	a.service = orchestrator.NewService(
		a.registry,
		a.engine,
		dispatcher,
		a.trail,
		deadLetterTarget,
		a.Config.Bulk.Workers,
		a.Logger,
	)
}

func (a *App) provisionTopics(ctx context.Context) error {
	deadLetterTarget := a.Config.Routing.DeadLetterTarget
	if deadLetterTarget == "" {
		deadLetterTarget = constants.DefaultDeadLetterTarget
	}

	initializer := broker.NewTopicInitializer(a.Config.Broker.Kafka, a.Logger)
	topics := broker.RouterTopics(a.Config.Broker.Kafka, deadLetterTarget, a.registry.Targets())
	return initializer.EnsureTopics(ctx, topics)
}

func (a *App) initHTTPServer() error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())

	if a.Config.API.RateLimit.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             a.Config.API.RateLimit.RPS,
			Burst:           a.Config.API.RateLimit.Burst,
			CleanupInterval: time.Duration(a.Config.API.RateLimit.CleanupInterval) * time.Second,
			MaxAge:          time.Duration(a.Config.API.RateLimit.MaxAge) * time.Second,
		}
		router.Use(ratelimit.RateLimitMiddleware(rateLimitConfig))
	}

	api.NewHandler(a.service, a.registry, a.Logger).RegisterRoutes(router)

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewKafkaChecker(a.Config.Broker.Kafka.Brokers))
	healthRegistry.Register(health.NewOrchestrationsChecker(a.registry.Names))
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	router.GET("/health", func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router = router
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds * time.Second,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds * time.Second,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	if a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
		if err != nil {
			configCtx := logging.WithServiceName(ctx, constants.ServiceName)
			a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
				"error", err,
			)
		} else {
			configConsumer.SetServiceName(constants.ServiceName)
			defer configConsumer.Close()
			updateHandler := config_handler.NewHandler(a.registry, a.Logger)

			g.Go(func() error {
				configCtx := logging.WithServiceName(gCtx, constants.ServiceName)
				a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
					"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
				)
				return configConsumer.Consume(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, updateHandler.HandleUpdateEvent)
			})
		}
	}

	inputTopic := a.Config.Broker.Kafka.InputTopic
	g.Go(func() error {
		return a.Consumer.Consume(gCtx, inputTopic, a.handleEvent)
	})

	return g.Wait()
}

func (a *App) handleEvent(ctx context.Context, event models.Event) error {
	_, err := a.service.ProcessEvent(ctx, event)
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down router service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.trail != nil {
			a.auditCancel()
			if err := a.trail.Stop(ctx); err != nil {
				errs = append(errs, fmt.Errorf("audit trail shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}
