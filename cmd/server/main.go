package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erp/platform/internal/application/bootstrap"
	appevent "github.com/erp/platform/internal/application/event"
	appmodule "github.com/erp/platform/internal/application/module"
	appworkflow "github.com/erp/platform/internal/application/workflow"
	"github.com/erp/platform/internal/domain/entity"
	"github.com/erp/platform/internal/domain/module"
	"github.com/erp/platform/internal/infrastructure/cache"
	"github.com/erp/platform/internal/infrastructure/config"
	"github.com/erp/platform/internal/infrastructure/dispatch"
	infraevent "github.com/erp/platform/internal/infrastructure/event"
	"github.com/erp/platform/internal/infrastructure/logger"
	"github.com/erp/platform/internal/infrastructure/persistence"
	"github.com/erp/platform/internal/infrastructure/telemetry"
	"github.com/erp/platform/internal/interfaces/http/dto"
	"github.com/erp/platform/internal/interfaces/http/handler"
	"github.com/erp/platform/internal/interfaces/http/middleware"
	"github.com/erp/platform/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting platform kernel",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := persistence.AutoMigrate(db.DB); err != nil {
		log.Fatal("Failed to run migrations", zap.Error(err))
	}
	log.Info("Database connected")

	// Repositories
	enablementRepo := persistence.NewGormEnablementRepository(db.DB)
	auditRepo := persistence.NewGormEventAuditRepository(db.DB)
	workflowRepo := persistence.NewGormWorkflowRepository(db.DB)

	// Redis backs the distributed event channel and remote de-duplication.
	// The kernel runs single-instance without it.
	var busOptions []appevent.Option
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, running without distributed events", zap.Error(err))
		redisClient = nil
	} else {
		defer func() {
			_ = redisClient.Close()
		}()
		if cfg.Event.DistributedEnabled {
			transport := infraevent.NewRedisTransport(redisClient, log.Named("transport"))
			busOptions = append(busOptions, appevent.WithTransport(transport, cfg.Event.Channel))
		}
		if cfg.Event.DedupEnabled {
			busOptions = append(busOptions, appevent.WithDeduplicator(cache.NewRedisEventMarker(redisClient, "")))
		}
	}

	// Registries
	moduleRegistry := module.NewRegistry(log.Named("modules"))
	entityRegistry := entity.NewRegistry(log.Named("entities"))

	// Event bus, with the workflow engine evaluating triggers on every emit
	eventBus := appevent.NewBus(auditRepo, log.Named("bus"), busOptions...)

	if cfg.Workflow.Enabled {
		engine := appworkflow.NewEngine(
			workflowRepo,
			nil,
			appworkflow.Dispatchers{
				Email:   dispatch.NewLogEmailSender(log.Named("email")),
				SMS:     dispatch.NewLogSMSSender(log.Named("sms")),
				Webhook: dispatch.NewWebhookDispatcher(cfg.Workflow.WebhookTimeout),
				Field:   dispatch.NewEventFieldUpdater(eventBus),
			},
			appworkflow.RetryPolicy{
				MaxAttempts:     cfg.Workflow.MaxAttempts,
				InitialInterval: cfg.Workflow.InitialInterval,
				MaxInterval:     cfg.Workflow.MaxInterval,
				AttemptTimeout:  cfg.Workflow.AttemptTimeout,
			},
			log.Named("workflow"),
		)
		eventBus.SetTriggerEvaluator(engine)
	}

	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Install platform modules
	bootstrapper := bootstrap.NewBootstrapper(moduleRegistry, entityRegistry, eventBus, log.Named("bootstrap"))
	if err := bootstrapper.Install(context.Background(), builtinModules(log)); err != nil {
		log.Fatal("Failed to install platform modules", zap.Error(err))
	}

	// Module enablement service. Plan resolution is a billing collaborator;
	// the static resolver grants every tenant the configured default tier.
	moduleService := appmodule.NewService(
		moduleRegistry,
		enablementRepo,
		&module.StaticPlanResolver{DefaultTier: module.PlanEnterprise},
		eventBus,
		log.Named("enablement"),
	)

	// HTTP surface
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := dto.RegisterValidators(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Recovery(log.Named("http")))
	engine.Use(middleware.RequestLogger(log.Named("http")))
	engine.Use(middleware.CORS(cfg.HTTP.AllowOrigins))

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewHealthHandler(db, redisClient)).
		Register(handler.NewModuleHandler(moduleRegistry, moduleService)).
		Register(handler.NewEntityHandler(entityRegistry)).
		Register(handler.NewEventHandler(eventBus)).
		Register(handler.NewWorkflowHandler(workflowRepo))
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
