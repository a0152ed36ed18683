package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/alert-bridge/internal/api/http"
	"github.com/spec-kit/alert-bridge/internal/api/http/handlers"
	"github.com/spec-kit/alert-bridge/internal/config"
	"github.com/spec-kit/alert-bridge/internal/correlation"
	"github.com/spec-kit/alert-bridge/internal/events"
	"github.com/spec-kit/alert-bridge/internal/normalize"
	"github.com/spec-kit/alert-bridge/internal/observability"
	"github.com/spec-kit/alert-bridge/internal/persistence"
	"github.com/spec-kit/alert-bridge/internal/repository"
	"github.com/spec-kit/alert-bridge/internal/service"
	"github.com/spec-kit/alert-bridge/internal/summarize"
	"github.com/spec-kit/alert-bridge/internal/tickets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	correlations, err := correlation.NewRedisStore(redis)
	if err != nil {
		logger.Fatal("failed to init correlation store", zap.Error(err))
	}

	primary, err := tickets.NewGitLabStore(cfg.GitLab)
	if err != nil {
		logger.Fatal("failed to init primary ticket store", zap.Error(err))
	}
	secondary, err := tickets.NewTrackerStore(cfg.Tracker)
	if err != nil {
		logger.Fatal("failed to init secondary ticket store", zap.Error(err))
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	var deliveryRepo repository.DeliveryRepository
	if pool := pg.PoolHandle(); pool != nil {
		deliveryRepo = repository.NewDeliveryRepository(pool)
	}
	auditService := service.NewAuditService(deliveryRepo, dispatcher, metrics, logger, deliveryRepo != nil)
	auditService.RegisterHandlers()

	lifecycleService := service.NewLifecycleService(*cfg, service.LifecycleDependencies{
		Correlations: correlations,
		Primary:      primary,
		Secondary:    secondary,
		Summarizer:   summarize.New(cfg.Summary),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	escalationService := service.NewEscalationService(*cfg, lifecycleService, secondary, logger)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Events:        handlers.NewEventsHandler(normalize.New(cfg.Bridge.PrimaryFrameLimit), lifecycleService),
		Tasks:         handlers.NewTasksHandler(escalationService),
		Deliveries:    handlers.NewDeliveriesHandler(auditService),
		WebhookSecret: cfg.Webhook.Secret,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
