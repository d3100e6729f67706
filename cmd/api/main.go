package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/todo-service/internal/api/http"
	"github.com/spec-kit/todo-service/internal/api/http/handlers"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/config"
	"github.com/spec-kit/todo-service/internal/events"
	"github.com/spec-kit/todo-service/internal/observability"
	"github.com/spec-kit/todo-service/internal/persistence"
	"github.com/spec-kit/todo-service/internal/repository"
	"github.com/spec-kit/todo-service/internal/service"
	"github.com/spec-kit/todo-service/internal/webhook"
	"github.com/spec-kit/todo-service/internal/worker"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(cfg.Postgres.DSN, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var (
		userRepo repository.UserRepository
		taskRepo repository.TaskRepository
	)
	if pg.Enabled() {
		userRepo = repository.NewUserRepository(pg.PoolHandle())
		taskRepo = repository.NewTaskRepository(pg.PoolHandle())
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		store := repository.NewMemoryStore()
		userRepo = store.Users()
		taskRepo = store.Tasks()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	var (
		roles       auth.RoleSource = auth.ClaimRoleSource{}
		invalidator service.RoleCacheInvalidator
	)
	if cfg.Auth.RoleSource == config.RoleSourceProvider {
		providerRoles, err := auth.NewProviderRoleSource(cfg.Auth, logger)
		if err != nil {
			logger.Fatal("failed to init role source", zap.Error(err))
		}
		defer providerRoles.Close()
		roles = providerRoles
		invalidator = providerRoles
	}
	authMiddleware := auth.NewAuthMiddleware(auth.NewResolver(tokens, roles))
	guard := auth.NewGuard()

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger))
	worker.StartMetricsWorker(dispatcher, metrics)

	verifier, err := webhook.NewVerifier(cfg.Webhook.Secret)
	if err != nil {
		logger.Fatal("failed to init webhook verifier", zap.Error(err))
	}
	if cfg.Webhook.Secret == "" {
		logger.Warn("WEBHOOK_SECRET not provided; all webhook deliveries will be rejected")
	}
	var deliveries webhook.DeliveryLog = webhook.NoopDeliveryLog{}
	if redis.Enabled() {
		deliveries = webhook.NewRedisDeliveryLog(redis.Client, cfg.Webhook.DeliveryTTL)
	}

	taskService := service.NewTaskService(service.TaskDependencies{
		TaskRepo:   taskRepo,
		Guard:      guard,
		PageSize:   cfg.Tasks.PageSize,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	subscriptionService := service.NewSubscriptionService(service.SubscriptionDependencies{
		UserRepo:   userRepo,
		Guard:      guard,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		UserRepo:      userRepo,
		Tasks:         taskService,
		Subscriptions: subscriptionService,
		Guard:         guard,
		Logger:        logger,
	})
	provisioningService := service.NewProvisioningService(service.ProvisioningDependencies{
		UserRepo:   userRepo,
		Verifier:   verifier,
		Deliveries: deliveries,
		Roles:      invalidator,
		Guard:      guard,
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	rateLimiter := httptransport.NewRateLimiter(cfg.RateLimit, logger)
	defer rateLimiter.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.RequestTimeout,
		WriteTimeout: cfg.App.RequestTimeout,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Users:          handlers.NewUsersHandler(),
		Tasks:          handlers.NewTasksHandler(taskService),
		Subscription:   handlers.NewSubscriptionHandler(subscriptionService),
		Admin:          handlers.NewAdminHandler(adminService),
		Webhook:        handlers.NewWebhookHandler(provisioningService, metrics, logger),
		AuthMiddleware: authMiddleware,
		RateLimiter:    rateLimiter,
		Metrics:        metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
