package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/redis/go-redis/v9"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps/activities"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/apps/connections"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/push"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/queue"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/sweeper"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	db := database.DB

	if err := database.Migrate(db); err != nil {
		slog.Error("core migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(db, 5*time.Second)
	logging.Setup(cfg.AppEnv, pgLogHandler)

	// Detached tasks: asynq when Redis is configured, goroutines otherwise
	tasks, worker, rdb, err := newQueue(cfg)
	if err != nil {
		slog.Error("queue setup failed", "error", err)
		os.Exit(1)
	}

	// Push
	dispatcher := push.NewBatcher(
		push.NewExpoProvider(cfg.ExpoPushURL, cfg.ExpoAccessToken, cfg.PushTimeout, cfg.PushRatePerSecond),
		cfg.PushBatchSize,
		cfg.PushConcurrency,
	)

	// Services
	blockService := services.NewBlockService(db)
	friendService := services.NewFriendService(db)
	notificationService := services.NewNotificationService(db)
	broadcaster := services.NewBroadcaster(db, notificationService, blockService, friendService, tasks)
	proximityService := services.NewProximityService(db, services.NewVisibilityPolicy(blockService))
	distressService := services.NewDistressService(db, broadcaster)
	routeService := services.NewRouteService(db, tasks)
	userService := services.NewUserService(db)
	subscriptionService := services.NewSubscriptionService(db)
	lifecycleService := services.NewLifecycleService(db)

	services.RegisterTasks(worker, broadcaster, dispatcher)

	deps := apps.Deps{
		DB:          db,
		Config:      cfg,
		Tasks:       tasks,
		Broadcaster: broadcaster,
		Blocks:      blockService,
		Friends:     friendService,
	}

	plugins := []apps.Plugin{
		activities.New(),
		connections.New(),
	}

	// Migrate plugin models
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(db, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Lifecycle sweeper
	jobs := []sweeper.Job{
		{Name: "distress-expiry", Interval: cfg.DistressSweepInterval, Run: lifecycleService.ExpireDistress},
		{Name: "system-logs", Interval: cfg.LogSweepInterval, Run: func(ctx context.Context) (int64, error) {
			return logging.PurgeSystemLogs(ctx, db, time.Now().UTC().Add(-cfg.LogRetention))
		}},
	}
	for _, p := range plugins {
		if sp, ok := p.(apps.SweepPlugin); ok {
			jobs = append(jobs, sp.SweepJobs(deps)...)
		}
	}
	sweep := sweeper.New(jobs...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := worker.Run(ctx); err != nil {
			slog.Error("task worker stopped", "error", err)
		}
	}()
	sweep.Start(ctx)

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, db, routes.Handlers{
		Health:        handlers.NewHealthHandler(db, rdb),
		Proximity:     handlers.NewProximityHandler(proximityService),
		Distress:      handlers.NewDistressHandler(distressService),
		Users:         handlers.NewUserHandler(userService, routeService),
		Notifications: handlers.NewNotificationHandler(notificationService, broadcaster),
		Blocks:        handlers.NewBlockHandler(blockService),
		Webhooks:      handlers.NewWebhookHandler(subscriptionService, cfg.RevenueCatWebhookAuth),
		Admin:         handlers.NewAdminHandler(sweep),
	}, plugins, deps)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "redis_queue", cfg.UseRedisQueue())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	sweep.Stop()

	// In-flight fan-outs get a grace period; anything left is dropped.
	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := worker.Stop(stopCtx); err != nil {
		slog.Warn("task worker did not drain", "error", err)
	}
	stopCancel()
	cancel()

	if err := tasks.Close(); err != nil {
		slog.Error("task client close error", "error", err)
	}
	if rdb != nil {
		_ = rdb.Close()
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

// newQueue picks the task backend. The redis client is only returned for
// health checks and is nil for the in-process queue.
func newQueue(cfg *config.Config) (queue.Client, queue.Server, *redis.Client, error) {
	if !cfg.UseRedisQueue() {
		q := queue.NewInProcess(cfg.QueueConcurrency, cfg.TaskTimeout)
		return q, q, nil, nil
	}

	client, err := queue.NewAsynqClient(cfg.RedisURL, cfg.TaskTimeout)
	if err != nil {
		return nil, nil, nil, err
	}
	server, err := queue.NewAsynqServer(cfg.RedisURL, cfg.QueueConcurrency)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		_ = client.Close()
		return nil, nil, nil, err
	}
	return client, server, redis.NewClient(opt), nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
