package main

import (
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/alerts"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/config"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/database"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/logging"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/routes"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		pgLogHandler,
	)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

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

	// Alert fanout
	var deliverer alerts.Deliverer = alerts.LogDeliverer{}
	if cfg.DeliveryWebhookURL != "" {
		deliverer = alerts.NewWebhookDeliverer(cfg.DeliveryWebhookURL, cfg.DeliveryTimeout)
	}
	directory := services.NewUserDirectory(database.DB, parseAdminIDs(cfg.AdminUserIDs))
	fanout := alerts.NewFanout(database.DB, deliverer, directory, alerts.Options{
		DeliveryTimeout: cfg.DeliveryTimeout,
		DedupWindow:     cfg.AlertDedupWindow,
	})
	dispatcher := alerts.NewDispatcher(fanout, cfg.AlertQueueSize, cfg.AlertWorkers)

	// Services
	priorities := services.NewPriorityTable(cfg.PriorityOverrideMap())
	escalationService := services.NewEscalationService(database.DB, cfg.FlagThreshold, cfg.ReviewThreshold)
	enforcementService := services.NewEnforcementService(database.DB, dispatcher)
	moderationService := services.NewModerationService(database.DB, priorities, escalationService, enforcementService, dispatcher)
	authService := services.NewAuthService(database.DB, cfg)
	notificationService := services.NewNotificationService(database.DB)
	gate := services.NewGate(database.DB, enforcementService, cfg.JWTSecret)

	sweepDone := make(chan struct{})
	enforcementService.StartExpirySweep(cfg.ExpirySweepInterval, sweepDone)

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
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.Metrics())
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, gate, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService),
		Health:       handlers.NewHealthHandler(database.Ping),
		Moderation:   handlers.NewModerationHandler(moderationService),
		Enforcement:  handlers.NewEnforcementHandler(enforcementService),
		Notification: handlers.NewNotificationHandler(notificationService),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
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

	close(sweepDone)
	dispatcher.Stop()
	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func parseAdminIDs(csv string) []uuid.UUID {
	var ids []uuid.UUID
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			slog.Warn("ignoring invalid admin user id", "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
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
			"request_id", c.Locals("requestid"),
			"error", err.Error(),
		)
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
