package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/config"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Health       *handlers.HealthHandler
	Moderation   *handlers.ModerationHandler
	Enforcement  *handlers.EnforcementHandler
	Notification *handlers.NotificationHandler
}

func Setup(app *fiber.App, cfg *config.Config, gate *services.Gate, h Handlers) {
	app.Get("/metrics", middleware.MetricsGuard(cfg), adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)

	api.Get("/session", middleware.OptionalAuth(gate), h.Auth.Session)

	// Every protected route re-checks epoch and restriction state on each call.
	active := []fiber.Handler{middleware.JWTProtected(cfg), middleware.RequireActiveAccount(gate)}
	protect := func(handler fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, active...), handler)
	}

	api.Post("/auth/logout", protect(h.Auth.Logout)...)
	api.Post("/reports", protect(h.Moderation.CreateReport)...)
	api.Get("/me/status", protect(h.Enforcement.MyStatus)...)
	api.Get("/notifications", protect(h.Notification.List)...)
	api.Post("/notifications/:id/read", protect(h.Notification.MarkRead)...)

	admin := api.Group("/admin", active...)

	// Review queue: moderators and admins
	staff := middleware.RequireRole(cfg, models.RoleModerator, models.RoleAdmin)
	admin.Get("/reports", staff, h.Moderation.ListReports)
	admin.Get("/reports/:id", staff, h.Moderation.GetReport)
	admin.Put("/reports/:id", staff, h.Moderation.ReviewReport)

	// Account enforcement: admins only
	users := admin.Group("/users", middleware.RequireRole(cfg, models.RoleAdmin))
	users.Post("/:id/warn", h.Enforcement.Warn)
	users.Post("/:id/restrict", h.Enforcement.Restrict)
	users.Post("/:id/unrestrict", h.Enforcement.Unrestrict)
	users.Post("/:id/unban", h.Enforcement.Unban)
	users.Get("/:id/status", h.Enforcement.Status)
	users.Get("/:id/history", h.Enforcement.History)
}
