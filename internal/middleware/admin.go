package middleware

import (
	"strings"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/config"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/gofiber/fiber/v2"
)

// RequireRole admits callers holding one of the given roles. It must run
// after RequireActiveAccount. Accounts listed in ADMIN_USER_IDS count as
// admins regardless of their stored role, and the attached identity is
// updated so handlers see the effective role.
func RequireRole(cfg *config.Config, roles ...models.Role) fiber.Handler {
	adminUserIDs := parseCSV(cfg.AdminUserIDs)

	return func(c *fiber.Ctx) error {
		identity := GetIdentity(c)
		if identity == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if identity.Role != models.RoleAdmin && contains(adminUserIDs, identity.UserID.String()) {
			elevated := *identity
			elevated.Role = models.RoleAdmin
			setIdentity(c, &elevated)
			identity = &elevated
		}
		for _, allowed := range roles {
			if identity.Role == allowed {
				return c.Next()
			}
		}

		metrics.GateDenialsTotal.WithLabelValues("insufficient_role").Inc()
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Insufficient role for this action",
		})
	}
}

// MetricsGuard requires X-Admin-Token on scrape requests when ADMIN_TOKEN is
// configured.
func MetricsGuard(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminToken == "" || c.Get("X-Admin-Token") == cfg.AdminToken {
			return c.Next()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if strings.EqualFold(item, val) {
			return true
		}
	}
	return false
}
