package middleware

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/config"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

func JWTProtected(cfg *config.Config) fiber.Handler {
	return jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwtware.HS256, Key: []byte(cfg.JWTSecret)},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			reason := "malformed_token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				reason = "expired_token"
			} else if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				reason = "missing_token"
			}
			metrics.GateDenialsTotal.WithLabelValues(reason).Inc()
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Unauthorized: invalid or expired token",
			})
		},
	})
}

// RequireActiveAccount runs after JWTProtected. It rejects tokens from an
// older session epoch and accounts that are currently restricted.
func RequireActiveAccount(gate *services.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		identity, err := gate.AuthorizeToken(c.UserContext(), token)
		if err != nil {
			return denied(c, err)
		}
		setIdentity(c, identity)
		return c.Next()
	}
}

// OptionalAuth admits every caller. The identity is attached only when the
// token authenticates and the account is not restricted; anything else
// continues as anonymous. Store failures still abort the request.
func OptionalAuth(gate *services.Gate) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(fiber.HeaderAuthorization)
		if raw == "" {
			return c.Next()
		}

		identity, err := gate.Authorize(c.UserContext(), raw)
		switch {
		case err == nil:
			setIdentity(c, identity)
		case errors.Is(err, services.ErrAuthentication), errors.Is(err, services.ErrAuthorization):
			// anonymous
		default:
			return denied(c, err)
		}
		return c.Next()
	}
}

func denied(c *fiber.Ctx, err error) error {
	var restricted *services.RestrictionError
	switch {
	case errors.As(err, &restricted):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error:       true,
			Message:     restricted.Error(),
			Restriction: restricted.Status,
		})
	case errors.Is(err, services.ErrAuthentication):
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: "Failed to authorize request",
	})
}
