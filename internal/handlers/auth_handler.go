package handlers

import (
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.authService.Login(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err, "Internal server error")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.RefreshToken == "" {
		return badRequest(c, "refresh_token is required")
	}

	resp, err := h.authService.Refresh(c.UserContext(), &req)
	if err != nil {
		return writeError(c, err, "Internal server error")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := h.authService.Logout(c.UserContext(), &req); err != nil {
		return writeError(c, err, "Failed to logout")
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Session reports who the caller is. Anonymous callers get a null identity.
func (h *AuthHandler) Session(c *fiber.Ctx) error {
	identity := middleware.GetIdentity(c)
	return c.JSON(fiber.Map{
		"authenticated": identity != nil,
		"identity":      identity,
	})
}
