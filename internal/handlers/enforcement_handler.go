package handlers

import (
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type EnforcementHandler struct {
	enforcement *services.EnforcementService
}

func NewEnforcementHandler(enforcement *services.EnforcementService) *EnforcementHandler {
	return &EnforcementHandler{enforcement: enforcement}
}

func (h *EnforcementHandler) Warn(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var req dto.WarnRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	warning, err := h.enforcement.Warn(c.UserContext(), userID, adminID, req.Reason, req.ReportID)
	if err != nil {
		return writeError(c, err, "Failed to warn user")
	}
	return c.Status(fiber.StatusCreated).JSON(warning)
}

func (h *EnforcementHandler) Restrict(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	if userID == adminID {
		return badRequest(c, "You cannot restrict your own account")
	}

	var req dto.RestrictRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	event, err := h.enforcement.Restrict(c.UserContext(), userID, adminID, services.RestrictInput{
		Reason:        req.Reason,
		ActionTaken:   models.ActionTaken(req.ActionTaken),
		ReportID:      req.ReportID,
		DurationHours: req.DurationHours,
	})
	if err != nil {
		return writeError(c, err, "Failed to restrict user")
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func (h *EnforcementHandler) Unrestrict(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var req dto.UnrestrictRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	if _, err := h.enforcement.Unrestrict(c.UserContext(), userID, &adminID, req.Note); err != nil {
		return writeError(c, err, "Failed to unrestrict user")
	}
	return h.respondStatus(c, userID)
}

func (h *EnforcementHandler) Unban(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	var req dto.UnrestrictRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body")
		}
	}

	if _, err := h.enforcement.Unban(c.UserContext(), userID, adminID, req.Note); err != nil {
		return writeError(c, err, "Failed to unban user")
	}
	return h.respondStatus(c, userID)
}

func (h *EnforcementHandler) Status(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}
	return h.respondStatus(c, userID)
}

func (h *EnforcementHandler) History(c *fiber.Ctx) error {
	userID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid user ID")
	}

	history, err := h.enforcement.History(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err, "Failed to fetch history")
	}
	return c.JSON(history)
}

// MyStatus is reachable only by active accounts, so it mostly reports the
// warned flag; restricted callers get their status from the 403 body.
func (h *EnforcementHandler) MyStatus(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	return h.respondStatus(c, userID)
}

func (h *EnforcementHandler) respondStatus(c *fiber.Ctx, userID uuid.UUID) error {
	status, err := h.enforcement.GetStatus(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err, "Failed to fetch status")
	}
	return c.JSON(status)
}
