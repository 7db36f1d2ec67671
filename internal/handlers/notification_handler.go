package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.notifications.List(c.UserContext(), userID, c.QueryBool("unread"), limit, offset)
	if err != nil {
		return writeError(c, err, "Failed to fetch notifications")
	}
	return c.JSON(dto.ListResponse{Data: items, Total: total, Limit: limit, Offset: offset})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid notification ID")
	}

	if err := h.notifications.MarkRead(c.UserContext(), userID, id); err != nil {
		return writeError(c, err, "Failed to update notification")
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}
