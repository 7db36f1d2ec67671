package handlers

import (
	"strconv"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ModerationHandler struct {
	moderationService *services.ModerationService
}

func NewModerationHandler(moderationService *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderationService: moderationService}
}

func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	in := services.SubmitReportInput{
		ReporterID:  userID,
		TargetType:  models.TargetType(req.TargetType),
		TargetID:    req.TargetID,
		Reason:      models.ReportReason(req.Reason),
		Description: req.Description,
	}
	if req.Priority != "" {
		p := models.Priority(req.Priority)
		in.Priority = &p
	}

	report, err := h.moderationService.SubmitReport(c.UserContext(), in)
	if err != nil {
		return writeError(c, err, "Failed to create report")
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	offset, _ := strconv.Atoi(c.Query("offset", "0"))

	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	reports, total, err := h.moderationService.ListReports(c.UserContext(), services.ReportFilter{
		Status:     models.ReportStatus(c.Query("status")),
		Priority:   models.Priority(c.Query("priority")),
		TargetType: models.TargetType(c.Query("target_type")),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return writeError(c, err, "Failed to fetch reports")
	}

	return c.JSON(dto.ListResponse{
		Data:   reports,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

func (h *ModerationHandler) GetReport(c *fiber.Ctx) error {
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	report, err := h.moderationService.GetReport(c.UserContext(), reportID)
	if err != nil {
		return writeError(c, err, "Failed to fetch report")
	}
	return c.JSON(report)
}

func (h *ModerationHandler) ReviewReport(c *fiber.Ctx) error {
	adminID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.ReviewReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	decision := services.ReviewDecision{
		Status:        models.ReportStatus(req.Status),
		Reason:        req.Reason,
		DurationHours: req.DurationHours,
		Note:          req.AdminNote,
	}
	if req.ActionTaken != "" {
		// Moderators triage the queue; enforcement actions stay with admins.
		if identity := middleware.GetIdentity(c); identity == nil || !identity.IsAdmin() {
			return forbidden(c, "Only admins can take enforcement action on a report")
		}
		action := models.ActionTaken(req.ActionTaken)
		decision.ActionTaken = &action
	}

	report, err := h.moderationService.ReviewReport(c.UserContext(), reportID, adminID, decision)
	if err != nil {
		return writeError(c, err, "Failed to update report")
	}
	return c.JSON(report)
}
