package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/alerts"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinDescriptionLength = 10
	MaxDescriptionLength = 2000
)

var ErrReportNotFound = &Error{Kind: ErrNotFound, Message: "report not found"}

// ModerationService is the report ledger: intake, deduplication, priority
// classification and admin review.
type ModerationService struct {
	db          *gorm.DB
	priorities  *PriorityTable
	escalation  *EscalationService
	enforcement *EnforcementService
	events      alerts.Publisher
	now         func() time.Time
}

func NewModerationService(db *gorm.DB, priorities *PriorityTable, escalation *EscalationService, enforcement *EnforcementService, events alerts.Publisher) *ModerationService {
	return &ModerationService{
		db:          db,
		priorities:  priorities,
		escalation:  escalation,
		enforcement: enforcement,
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (for testing).
func (s *ModerationService) SetClock(now func() time.Time) {
	s.now = now
}

type SubmitReportInput struct {
	ReporterID  uuid.UUID
	TargetType  models.TargetType
	TargetID    uuid.UUID
	Reason      models.ReportReason
	Description string
	Priority    *models.Priority
}

func (in *SubmitReportInput) validate() error {
	if !in.TargetType.Valid() {
		return validationError("invalid target_type: must be post, comment, user, or message")
	}
	if in.TargetID == uuid.Nil {
		return validationError("target_id is required")
	}
	if !in.Reason.Valid() {
		return validationError("invalid reason: %q", in.Reason)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(in.Description))
	if n < MinDescriptionLength {
		return validationError("description must be at least %d characters", MinDescriptionLength)
	}
	if n > MaxDescriptionLength {
		return validationError("description must be under %d characters", MaxDescriptionLength)
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return validationError("invalid priority: must be low, medium, high, or critical")
	}
	return nil
}

// SubmitReport records a report and escalates its target. The report row and
// the counter increment commit together. High and critical reports are
// handed to the alert fanout after commit; a fanout failure never affects
// the stored report.
func (s *ModerationService) SubmitReport(ctx context.Context, in SubmitReportInput) (*models.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)

	var reporter models.User
	if err := db.First(&reporter, "id = ?", in.ReporterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("reporter not found")
		}
		return nil, fmt.Errorf("failed to load reporter: %w", err)
	}

	var existing int64
	if err := db.Model(&models.Report{}).
		Where("reporter_id = ? AND target_type = ? AND target_id = ?", in.ReporterID, in.TargetType, in.TargetID).
		Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check for duplicate report: %w", err)
	}
	if existing > 0 {
		metrics.ReportConflictsTotal.Inc()
		return nil, conflictError("you have already reported this " + string(in.TargetType))
	}

	ownerID, err := s.resolveTargetOwner(ctx, in.TargetType, in.TargetID)
	if err != nil {
		return nil, err
	}
	if ownerID == in.ReporterID {
		return nil, validationError("you cannot report your own %s", in.TargetType)
	}

	priority := s.priorities.Resolve(in.Reason, in.Priority)
	report := models.Report{
		ID:           uuid.New(),
		ReporterID:   in.ReporterID,
		TargetType:   in.TargetType,
		TargetID:     in.TargetID,
		Reason:       in.Reason,
		Description:  strings.TrimSpace(in.Description),
		Priority:     priority,
		PriorityRank: priority.Weight(),
		Status:       models.ReportPending,
		CreatedAt:    s.now(),
	}

	var escalation *Escalation
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		var err error
		escalation, err = s.escalation.increment(tx, in.TargetType, in.TargetID)
		return err
	})
	if err != nil {
		var appErr *Error
		switch {
		case errors.As(err, &appErr):
			return nil, err
		case isUniqueViolation(err):
			metrics.ReportConflictsTotal.Inc()
			return nil, conflictError("you have already reported this " + string(in.TargetType))
		}
		return nil, fmt.Errorf("failed to create report: %w", err)
	}
	escalation.observe()

	metrics.ReportsSubmittedTotal.WithLabelValues(string(report.TargetType), string(report.Priority)).Inc()
	slog.Info("report submitted",
		"report_id", report.ID.String(),
		"target_type", string(report.TargetType),
		"priority", string(report.Priority),
		"report_count", escalation.ReportCount,
	)

	if report.Priority.Urgent() {
		s.events.Publish(ctx, alerts.ReportCreated(&report, &reporter))
	}
	return &report, nil
}

// resolveTargetOwner returns the account responsible for the target: the user
// itself, or the content author.
func (s *ModerationService) resolveTargetOwner(ctx context.Context, targetType models.TargetType, id uuid.UUID) (uuid.UUID, error) {
	db := s.db.WithContext(ctx)
	if targetType == models.TargetUser {
		var u models.User
		if err := db.Select("id").First(&u, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return uuid.Nil, notFoundError("reported user not found")
			}
			return uuid.Nil, fmt.Errorf("failed to load reported user: %w", err)
		}
		return u.ID, nil
	}

	var c models.Content
	if err := db.Select("id", "author_id").First(&c, "id = ? AND kind = ?", id, targetType).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, notFoundError("reported " + string(targetType) + " not found")
		}
		return uuid.Nil, fmt.Errorf("failed to load reported content: %w", err)
	}
	return c.AuthorID, nil
}

type ReportFilter struct {
	Status     models.ReportStatus
	Priority   models.Priority
	TargetType models.TargetType
	Limit      int
	Offset     int
}

// ListReports returns the review queue: most urgent first, oldest first
// within a priority.
func (s *ModerationService) ListReports(ctx context.Context, f ReportFilter) ([]models.Report, int64, error) {
	var reports []models.Report
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Report{})
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Priority != "" {
		query = query.Where("priority = ?", f.Priority)
	}
	if f.TargetType != "" {
		query = query.Where("target_type = ?", f.TargetType)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if err := query.Order("priority_rank DESC").Order("created_at ASC").
		Limit(f.Limit).Offset(f.Offset).Find(&reports).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	return reports, total, nil
}

func (s *ModerationService) GetReport(ctx context.Context, id uuid.UUID) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to load report: %w", err)
	}
	return &report, nil
}

// ReviewDecision is an admin decision on a report. ActionTaken only applies
// to accepted reports.
type ReviewDecision struct {
	Status        models.ReportStatus
	ActionTaken   *models.ActionTaken
	Reason        string
	DurationHours *int
	Note          string
}

func (d *ReviewDecision) validate() error {
	if !d.Status.Valid() || d.Status == models.ReportPending {
		return validationError("invalid status: must be reviewing, accepted, declined, or resolved")
	}
	if d.ActionTaken == nil {
		return nil
	}
	if d.Status != models.ReportAccepted {
		return validationError("action_taken is only allowed when accepting a report")
	}
	in := RestrictInput{Reason: "placeholder", ActionTaken: *d.ActionTaken, DurationHours: d.DurationHours}
	return in.validate()
}

// ReviewReport applies an admin decision. Accepting with an action enforces
// it against the offending account before the report is updated, so a
// failed action leaves the report untouched.
func (s *ModerationService) ReviewReport(ctx context.Context, reportID, adminID uuid.UUID, d ReviewDecision) (*models.Report, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	report, err := s.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if d.ActionTaken != nil {
		if err := s.applyAction(ctx, report, adminID, d); err != nil {
			return nil, err
		}
	}

	now := s.now()
	updates := map[string]interface{}{
		"status":     d.Status,
		"admin_note": d.Note,
		"updated_at": now,
	}
	if d.Status != models.ReportReviewing {
		updates["reviewed_at"] = now
		updates["reviewed_by"] = adminID
	}
	if d.ActionTaken != nil {
		updates["action_taken"] = *d.ActionTaken
	}

	res := s.db.WithContext(ctx).Model(&models.Report{}).Where("id = ?", reportID).UpdateColumns(updates)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrReportNotFound
	}
	metrics.ReportReviewsTotal.WithLabelValues(string(d.Status)).Inc()
	slog.Info("report reviewed", "report_id", reportID.String(), "admin_id", adminID.String(), "status", string(d.Status))

	switch d.Status {
	case models.ReportAccepted:
		s.events.Publish(ctx, alerts.UserNotice(report.ReporterID, models.NotifyReportAccepted, map[string]any{
			"report_id": report.ID,
		}))
	case models.ReportDeclined:
		s.events.Publish(ctx, alerts.UserNotice(report.ReporterID, models.NotifyReportDeclined, map[string]any{
			"report_id": report.ID,
		}))
	}
	return s.GetReport(ctx, reportID)
}

func (s *ModerationService) applyAction(ctx context.Context, report *models.Report, adminID uuid.UUID, d ReviewDecision) error {
	offender, err := s.resolveTargetOwner(ctx, report.TargetType, report.TargetID)
	if err != nil {
		return err
	}
	reason := strings.TrimSpace(d.Reason)
	if reason == "" {
		reason = "Violation: " + string(report.Reason)
	}

	switch *d.ActionTaken {
	case models.ActionWarning:
		_, err = s.enforcement.Warn(ctx, offender, adminID, reason, &report.ID)
	case models.ActionContentRemoved:
		if !report.TargetType.IsContent() {
			return validationError("content_removed requires a content target")
		}
		if err = s.escalation.SetModerationStatus(ctx, report.TargetID, models.ModerationRemoved); err != nil {
			return err
		}
		_, err = s.enforcement.Warn(ctx, offender, adminID, reason, &report.ID)
	default:
		_, err = s.enforcement.Restrict(ctx, offender, adminID, RestrictInput{
			Reason:        reason,
			ActionTaken:   *d.ActionTaken,
			ReportID:      &report.ID,
			DurationHours: d.DurationHours,
		})
	}
	return err
}
