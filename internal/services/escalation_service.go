package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EscalationService counts reports against an entity and escalates its
// moderation status forward when thresholds are crossed.
type EscalationService struct {
	db              *gorm.DB
	flagThreshold   int64
	reviewThreshold int64
}

func NewEscalationService(db *gorm.DB, flagThreshold, reviewThreshold int64) *EscalationService {
	if flagThreshold <= 0 {
		flagThreshold = 5
	}
	if reviewThreshold < flagThreshold {
		reviewThreshold = flagThreshold
	}
	return &EscalationService{db: db, flagThreshold: flagThreshold, reviewThreshold: reviewThreshold}
}

// Escalation is the result of one increment.
type Escalation struct {
	ReportCount      int64
	ModerationStatus models.ModerationStatus
}

// IncrementReportCount adds exactly one report to the entity. The increment
// and the threshold evaluation run in a single UPDATE; the new values are
// read back inside the same transaction, so concurrent increments are never
// lost and the status only moves forward.
func (s *EscalationService) IncrementReportCount(ctx context.Context, targetType models.TargetType, id uuid.UUID) (*Escalation, error) {
	var out *Escalation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		out, err = s.increment(tx, targetType, id)
		return err
	})
	if err != nil {
		var appErr *Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to increment report count: %w", err)
	}
	out.observe()
	return out, nil
}

func (e *Escalation) observe() {
	if e.ModerationStatus != "" {
		metrics.EscalationsTotal.WithLabelValues(string(e.ModerationStatus)).Inc()
	}
}

// increment runs inside the caller's transaction.
func (s *EscalationService) increment(tx *gorm.DB, targetType models.TargetType, id uuid.UUID) (*Escalation, error) {
	if targetType == models.TargetUser {
		res := tx.Model(&models.User{}).Where("id = ?", id).
			UpdateColumn("report_count", gorm.Expr("report_count + 1"))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, notFoundError("reported user not found")
		}
		var u models.User
		if err := tx.Select("report_count").First(&u, "id = ?", id).Error; err != nil {
			return nil, err
		}
		return &Escalation{ReportCount: u.ReportCount}, nil
	}

	res := tx.Model(&models.Content{}).
		Where("id = ? AND kind = ?", id, targetType).
		UpdateColumns(map[string]interface{}{
			"report_count":      gorm.Expr("report_count + 1"),
			"moderation_status": s.escalationExpr(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, notFoundError("reported content not found")
	}
	var c models.Content
	if err := tx.Select("report_count", "moderation_status").First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &Escalation{ReportCount: c.ReportCount, ModerationStatus: c.ModerationStatus}, nil
}

// SetModerationStatus is the manual path (admin removal). It may move the
// status in any direction.
func (s *EscalationService) SetModerationStatus(ctx context.Context, id uuid.UUID, status models.ModerationStatus) error {
	if status.Rank() < 0 {
		return validationError("invalid moderation status: %s", status)
	}
	res := s.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", id).
		UpdateColumn("moderation_status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to set moderation status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return notFoundError("content not found")
	}
	return nil
}

// escalationExpr evaluates against the pre-update row, so report_count + 1
// is the new count.
func (s *EscalationService) escalationExpr() clause.Expr {
	return gorm.Expr(`CASE
		WHEN report_count + 1 >= ? AND moderation_status IN (?, ?) THEN ?
		WHEN report_count + 1 >= ? AND moderation_status = ? THEN ?
		ELSE moderation_status END`,
		s.reviewThreshold, models.ModerationApproved, models.ModerationFlagged, models.ModerationUnderReview,
		s.flagThreshold, models.ModerationApproved, models.ModerationFlagged,
	)
}
