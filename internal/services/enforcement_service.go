package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/alerts"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MinSuspensionHours = 1
	MaxSuspensionHours = 8760
)

// EnforcementService owns the account restriction state. Every write is a
// conditional UPDATE on the users row, committed together with the history
// row it produces.
type EnforcementService struct {
	db     *gorm.DB
	events alerts.Publisher
	now    func() time.Time
}

func NewEnforcementService(db *gorm.DB, events alerts.Publisher) *EnforcementService {
	return &EnforcementService{
		db:     db,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source (for testing).
func (s *EnforcementService) SetClock(now func() time.Time) {
	s.now = now
}

type RestrictInput struct {
	Reason        string
	ActionTaken   models.ActionTaken
	ReportID      *uuid.UUID
	DurationHours *int
}

func (in *RestrictInput) validate() error {
	if strings.TrimSpace(in.Reason) == "" {
		return validationError("reason is required")
	}
	if !in.ActionTaken.Valid() {
		return validationError("invalid action_taken: must be warning, content_removed, account_suspended, or account_banned")
	}
	if in.ActionTaken == models.ActionAccountSuspended && in.DurationHours == nil {
		return validationError("duration_hours is required for account_suspended")
	}
	if in.DurationHours != nil && (*in.DurationHours < MinSuspensionHours || *in.DurationHours > MaxSuspensionHours) {
		return validationError("duration_hours must be between %d and %d", MinSuspensionHours, MaxSuspensionHours)
	}
	return nil
}

// Warn records a warning. It has no effect on access.
func (s *EnforcementService) Warn(ctx context.Context, userID, adminID uuid.UUID, reason string, reportID *uuid.UUID) (*models.Warning, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationError("reason is required")
	}

	now := s.now()
	warning := models.Warning{
		ID:       uuid.New(),
		UserID:   userID,
		WarnedAt: now,
		WarnedBy: adminID,
		Reason:   reason,
		ReportID: reportID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(map[string]interface{}{
			"warning_count":   gorm.Expr("warning_count + 1"),
			"last_warning_at": now,
			"updated_at":      now,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundError("user not found")
		}
		return tx.Create(&warning).Error
	})
	if err != nil {
		return nil, wrapStoreError("failed to warn user", err)
	}

	metrics.EnforcementActionsTotal.WithLabelValues("warn").Inc()
	slog.Info("user warned", "user_id", userID.String(), "admin_id", adminID.String())
	s.events.Publish(ctx, alerts.UserNotice(userID, models.NotifyWarned, map[string]any{
		"reason":    reason,
		"warned_at": now,
	}))
	return &warning, nil
}

// Restrict blocks the account and bumps its session epoch. A ban also sets
// the ban overlay; a suspension sets the expiry. Any still-open event is
// closed as superseded so at most one event is open per user.
func (s *EnforcementService) Restrict(ctx context.Context, userID, adminID uuid.UUID, in RestrictInput) (*models.BlockEvent, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)

	now := s.now()
	updates := map[string]interface{}{
		"is_blocked":       true,
		"blocked_reason":   reason,
		"blocked_by_admin": adminID,
		"blocked_at":       now,
		"suspended_until":  nil,
		"session_epoch":    gorm.Expr("session_epoch + 1"),
		"updated_at":       now,
	}

	event := models.BlockEvent{
		ID:          uuid.New(),
		UserID:      userID,
		BlockedAt:   now,
		BlockedBy:   &adminID,
		Reason:      reason,
		ActionTaken: in.ActionTaken,
		ReportID:    in.ReportID,
	}

	switch in.ActionTaken {
	case models.ActionAccountSuspended:
		until := now.Add(time.Duration(*in.DurationHours) * time.Hour)
		updates["suspended_until"] = until
		event.ExpiresAt = &until
	case models.ActionAccountBanned:
		updates["is_banned"] = true
		updates["banned_reason"] = reason
		updates["banned_at"] = now
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return notFoundError("user not found")
		}
		if _, err := closeOpenEvents(tx, userID, now, &adminID, "superseded"); err != nil {
			return err
		}
		return tx.Create(&event).Error
	})
	if err != nil {
		return nil, wrapStoreError("failed to restrict user", err)
	}

	metrics.EnforcementActionsTotal.WithLabelValues(string(in.ActionTaken)).Inc()
	slog.Info("user restricted", "user_id", userID.String(), "admin_id", adminID.String(), "action", string(in.ActionTaken))

	details := map[string]any{
		"type":       string(restrictionKindFor(in.ActionTaken)),
		"reason":     reason,
		"blocked_at": now,
		"can_appeal": true,
	}
	if event.ExpiresAt != nil {
		details["expires_at"] = *event.ExpiresAt
	}
	if in.ReportID != nil {
		details["report_id"] = *in.ReportID
	}
	s.events.Publish(ctx, alerts.UserNotice(userID, models.NotifyBlocked, details))
	return &event, nil
}

// Unrestrict lifts a block or suspension. Calling it on an unblocked account
// is a successful no-op. On a banned account it clears the block overlay
// only: the ban event stays open for Unban to close and no unblocked notice
// is sent, since access is still denied.
func (s *EnforcementService) Unrestrict(ctx context.Context, userID uuid.UUID, adminID *uuid.UUID, note string) (*models.User, error) {
	now := s.now()
	lifted, overlayCleared := false, false

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"is_blocked":       false,
			"blocked_reason":   "",
			"blocked_by_admin": nil,
			"blocked_at":       nil,
			"suspended_until":  nil,
			"session_epoch":    gorm.Expr("session_epoch + 1"),
			"updated_at":       now,
		}

		res := tx.Model(&models.User{}).
			Where("id = ? AND is_blocked = ? AND is_banned = ?", userID, true, false).
			UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			lifted = true
			_, err := closeOpenEvents(tx, userID, now, adminID, note)
			return err
		}

		res = tx.Model(&models.User{}).
			Where("id = ? AND is_blocked = ? AND is_banned = ?", userID, true, true).
			UpdateColumns(updates)
		if res.Error != nil {
			return res.Error
		}
		overlayCleared = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return nil, wrapStoreError("failed to unrestrict user", err)
	}

	switch {
	case lifted:
		metrics.EnforcementActionsTotal.WithLabelValues("unrestrict").Inc()
		slog.Info("user unrestricted", "user_id", userID.String())
		s.events.Publish(ctx, alerts.UserNotice(userID, models.NotifyUnblocked, map[string]any{
			"unblocked_at": now,
		}))
	case overlayCleared:
		metrics.EnforcementActionsTotal.WithLabelValues("unrestrict").Inc()
		slog.Info("block overlay cleared, ban remains", "user_id", userID.String())
	}
	return s.load(ctx, userID)
}

// Unban is the explicit path that clears a permanent ban, together with the
// block it carried.
func (s *EnforcementService) Unban(ctx context.Context, userID, adminID uuid.UUID, note string) (*models.User, error) {
	now := s.now()
	changed := false

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Select("id").First(&user, "id = ?", userID).Error; err != nil {
			return err
		}
		res := tx.Model(&models.User{}).
			Where("id = ? AND is_banned = ?", userID, true).
			UpdateColumns(map[string]interface{}{
				"is_banned":        false,
				"banned_reason":    "",
				"banned_at":        nil,
				"is_blocked":       false,
				"blocked_reason":   "",
				"blocked_by_admin": nil,
				"blocked_at":       nil,
				"suspended_until":  nil,
				"session_epoch":    gorm.Expr("session_epoch + 1"),
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		changed = true
		_, err := closeOpenEvents(tx, userID, now, &adminID, note)
		return err
	})
	if err != nil {
		return nil, wrapStoreError("failed to unban user", err)
	}

	if changed {
		metrics.EnforcementActionsTotal.WithLabelValues("unban").Inc()
		slog.Info("user unbanned", "user_id", userID.String(), "admin_id", adminID.String())
		s.events.Publish(ctx, alerts.UserNotice(userID, models.NotifyUnblocked, map[string]any{
			"unblocked_at": now,
		}))
	}
	return s.load(ctx, userID)
}

// CheckAndExpire lifts a suspension whose expiry has passed. Concurrent
// callers race on one conditional UPDATE; only the winner closes the event.
// Returns true when this call performed the expiry. A ban outlives the
// suspension, so a banned account gets no unblocked notice.
func (s *EnforcementService) CheckAndExpire(ctx context.Context, userID uuid.UUID) (bool, error) {
	now := s.now()
	expired, stillBanned := false, false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND is_blocked = ? AND suspended_until IS NOT NULL AND suspended_until <= ?",
				userID, true, now).
			UpdateColumns(map[string]interface{}{
				"is_blocked":       false,
				"blocked_reason":   "",
				"blocked_by_admin": nil,
				"blocked_at":       nil,
				"suspended_until":  nil,
				"updated_at":       now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		expired = true
		if _, err := closeOpenEvents(tx, userID, now, nil, "suspension expired"); err != nil {
			return err
		}
		var u models.User
		if err := tx.Select("is_banned").First(&u, "id = ?", userID).Error; err != nil {
			return err
		}
		stillBanned = u.IsBanned
		return nil
	})
	if err != nil {
		return false, wrapStoreError("failed to expire suspension", err)
	}

	if expired {
		metrics.SuspensionsExpiredTotal.Inc()
		slog.Info("suspension expired", "user_id", userID.String(), "banned", stillBanned)
	}
	if expired && !stillBanned {
		s.events.Publish(ctx, alerts.UserNotice(userID, models.NotifyUnblocked, map[string]any{
			"unblocked_at": now,
			"expired":      true,
		}))
	}
	return expired, nil
}

// GetStatus expires a lapsed suspension, then resolves the effective
// restriction.
func (s *EnforcementService) GetStatus(ctx context.Context, userID uuid.UUID) (*BlockStatus, error) {
	if _, err := s.CheckAndExpire(ctx, userID); err != nil {
		return nil, err
	}
	user, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return statusOf(user, s.now()), nil
}

type History struct {
	BlockEvents []models.BlockEvent `json:"block_events"`
	Warnings    []models.Warning    `json:"warnings"`
}

// History returns the user's block events and warnings, oldest first.
func (s *EnforcementService) History(ctx context.Context, userID uuid.UUID) (*History, error) {
	if _, err := s.load(ctx, userID); err != nil {
		return nil, err
	}
	h := &History{}
	db := s.db.WithContext(ctx)
	if err := db.Where("user_id = ?", userID).Order("blocked_at ASC").Find(&h.BlockEvents).Error; err != nil {
		return nil, fmt.Errorf("failed to load block history: %w", err)
	}
	if err := db.Where("user_id = ?", userID).Order("warned_at ASC").Find(&h.Warnings).Error; err != nil {
		return nil, fmt.Errorf("failed to load warnings: %w", err)
	}
	return h, nil
}

// ExpireOverdue runs CheckAndExpire for every suspension past its expiry and
// returns how many were lifted.
func (s *EnforcementService) ExpireOverdue(ctx context.Context) (int, error) {
	var ids []uuid.UUID
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("is_blocked = ? AND suspended_until IS NOT NULL AND suspended_until <= ?", true, s.now()).
		Limit(500).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue suspensions: %w", err)
	}

	lifted := 0
	for _, id := range ids {
		expired, err := s.CheckAndExpire(ctx, id)
		if err != nil {
			slog.Error("expiry sweep failed for user", "user_id", id.String(), "error", err)
			continue
		}
		if expired {
			lifted++
		}
	}
	return lifted, nil
}

// StartExpirySweep periodically lifts overdue suspensions. Lazy expiry on
// every status read stays authoritative; this only keeps stored flags fresh
// for accounts that are not active.
func (s *EnforcementService) StartExpirySweep(interval time.Duration, done chan struct{}) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.ExpireOverdue(context.Background())
				if err != nil {
					slog.Error("expiry sweep failed", "error", err)
				} else if n > 0 {
					slog.Info("expiry sweep completed", "lifted", n)
				}
			case <-done:
				return
			}
		}
	}()
}

func (s *EnforcementService) load(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, wrapStoreError("failed to load user", err)
	}
	return &user, nil
}

// closeOpenEvents fills unblocked_at/unblocked_by on the user's open event.
// The IS NULL guard makes each event close at most once.
func closeOpenEvents(tx *gorm.DB, userID uuid.UUID, at time.Time, by *uuid.UUID, note string) (int64, error) {
	updates := map[string]interface{}{
		"unblocked_at": at,
		"unblocked_by": by,
	}
	if note != "" {
		updates["note"] = note
	}
	res := tx.Model(&models.BlockEvent{}).
		Where("user_id = ? AND unblocked_at IS NULL", userID).
		UpdateColumns(updates)
	return res.RowsAffected, res.Error
}

func statusOf(u *models.User, now time.Time) *BlockStatus {
	r := models.ResolveRestriction(u, now)
	if !r.Blocked() {
		return &BlockStatus{IsBlocked: false, Warned: r.Warned}
	}
	return &BlockStatus{
		IsBlocked: true,
		Type:      r.Kind,
		Reason:    r.Reason,
		BlockedAt: r.BlockedAt,
		ExpiresAt: r.ExpiresAt,
		CanAppeal: true,
		Warned:    r.Warned,
	}
}

func restrictionKindFor(action models.ActionTaken) models.RestrictionKind {
	switch action {
	case models.ActionAccountBanned:
		return models.RestrictionBanned
	case models.ActionAccountSuspended:
		return models.RestrictionSuspended
	}
	return models.RestrictionAdminBlocked
}

func wrapStoreError(msg string, err error) error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundError("user not found")
	}
	return fmt.Errorf("%s: %w", msg, err)
}
