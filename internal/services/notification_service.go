package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationService is the read side of the alert inbox.
type NotificationService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *NotificationService) List(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]models.Notification, int64, error) {
	var items []models.Notification
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

// MarkRead stamps read_at once; repeated calls keep the first timestamp.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, id uuid.UUID) error {
	db := s.db.WithContext(ctx)
	res := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ? AND read_at IS NULL", id, recipientID).
		Update("read_at", s.now())
	if res.Error != nil {
		return fmt.Errorf("failed to mark notification read: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Count(&count).Error; err != nil {
		return fmt.Errorf("failed to load notification: %w", err)
	}
	if count == 0 {
		return notFoundError("notification not found")
	}
	return nil
}
