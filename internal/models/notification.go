package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotifyReportAlert    NotificationKind = "report_alert"
	NotifyBlocked        NotificationKind = "blocked"
	NotifyUnblocked      NotificationKind = "unblocked"
	NotifyWarned         NotificationKind = "warned"
	NotifyReportAccepted NotificationKind = "report_accepted"
	NotifyReportDeclined NotificationKind = "report_declined"
)

func (k NotificationKind) Valid() bool {
	switch k {
	case NotifyReportAlert, NotifyBlocked, NotifyUnblocked, NotifyWarned,
		NotifyReportAccepted, NotifyReportDeclined:
		return true
	}
	return false
}

// Notification is the inbox copy of a delivered (or attempted) alert. It also
// backs alert deduplication on (sender, kind, target).
type Notification struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RecipientID uuid.UUID        `gorm:"type:uuid;not null;index" json:"recipient_id"`
	SenderID    *uuid.UUID       `gorm:"type:uuid;index:idx_notifications_dedup" json:"sender_id,omitempty"`
	Kind        NotificationKind `gorm:"size:30;not null;index:idx_notifications_dedup" json:"kind"`
	TargetType  string           `gorm:"size:20" json:"target_type,omitempty"`
	TargetID    *uuid.UUID       `gorm:"type:uuid;index:idx_notifications_dedup" json:"target_id,omitempty"`
	Payload     datatypes.JSON   `gorm:"type:jsonb;default:'{}'" json:"payload"`
	Delivered   bool             `gorm:"not null;default:false" json:"delivered"`
	ReadAt      *time.Time       `json:"read_at,omitempty"`
	CreatedAt   time.Time        `gorm:"index:idx_notifications_dedup" json:"created_at"`
}
