package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ModerationStatus string

const (
	ModerationApproved    ModerationStatus = "approved"
	ModerationFlagged     ModerationStatus = "flagged"
	ModerationUnderReview ModerationStatus = "under_review"
	ModerationRemoved     ModerationStatus = "removed"
)

// Rank orders the automatic escalation path. Removed is manual-only and sits
// above every automatic state so the escalation rules never touch it.
func (s ModerationStatus) Rank() int {
	switch s {
	case ModerationApproved:
		return 0
	case ModerationFlagged:
		return 1
	case ModerationUnderReview:
		return 2
	case ModerationRemoved:
		return 3
	}
	return -1
}

// Content is the reportable side of posts, comments and messages. Their
// bodies belong to the content service; only the moderation columns live here.
type Content struct {
	ID               uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	Kind             TargetType       `gorm:"size:20;not null;index" json:"kind"`
	AuthorID         uuid.UUID        `gorm:"type:uuid;not null;index" json:"author_id"`
	ReportCount      int64            `gorm:"not null;default:0" json:"report_count"`
	ModerationStatus ModerationStatus `gorm:"size:20;not null;default:'approved';index" json:"moderation_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}

func (Content) TableName() string {
	return "contents"
}
