package models

import (
	"time"

	"github.com/google/uuid"
)

type ActionTaken string

const (
	ActionWarning          ActionTaken = "warning"
	ActionContentRemoved   ActionTaken = "content_removed"
	ActionAccountSuspended ActionTaken = "account_suspended"
	ActionAccountBanned    ActionTaken = "account_banned"
)

func (a ActionTaken) Valid() bool {
	switch a {
	case ActionWarning, ActionContentRemoved, ActionAccountSuspended, ActionAccountBanned:
		return true
	}
	return false
}

// BlockEvent is one restriction-applying action. UnblockedAt is written once,
// either by an admin or by lazy expiry (UnblockedBy nil).
type BlockEvent struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index:idx_block_events_user_open" json:"user_id"`
	BlockedAt   time.Time   `gorm:"not null" json:"blocked_at"`
	BlockedBy   *uuid.UUID  `gorm:"type:uuid" json:"blocked_by"`
	Reason      string      `gorm:"size:500;not null" json:"reason"`
	ActionTaken ActionTaken `gorm:"size:30;not null" json:"action_taken"`
	ReportID    *uuid.UUID  `gorm:"type:uuid" json:"report_id,omitempty"`
	ExpiresAt   *time.Time  `json:"expires_at,omitempty"`
	UnblockedAt *time.Time  `gorm:"index:idx_block_events_user_open" json:"unblocked_at,omitempty"`
	UnblockedBy *uuid.UUID  `gorm:"type:uuid" json:"unblocked_by,omitempty"`
	Note        string      `gorm:"size:1000" json:"note,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (e *BlockEvent) Open() bool {
	return e.UnblockedAt == nil
}

// Warning does not gate access on its own.
type Warning struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	WarnedAt  time.Time  `gorm:"not null" json:"warned_at"`
	WarnedBy  uuid.UUID  `gorm:"type:uuid;not null" json:"warned_by"`
	Reason    string     `gorm:"size:500;not null" json:"reason"`
	ReportID  *uuid.UUID `gorm:"type:uuid" json:"report_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
