package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// User is the account record. The restriction fields are an audit overlay;
// ResolveRestriction turns them into a single Restriction value.
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email       string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password    string    `gorm:"not null" json:"-"`
	Role        Role      `gorm:"size:20;not null;default:'user';index" json:"role"`
	ReportCount int64     `gorm:"not null;default:0" json:"report_count"`

	IsBanned     bool       `gorm:"not null;default:false" json:"is_banned"`
	BannedReason string     `gorm:"size:500" json:"banned_reason,omitempty"`
	BannedAt     *time.Time `json:"banned_at,omitempty"`

	IsBlocked      bool       `gorm:"not null;default:false;index" json:"is_blocked"`
	BlockedReason  string     `gorm:"size:500" json:"blocked_reason,omitempty"`
	BlockedByAdmin *uuid.UUID `gorm:"type:uuid" json:"blocked_by_admin,omitempty"`
	BlockedAt      *time.Time `json:"blocked_at,omitempty"`
	SuspendedUntil *time.Time `gorm:"index" json:"suspended_until,omitempty"`

	WarningCount  int        `gorm:"not null;default:0" json:"warning_count"`
	LastWarningAt *time.Time `json:"last_warning_at,omitempty"`

	// SessionEpoch is bumped on every restriction change. Tokens carrying an
	// older epoch are rejected by the gate.
	SessionEpoch int64 `gorm:"not null;default:0" json:"-"`

	BlockHistory []BlockEvent `gorm:"foreignKey:UserID" json:"block_history,omitempty"`
	Warnings     []Warning    `gorm:"foreignKey:UserID" json:"warnings,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleModerator
}
