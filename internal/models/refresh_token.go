package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshToken is only valid while its SessionEpoch matches the user's.
type RefreshToken struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	TokenHash    string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	SessionEpoch int64     `gorm:"not null" json:"-"`
	ExpiresAt    time.Time `gorm:"not null" json:"expires_at"`
	Revoked      bool      `gorm:"default:false" json:"revoked"`
	CreatedAt    time.Time `json:"created_at"`
	User         User      `gorm:"foreignKey:UserID" json:"-"`
}
