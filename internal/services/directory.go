package services

import (
	"context"
	"fmt"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserDirectory lists admin accounts: users with the admin role plus any
// configured admin IDs that exist.
type UserDirectory struct {
	db         *gorm.DB
	configured []uuid.UUID
}

func NewUserDirectory(db *gorm.DB, configured []uuid.UUID) *UserDirectory {
	return &UserDirectory{db: db, configured: configured}
}

func (d *UserDirectory) ListAdmins(ctx context.Context) ([]uuid.UUID, error) {
	query := d.db.WithContext(ctx).Model(&models.User{})
	if len(d.configured) > 0 {
		query = query.Where("role = ? OR id IN ?", models.RoleAdmin, d.configured)
	} else {
		query = query.Where("role = ?", models.RoleAdmin)
	}

	var ids []uuid.UUID
	if err := query.Order("created_at ASC").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return ids, nil
}
