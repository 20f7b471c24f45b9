package repositories

import (
	"context"
	"time"

	"unionpass-api/internal/adapters/persistence/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// roleOverrideRepository implements RoleOverrideRepository interface
type roleOverrideRepository struct {
	db *gorm.DB
}

// NewRoleOverrideRepository creates a new role override repository
func NewRoleOverrideRepository(db *gorm.DB) RoleOverrideRepository {
	return &roleOverrideRepository{db: db}
}

// Get returns the override for a user, expired or not
func (r *roleOverrideRepository) Get(ctx context.Context, userID string) (*models.RoleOverride, error) {
	var override models.RoleOverride
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&override).Error
	if err != nil {
		return nil, err
	}
	return &override, nil
}

// Upsert creates or replaces the override of a user
func (r *roleOverrideRepository) Upsert(ctx context.Context, override *models.RoleOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role", "reason", "granted_by", "expires_at", "updated_at"}),
		}).
		Create(override).Error
}

// Delete removes the override of a user. Missing rows are not an error.
func (r *roleOverrideRepository) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.RoleOverride{}).Error
}

// DeleteExpired purges overrides past their expiry
func (r *roleOverrideRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.RoleOverride{})
	return result.RowsAffected, result.Error
}
