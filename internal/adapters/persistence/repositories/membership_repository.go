package repositories

import (
	"context"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// membershipRepository implements MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *membershipRepository) WithTx(tx *gorm.DB) MembershipRepository {
	return &membershipRepository{db: tx}
}

func (r *membershipRepository) Create(ctx context.Context, membership *models.Membership) error {
	return r.db.WithContext(ctx).Create(membership).Error
}

func (r *membershipRepository) GetByID(ctx context.Context, id string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("id = ?", id).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *membershipRepository) ListByUser(ctx context.Context, userID string) ([]*models.Membership, error) {
	var memberships []*models.Membership
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&memberships).Error
	return memberships, err
}

// Debit is a conditional update: the balance check and the subtraction
// happen in one statement so two concurrent debits cannot both pass.
// The result is rounded to cents since sqlite stores decimal columns as REAL.
func (r *membershipRepository) Debit(ctx context.Context, id string, amount decimal.Decimal) (bool, error) {
	amount = amount.Round(2)
	result := r.db.WithContext(ctx).
		Model(&models.Membership{}).
		Where("id = ? AND status = ? AND balance >= ?", id, string(domain.MembershipActive), amount).
		Update("balance", gorm.Expr("ROUND(balance - ?, 2)", amount))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
