package repositories

import (
	"context"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, offset, limit int) ([]*models.User, int64, error)
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	Revoke(ctx context.Context, id uint) error
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllByUserID(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RoleOverrideRepository stores time-bounded role overrides keyed by user id
type RoleOverrideRepository interface {
	Get(ctx context.Context, userID string) (*models.RoleOverride, error)
	Upsert(ctx context.Context, override *models.RoleOverride) error
	Delete(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AccessRepository covers companies, venues, associations and the
// access predicates the access-control model delegates to
type AccessRepository interface {
	GetCompany(ctx context.Context, id string) (*models.Company, error)
	GetVenue(ctx context.Context, id string) (*models.Venue, error)
	ListVenuesByCompanies(ctx context.Context, companyIDs []string) ([]*models.Venue, error)

	ListCompanyAssociations(ctx context.Context, userID string) ([]domain.CompanyAssociationView, error)
	ListVenueAssociations(ctx context.Context, userID string) ([]domain.VenueAssociationView, error)
	UpsertCompanyAssociation(ctx context.Context, userID, companyID string, role domain.CompanyRole) error
	UpsertVenueAssociation(ctx context.Context, userID, venueID string, role domain.VenueRole) error
	DeleteCompanyAssociation(ctx context.Context, userID, companyID string) error
	DeleteVenueAssociation(ctx context.Context, userID, venueID string) error

	UserCanAccessCompany(ctx context.Context, userID, companyID string) (bool, error)
	UserCanAccessVenue(ctx context.Context, userID, venueID string) (bool, error)
}

// MembershipRepository defines membership (prepaid balance) repository interface
type MembershipRepository interface {
	WithTx(tx *gorm.DB) MembershipRepository
	Create(ctx context.Context, membership *models.Membership) error
	GetByID(ctx context.Context, id string) (*models.Membership, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Membership, error)
	// Debit subtracts amount only while the membership is active and the
	// balance covers it. Returns false when no row qualified.
	Debit(ctx context.Context, id string, amount decimal.Decimal) (bool, error)
}

// TransactionFilter narrows a ledger listing. Nil fields are ignored.
type TransactionFilter struct {
	UserID  *string
	StaffID *string
	VenueID *string
}

// TransactionRepository defines the append-only ledger repository interface
type TransactionRepository interface {
	WithTx(tx *gorm.DB) TransactionRepository
	Create(ctx context.Context, txn *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	List(ctx context.Context, filter TransactionFilter, offset, limit int) ([]*models.Transaction, int64, error)
}

// AuditLogRepository defines audit log repository interface
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}
