package repositories

import (
	"context"
	"errors"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/core/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accessRepository implements AccessRepository interface
type accessRepository struct {
	db *gorm.DB
}

// NewAccessRepository creates a new access repository
func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &accessRepository{db: db}
}

// ==================== Companies & Venues ====================

func (r *accessRepository) GetCompany(ctx context.Context, id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *accessRepository) GetVenue(ctx context.Context, id string) (*models.Venue, error) {
	var venue models.Venue
	if err := r.db.WithContext(ctx).Preload("Company").Where("id = ?", id).First(&venue).Error; err != nil {
		return nil, err
	}
	return &venue, nil
}

// ListVenuesByCompanies returns every venue owned by any of the companies
func (r *accessRepository) ListVenuesByCompanies(ctx context.Context, companyIDs []string) ([]*models.Venue, error) {
	var venues []*models.Venue
	if len(companyIDs) == 0 {
		return venues, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Company").
		Where("company_id IN ?", companyIDs).
		Order("name ASC").
		Find(&venues).Error
	return venues, err
}

// ==================== Associations ====================

func (r *accessRepository) ListCompanyAssociations(ctx context.Context, userID string) ([]domain.CompanyAssociationView, error) {
	var rows []domain.CompanyAssociationView
	err := r.db.WithContext(ctx).
		Table("user_companies uc").
		Select("uc.company_id AS company_id, uc.role AS role, c.name AS company_name").
		Joins("JOIN companies c ON c.id = uc.company_id").
		Where("uc.user_id = ?", userID).
		Order("c.name ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *accessRepository) ListVenueAssociations(ctx context.Context, userID string) ([]domain.VenueAssociationView, error) {
	var rows []domain.VenueAssociationView
	err := r.db.WithContext(ctx).
		Table("user_venues uv").
		Select("uv.venue_id AS venue_id, uv.role AS role, v.name AS venue_name, v.company_id AS company_id, c.name AS company_name").
		Joins("JOIN venues v ON v.id = uv.venue_id").
		Joins("JOIN companies c ON c.id = v.company_id").
		Where("uv.user_id = ?", userID).
		Order("v.name ASC").
		Scan(&rows).Error
	return rows, err
}

// UpsertCompanyAssociation creates the association or updates its role
func (r *accessRepository) UpsertCompanyAssociation(ctx context.Context, userID, companyID string, role domain.CompanyRole) error {
	row := &models.UserCompany{UserID: userID, CompanyID: companyID, Role: string(role)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(row).Error
}

// UpsertVenueAssociation creates the association or updates its role
func (r *accessRepository) UpsertVenueAssociation(ctx context.Context, userID, venueID string, role domain.VenueRole) error {
	row := &models.UserVenue{UserID: userID, VenueID: venueID, Role: string(role)}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "venue_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(row).Error
}

// DeleteCompanyAssociation removes the association. Missing rows are not an error.
func (r *accessRepository) DeleteCompanyAssociation(ctx context.Context, userID, companyID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Delete(&models.UserCompany{}).Error
}

// DeleteVenueAssociation removes the association. Missing rows are not an error.
func (r *accessRepository) DeleteVenueAssociation(ctx context.Context, userID, venueID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND venue_id = ?", userID, venueID).
		Delete(&models.UserVenue{}).Error
}

// ==================== Predicates ====================

// UserCanAccessCompany is true when the company is the user's primary
// company or the user holds a company association with it
func (r *accessRepository) UserCanAccessCompany(ctx context.Context, userID, companyID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND company_id = ?", userID, companyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Model(&models.UserCompany{}).
		Where("user_id = ? AND company_id = ?", userID, companyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UserCanAccessVenue is true when the venue is the user's primary venue,
// the user holds a venue association with it, or the user can access the
// company that owns it
func (r *accessRepository) UserCanAccessVenue(ctx context.Context, userID, venueID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND venue_id = ?", userID, venueID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	err = r.db.WithContext(ctx).Model(&models.UserVenue{}).
		Where("user_id = ? AND venue_id = ?", userID, venueID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	if count > 0 {
		return true, nil
	}

	var venue models.Venue
	err = r.db.WithContext(ctx).Select("id", "company_id").Where("id = ?", venueID).First(&venue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return r.UserCanAccessCompany(ctx, userID, venue.CompanyID)
}
