package services

import (
	"context"
	"errors"

	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccessService answers company/venue access questions beyond the primary role
type AccessService struct {
	userRepo   repositories.UserRepository
	accessRepo repositories.AccessRepository
	log        *zap.Logger
}

func NewAccessService(userRepo repositories.UserRepository, accessRepo repositories.AccessRepository, log *zap.Logger) *AccessService {
	return &AccessService{
		userRepo:   userRepo,
		accessRepo: accessRepo,
		log:        log.Named("access.service"),
	}
}

// GetUserPermissions returns the user's primary assignment and every
// association, or nil when the user is unknown or the lookup fails
func (s *AccessService) GetUserPermissions(ctx context.Context, userID string) *domain.UserPermissions {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("permissions: user lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
		return nil
	}

	companies, err := s.accessRepo.ListCompanyAssociations(ctx, userID)
	if err != nil {
		s.log.Error("permissions: company associations failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	venues, err := s.accessRepo.ListVenueAssociations(ctx, userID)
	if err != nil {
		s.log.Error("permissions: venue associations failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	if companies == nil {
		companies = []domain.CompanyAssociationView{}
	}
	if venues == nil {
		venues = []domain.VenueAssociationView{}
	}

	return &domain.UserPermissions{
		UserID:              user.ID,
		PrimaryRole:         domain.Role(user.Role),
		PrimaryCompanyID:    user.CompanyID,
		PrimaryVenueID:      user.VenueID,
		CompanyAssociations: companies,
		VenueAssociations:   venues,
	}
}

// CanAccessCompany is always true for super_admin; otherwise the primary
// company or a company association grants access
func (s *AccessService) CanAccessCompany(ctx context.Context, principal *domain.Principal, companyID string) bool {
	if principal == nil {
		return false
	}
	if principal.Role == domain.RoleSuperAdmin {
		return true
	}
	ok, err := s.accessRepo.UserCanAccessCompany(ctx, principal.ID, companyID)
	if err != nil {
		s.log.Error("company access check failed", zap.String("user_id", principal.ID), zap.String("company_id", companyID), zap.Error(err))
		return false
	}
	return ok
}

// CanAccessVenue is always true for super_admin; otherwise the primary venue,
// a venue association or access to the owning company grants access
func (s *AccessService) CanAccessVenue(ctx context.Context, principal *domain.Principal, venueID string) bool {
	if principal == nil {
		return false
	}
	if principal.Role == domain.RoleSuperAdmin {
		return true
	}
	ok, err := s.accessRepo.UserCanAccessVenue(ctx, principal.ID, venueID)
	if err != nil {
		s.log.Error("venue access check failed", zap.String("user_id", principal.ID), zap.String("venue_id", venueID), zap.Error(err))
		return false
	}
	return ok
}

// ListAccessibleCompanies returns the primary company and associated
// companies, one entry per company. An association wins over the primary entry.
func (s *AccessService) ListAccessibleCompanies(ctx context.Context, userID string) []domain.CompanyAccess {
	perms := s.GetUserPermissions(ctx, userID)
	if perms == nil {
		return []domain.CompanyAccess{}
	}

	result := make([]domain.CompanyAccess, 0, len(perms.CompanyAssociations)+1)
	seen := make(map[string]bool)

	for _, assoc := range perms.CompanyAssociations {
		seen[assoc.CompanyID] = true
	}

	if perms.PrimaryCompanyID != nil && !seen[*perms.PrimaryCompanyID] {
		company, err := s.accessRepo.GetCompany(ctx, *perms.PrimaryCompanyID)
		switch {
		case err == nil:
			result = append(result, domain.CompanyAccess{
				ID:         company.ID,
				Name:       company.Name,
				Role:       string(perms.PrimaryRole),
				AccessType: domain.AccessPrimary,
			})
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.log.Error("primary company lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	for _, assoc := range perms.CompanyAssociations {
		result = append(result, domain.CompanyAccess{
			ID:         assoc.CompanyID,
			Name:       assoc.CompanyName,
			Role:       string(assoc.Role),
			AccessType: domain.AccessAssociation,
		})
	}

	return result
}

// ListAccessibleVenues returns the primary venue, associated venues and every
// venue under an accessible company, one entry per venue. Precedence when a
// venue is reachable several ways: association, then primary, then company.
func (s *AccessService) ListAccessibleVenues(ctx context.Context, userID string) []domain.VenueAccess {
	perms := s.GetUserPermissions(ctx, userID)
	if perms == nil {
		return []domain.VenueAccess{}
	}

	result := make([]domain.VenueAccess, 0)
	seen := make(map[string]bool)
	for _, assoc := range perms.VenueAssociations {
		seen[assoc.VenueID] = true
	}

	if perms.PrimaryVenueID != nil && !seen[*perms.PrimaryVenueID] {
		venue, err := s.accessRepo.GetVenue(ctx, *perms.PrimaryVenueID)
		switch {
		case err == nil:
			entry := domain.VenueAccess{
				ID:         venue.ID,
				Name:       venue.Name,
				CompanyID:  venue.CompanyID,
				Role:       string(perms.PrimaryRole),
				AccessType: domain.AccessPrimary,
			}
			if venue.Company != nil {
				entry.CompanyName = venue.Company.Name
			}
			result = append(result, entry)
			seen[venue.ID] = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			s.log.Error("primary venue lookup failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	for _, assoc := range perms.VenueAssociations {
		result = append(result, domain.VenueAccess{
			ID:          assoc.VenueID,
			Name:        assoc.VenueName,
			CompanyID:   assoc.CompanyID,
			CompanyName: assoc.CompanyName,
			Role:        string(assoc.Role),
			AccessType:  domain.AccessAssociation,
		})
	}

	// venues inherited from company-level access
	inheritedRole := make(map[string]string)
	companyIDs := make([]string, 0, len(perms.CompanyAssociations)+1)
	for _, assoc := range perms.CompanyAssociations {
		inheritedRole[assoc.CompanyID] = "company_" + string(assoc.Role)
		companyIDs = append(companyIDs, assoc.CompanyID)
	}
	if perms.PrimaryCompanyID != nil {
		if _, ok := inheritedRole[*perms.PrimaryCompanyID]; !ok {
			inheritedRole[*perms.PrimaryCompanyID] = string(perms.PrimaryRole)
			companyIDs = append(companyIDs, *perms.PrimaryCompanyID)
		}
	}
	if len(companyIDs) == 0 {
		return result
	}

	venues, err := s.accessRepo.ListVenuesByCompanies(ctx, companyIDs)
	if err != nil {
		s.log.Error("company venues lookup failed", zap.String("user_id", userID), zap.Error(err))
		return result
	}
	for _, venue := range venues {
		if seen[venue.ID] {
			continue
		}
		seen[venue.ID] = true
		entry := domain.VenueAccess{
			ID:         venue.ID,
			Name:       venue.Name,
			CompanyID:  venue.CompanyID,
			Role:       inheritedRole[venue.CompanyID],
			AccessType: domain.AccessCompany,
		}
		if venue.Company != nil {
			entry.CompanyName = venue.Company.Name
		}
		result = append(result, entry)
	}

	return result
}

// AssignUserToCompany creates or replaces a company association
func (s *AccessService) AssignUserToCompany(ctx context.Context, userID, companyID string, role domain.CompanyRole) bool {
	if !role.IsValid() {
		s.log.Warn("assign company: invalid role", zap.String("user_id", userID), zap.String("role", string(role)))
		return false
	}
	if err := s.accessRepo.UpsertCompanyAssociation(ctx, userID, companyID, role); err != nil {
		s.log.Error("assign company failed", zap.String("user_id", userID), zap.String("company_id", companyID), zap.Error(err))
		return false
	}
	return true
}

// AssignUserToVenue creates or replaces a venue association
func (s *AccessService) AssignUserToVenue(ctx context.Context, userID, venueID string, role domain.VenueRole) bool {
	if !role.IsValid() {
		s.log.Warn("assign venue: invalid role", zap.String("user_id", userID), zap.String("role", string(role)))
		return false
	}
	if err := s.accessRepo.UpsertVenueAssociation(ctx, userID, venueID, role); err != nil {
		s.log.Error("assign venue failed", zap.String("user_id", userID), zap.String("venue_id", venueID), zap.Error(err))
		return false
	}
	return true
}

// RemoveUserFromCompany deletes a company association; absent rows are fine
func (s *AccessService) RemoveUserFromCompany(ctx context.Context, userID, companyID string) bool {
	if err := s.accessRepo.DeleteCompanyAssociation(ctx, userID, companyID); err != nil {
		s.log.Error("remove company failed", zap.String("user_id", userID), zap.String("company_id", companyID), zap.Error(err))
		return false
	}
	return true
}

// RemoveUserFromVenue deletes a venue association; absent rows are fine
func (s *AccessService) RemoveUserFromVenue(ctx context.Context, userID, venueID string) bool {
	if err := s.accessRepo.DeleteVenueAssociation(ctx, userID, venueID); err != nil {
		s.log.Error("remove venue failed", zap.String("user_id", userID), zap.String("venue_id", venueID), zap.Error(err))
		return false
	}
	return true
}

// CompanyName returns the name of a company or ErrCompanyNotFound
func (s *AccessService) CompanyName(ctx context.Context, companyID string) (string, error) {
	company, err := s.accessRepo.GetCompany(ctx, companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrCompanyNotFound
		}
		return "", domain.Internal(err)
	}
	return company.Name, nil
}

// VenueCompany returns the id of the company owning a venue or ErrVenueNotFound
func (s *AccessService) VenueCompany(ctx context.Context, venueID string) (string, error) {
	venue, err := s.accessRepo.GetVenue(ctx, venueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", domain.ErrVenueNotFound
		}
		return "", domain.Internal(err)
	}
	return venue.CompanyID, nil
}
