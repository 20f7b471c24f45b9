package services

import (
	"context"
	"errors"
	"strings"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/pagination"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService handles role administration
type UserService struct {
	userRepo   repositories.UserRepository
	accessRepo repositories.AccessRepository
	audit      Auditor
	log        *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	accessRepo repositories.AccessRepository,
	audit Auditor,
	log *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		accessRepo: accessRepo,
		audit:      audit,
		log:        log.Named("user.service"),
	}
}

// SetUserRoleInput creates a user with a role or changes an existing user's role
type SetUserRoleInput struct {
	UserID    string  `json:"userId"`
	Role      string  `json:"role"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	FullName  *string `json:"fullName"`
	CompanyID *string `json:"companyId"`
	VenueID   *string `json:"venueId"`
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users []*models.UserResponse `json:"users"`
	Meta  *pagination.Meta       `json:"meta"`
}

// SetUserRole upserts the user by id with the given primary role. Returns
// the stored user and whether it was created.
func (s *UserService) SetUserRole(ctx context.Context, actor *domain.Principal, input *SetUserRoleInput, meta RequestMeta) (*models.UserResponse, bool, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, false, domain.ErrInvalidInput.Withf("userId is required")
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, false, domain.ErrInvalidRole.With("allowed", domain.Roles)
	}

	if err := s.checkPlacement(ctx, input.CompanyID, input.VenueID); err != nil {
		return nil, false, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	created := false
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{ID: userID, IsActive: true}
		created = true
	default:
		return nil, false, domain.Internal(err)
	}

	previousRole := user.Role
	user.Role = string(role)
	if input.Email != nil {
		user.Email = input.Email
	}
	if input.Phone != nil {
		user.Phone = input.Phone
	}
	if input.FullName != nil {
		user.FullName = input.FullName
	}
	if input.CompanyID != nil {
		user.CompanyID = input.CompanyID
	}
	if input.VenueID != nil {
		user.VenueID = input.VenueID
	}

	if created {
		err = s.userRepo.Create(ctx, user)
	} else {
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		return nil, false, domain.Internal(err)
	}

	details := map[string]any{
		"targetUserId": user.ID,
		"role":         user.Role,
		"created":      created,
	}
	if !created {
		details["previousRole"] = previousRole
	}
	s.audit.Record(ctx, meta.Entry(AuditUserCreated, actor.ID, details))

	s.log.Info("user role set",
		zap.String("actor_id", actor.ID),
		zap.String("user_id", user.ID),
		zap.String("role", user.Role),
		zap.Bool("created", created),
	)
	return user.ToResponse(), created, nil
}

// GetUser returns one user
func (s *UserService) GetUser(ctx context.Context, id string) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal(err)
	}
	return user.ToResponse(), nil
}

// ListUsers lists all users with pagination
func (s *UserService) ListUsers(ctx context.Context, params *pagination.Params) (*ListUsersOutput, error) {
	users, total, err := s.userRepo.List(ctx, params.Offset, params.Limit)
	if err != nil {
		return nil, domain.Internal(err)
	}

	out := make([]*models.UserResponse, len(users))
	for i, user := range users {
		out[i] = user.ToResponse()
	}

	return &ListUsersOutput{
		Users: out,
		Meta:  pagination.GetMeta(params, total),
	}, nil
}

// checkPlacement verifies the primary company and venue exist and agree
func (s *UserService) checkPlacement(ctx context.Context, companyID, venueID *string) error {
	if companyID != nil {
		if _, err := s.accessRepo.GetCompany(ctx, *companyID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrCompanyNotFound.With("company_id", *companyID)
			}
			return domain.Internal(err)
		}
	}

	if venueID != nil {
		venue, err := s.accessRepo.GetVenue(ctx, *venueID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrVenueNotFound.With("venue_id", *venueID)
			}
			return domain.Internal(err)
		}
		if companyID != nil && venue.CompanyID != *companyID {
			return domain.ErrInvalidInput.Withf("venue %s does not belong to company %s", venue.ID, *companyID)
		}
	}
	return nil
}
