package services

import (
	"context"
	"errors"

	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type subjectKey struct{}

// WithSubject stores the authenticated subject in the context
func WithSubject(ctx context.Context, subject domain.Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, subject)
}

// SubjectFromContext returns the authenticated subject, if any
func SubjectFromContext(ctx context.Context) (domain.Subject, bool) {
	subject, ok := ctx.Value(subjectKey{}).(domain.Subject)
	if !ok || subject.ID == "" {
		return domain.Subject{}, false
	}
	return subject, true
}

// IdentityService resolves the calling principal and its effective role
type IdentityService struct {
	userRepo     repositories.UserRepository
	overrideRepo repositories.RoleOverrideRepository
	clock        clock.Clock
	devFallback  bool
	log          *zap.Logger
}

// NewIdentityService creates the resolver. devFallback must only be true in
// development: it turns a subject without a user record into a super_admin.
func NewIdentityService(
	userRepo repositories.UserRepository,
	overrideRepo repositories.RoleOverrideRepository,
	c clock.Clock,
	devFallback bool,
	log *zap.Logger,
) *IdentityService {
	if c == nil {
		c = clock.New()
	}
	return &IdentityService{
		userRepo:     userRepo,
		overrideRepo: overrideRepo,
		clock:        c,
		devFallback:  devFallback,
		log:          log.Named("identity.service"),
	}
}

// CurrentPrincipal resolves the principal for the subject in ctx, or nil
// when unauthenticated. Lookup failures resolve to nil.
func (s *IdentityService) CurrentPrincipal(ctx context.Context) *domain.Principal {
	subject, ok := SubjectFromContext(ctx)
	if !ok {
		return nil
	}
	return s.Resolve(ctx, subject)
}

// Resolve builds the principal for an authenticated subject
func (s *IdentityService) Resolve(ctx context.Context, subject domain.Subject) *domain.Principal {
	user, err := s.userRepo.GetByID(ctx, subject.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Error("user lookup failed", zap.String("user_id", subject.ID), zap.Error(err))
			return nil
		}
		if s.devFallback {
			s.log.Warn("no user record, using development fallback principal", zap.String("user_id", subject.ID))
			return &domain.Principal{
				ID:       subject.ID,
				Email:    subject.Email,
				Phone:    subject.Phone,
				FullName: firstNonEmpty(subject.Email, subject.Phone),
				Role:     domain.RoleSuperAdmin,
			}
		}
		return nil
	}

	if !user.IsActive {
		return nil
	}

	principal := &domain.Principal{
		ID:       user.ID,
		Email:    user.Email,
		Phone:    user.Phone,
		FullName: user.FullName,
		Role:     domain.Role(user.Role),
	}

	override, err := s.overrideRepo.Get(ctx, user.ID)
	switch {
	case err == nil:
		role := domain.Role(override.Role)
		if override.IsActive(s.clock.Now()) && role.IsValid() {
			principal.Role = role
			principal.Overridden = true
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		s.log.Error("role override lookup failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil
	}

	return principal
}

func firstNonEmpty(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
