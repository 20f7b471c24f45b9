package services

import (
	"context"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"

	"go.uber.org/zap"
)

const overrideReasonSelfUpgrade = "demo_self_upgrade"

// UpgradeOption is one role offered by the demo self-upgrade
type UpgradeOption struct {
	Role        domain.Role `json:"role"`
	DisplayName string      `json:"display_name"`
	Current     bool        `json:"current"`
}

// UpgradeStatus describes the caller and the roles they may switch to
type UpgradeStatus struct {
	CurrentUser       *domain.Principal `json:"current_user"`
	AvailableUpgrades []UpgradeOption   `json:"available_upgrades"`
	OverrideExpiresAt *time.Time        `json:"override_expires_at,omitempty"`
}

// UpgradeResult is the outcome of a self-upgrade
type UpgradeResult struct {
	UserID       string      `json:"user_id"`
	PreviousRole domain.Role `json:"previous_role"`
	Role         domain.Role `json:"role"`
	ExpiresAt    time.Time   `json:"expires_at"`
}

// DemoUpgradeService lets any authenticated principal grant themselves a
// higher role for a limited time. It writes role overrides only and never
// touches the stored primary role. Only reachable behind
// ALLOW_DEMO_ROLE_UPGRADE.
type DemoUpgradeService struct {
	overrideRepo repositories.RoleOverrideRepository
	audit        Auditor
	clock        clock.Clock
	ttl          time.Duration
	log          *zap.Logger
}

func NewDemoUpgradeService(
	overrideRepo repositories.RoleOverrideRepository,
	audit Auditor,
	c clock.Clock,
	ttl time.Duration,
	log *zap.Logger,
) *DemoUpgradeService {
	if c == nil {
		c = clock.New()
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DemoUpgradeService{
		overrideRepo: overrideRepo,
		audit:        audit,
		clock:        c,
		ttl:          ttl,
		log:          log.Named("upgrade.service"),
	}
}

// Upgrade sets a time-bounded override to one of the upgradeable roles
func (s *DemoUpgradeService) Upgrade(ctx context.Context, principal *domain.Principal, requested string, meta RequestMeta) (*UpgradeResult, error) {
	role, err := domain.ParseRole(requested)
	if err != nil || !domain.IsUpgradeable(role) {
		return nil, domain.ErrInvalidRole.With("allowed", domain.UpgradeableRoles)
	}

	now := s.clock.Now()
	override := &models.RoleOverride{
		UserID:    principal.ID,
		Role:      string(role),
		Reason:    overrideReasonSelfUpgrade,
		GrantedBy: principal.ID,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.overrideRepo.Upsert(ctx, override); err != nil {
		return nil, domain.Internal(err)
	}

	s.audit.Record(ctx, meta.Entry(AuditRoleUpgrade, principal.ID, map[string]any{
		"oldRole": principal.Role,
		"newRole": role,
		"method":  "self_upgrade",
	}))

	s.log.Info("role self-upgrade",
		zap.String("user_id", principal.ID),
		zap.String("from", string(principal.Role)),
		zap.String("to", string(role)),
	)

	return &UpgradeResult{
		UserID:       principal.ID,
		PreviousRole: principal.Role,
		Role:         role,
		ExpiresAt:    override.ExpiresAt,
	}, nil
}

// Status returns the caller and the upgrade options
func (s *DemoUpgradeService) Status(ctx context.Context, principal *domain.Principal) (*UpgradeStatus, error) {
	status := &UpgradeStatus{CurrentUser: principal}
	for _, role := range domain.UpgradeableRoles {
		status.AvailableUpgrades = append(status.AvailableUpgrades, UpgradeOption{
			Role:        role,
			DisplayName: role.DisplayName(),
			Current:     role == principal.Role,
		})
	}

	if principal.Overridden {
		override, err := s.overrideRepo.Get(ctx, principal.ID)
		if err == nil && override.IsActive(s.clock.Now()) {
			status.OverrideExpiresAt = &override.ExpiresAt
		}
	}
	return status, nil
}

// Clear removes the caller's override, restoring the stored role
func (s *DemoUpgradeService) Clear(ctx context.Context, principal *domain.Principal, meta RequestMeta) error {
	if err := s.overrideRepo.Delete(ctx, principal.ID); err != nil {
		return domain.Internal(err)
	}

	s.audit.Record(ctx, meta.Entry(AuditRoleUpgradeCleared, principal.ID, map[string]any{
		"role": principal.Role,
	}))
	return nil
}
