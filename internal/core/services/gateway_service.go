package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/ratelimit"

	"go.uber.org/zap"
)

// GuardConfig describes what a privileged entry point requires
type GuardConfig struct {
	RequireAuth     bool
	RequireRole     domain.Role
	RateLimitKey    string
	RateLimitWindow time.Duration
	DevelopmentOnly bool
	RequireEnvFlag  string
}

// FlagSource reports whether a named feature flag is on
type FlagSource interface {
	FlagEnabled(name string) bool
}

// GatewayService evaluates GuardConfig against the current request
type GatewayService struct {
	identity PrincipalResolver
	limiter  ratelimit.Store
	flags    FlagSource
	isDev    bool
	metrics  *metrics.Metrics
	log      *zap.Logger
}

func NewGatewayService(
	identity PrincipalResolver,
	limiter ratelimit.Store,
	flags FlagSource,
	isDev bool,
	m *metrics.Metrics,
	log *zap.Logger,
) *GatewayService {
	return &GatewayService{
		identity: identity,
		limiter:  limiter,
		flags:    flags,
		isDev:    isDev,
		metrics:  m,
		log:      log.Named("gateway.service"),
	}
}

// Guard runs the checks in order: development-only, feature flag,
// authentication, role, rate limit. It returns the resolved principal (nil
// when no authentication was required) or the first rejection.
func (g *GatewayService) Guard(ctx context.Context, cfg GuardConfig) (*domain.Principal, error) {
	principal, err := g.guard(ctx, cfg)
	if err != nil {
		g.metrics.ObserveGuard(domain.CodeOf(err))
		return nil, err
	}
	g.metrics.ObserveGuard("allowed")
	return principal, nil
}

func (g *GatewayService) guard(ctx context.Context, cfg GuardConfig) (*domain.Principal, error) {
	if cfg.DevelopmentOnly && !g.isDev {
		return nil, domain.ErrDevelopmentOnly
	}

	if cfg.RequireEnvFlag != "" && (g.flags == nil || !g.flags.FlagEnabled(cfg.RequireEnvFlag)) {
		return nil, domain.ErrFeatureDisabled.With("flag", cfg.RequireEnvFlag)
	}

	if !cfg.RequireAuth && cfg.RequireRole == "" {
		return nil, nil
	}

	principal := g.identity.CurrentPrincipal(ctx)
	if principal == nil {
		return nil, domain.ErrUnauthenticated
	}

	if cfg.RequireRole != "" {
		if principal.Role == "" {
			return nil, domain.ErrRoleNotAssigned
		}
		if !principal.Role.Satisfies(cfg.RequireRole) {
			return nil, domain.ErrInsufficientRole.
				Withf("%s privileges required", cfg.RequireRole.DisplayName()).
				With("required_role", string(cfg.RequireRole))
		}
	}

	if cfg.RateLimitKey != "" && cfg.RateLimitWindow > 0 {
		key := fmt.Sprintf("%s_%s", cfg.RateLimitKey, principal.ID)
		decision, err := g.limiter.Acquire(ctx, key, cfg.RateLimitWindow)
		if err != nil {
			g.log.Error("rate limiter failed", zap.String("key", key), zap.Error(err))
			return nil, domain.Internal(err)
		}
		if !decision.Allowed {
			minutes := int(math.Ceil(decision.RetryAfter.Minutes()))
			return nil, domain.ErrRateLimited.
				Withf("Rate limited. Please wait %d minute(s) before trying again.", minutes).
				With("retry_after_minutes", minutes)
		}
	}

	return principal, nil
}
