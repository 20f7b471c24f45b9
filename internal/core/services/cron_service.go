package services

import (
	"context"
	"time"

	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/ratelimit"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	purgeSchedule = "@every 10m"
	purgeTimeout  = time.Minute
)

// CronService runs periodic housekeeping: expired role overrides, dead
// refresh tokens, stale OTP codes and idle rate-limit keys
type CronService struct {
	cron             *cron.Cron
	overrideRepo     repositories.RoleOverrideRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	otp              *OTPService
	limiter          ratelimit.Store
	clock            clock.Clock
	metrics          *metrics.Metrics
	log              *zap.Logger
}

func NewCronService(
	overrideRepo repositories.RoleOverrideRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	otp *OTPService,
	limiter ratelimit.Store,
	c clock.Clock,
	m *metrics.Metrics,
	log *zap.Logger,
) *CronService {
	if c == nil {
		c = clock.New()
	}
	return &CronService{
		cron:             cron.New(),
		overrideRepo:     overrideRepo,
		refreshTokenRepo: refreshTokenRepo,
		otp:              otp,
		limiter:          limiter,
		clock:            c,
		metrics:          m,
		log:              log.Named("cron.service"),
	}
}

// Start schedules the purge job
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(purgeSchedule, func() { s.Purge(context.Background()) }); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("cron started", zap.String("schedule", purgeSchedule))
	return nil
}

// Stop waits for a running job to finish
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("cron stopped")
}

// Purge runs one housekeeping pass
func (s *CronService) Purge(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, purgeTimeout)
	defer cancel()

	now := s.clock.Now()

	if n, err := s.overrideRepo.DeleteExpired(ctx, now); err != nil {
		s.log.Error("purge role overrides failed", zap.Error(err))
	} else {
		s.record("role_overrides", n)
	}

	if n, err := s.refreshTokenRepo.DeleteExpired(ctx, now); err != nil {
		s.log.Error("purge refresh tokens failed", zap.Error(err))
	} else {
		s.record("refresh_tokens", n)
	}

	if s.otp != nil {
		s.record("otp_codes", int64(s.otp.Sweep()))
	}

	if sweeper, ok := s.limiter.(ratelimit.Sweeper); ok {
		s.record("rate_limit_keys", int64(sweeper.Sweep()))
	}
}

func (s *CronService) record(resource string, n int64) {
	s.metrics.ObservePurge(resource, n)
	if n > 0 {
		s.log.Info("purged", zap.String("resource", resource), zap.Int64("count", n))
	}
}
