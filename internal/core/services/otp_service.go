package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/password"

	"go.uber.org/zap"
)

// OTP channels
const (
	ChannelSMS   = "sms"
	ChannelEmail = "email"
)

const otpLength = 6

// OTPSender delivers a one-time code to a phone or mailbox
type OTPSender interface {
	Send(ctx context.Context, channel, destination, code string) error
}

// LogOTPSender writes codes to the log. Codes are only revealed when
// revealCode is set, which is meant for development.
type LogOTPSender struct {
	log        *zap.Logger
	revealCode bool
}

func NewLogOTPSender(log *zap.Logger, revealCode bool) *LogOTPSender {
	return &LogOTPSender{log: log.Named("otp.sender"), revealCode: revealCode}
}

func (s *LogOTPSender) Send(_ context.Context, channel, destination, code string) error {
	fields := []zap.Field{zap.String("channel", channel), zap.String("destination", destination)}
	if s.revealCode {
		fields = append(fields, zap.String("code", code))
	}
	s.log.Info("otp issued", fields...)
	return nil
}

// OTPEntry represents a single OTP record in memory
type OTPEntry struct {
	CodeHash  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// OTPOptions configures code lifetime and throttling
type OTPOptions struct {
	TTL         time.Duration
	MaxAttempts int
	Cooldown    time.Duration
	HashCost    int
}

// OTPService handles OTP generation and verification
type OTPService struct {
	store map[string]*OTPEntry // key = channel:destination
	mu    sync.Mutex
	opts  OTPOptions
	clock clock.Clock
	log   *zap.Logger
}

// NewOTPService creates a new OTP service
func NewOTPService(opts OTPOptions, c clock.Clock, log *zap.Logger) *OTPService {
	if c == nil {
		c = clock.New()
	}
	if opts.TTL <= 0 {
		opts.TTL = 5 * time.Minute
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.HashCost == 0 {
		opts.HashCost = password.DefaultCost
	}
	return &OTPService{
		store: make(map[string]*OTPEntry),
		opts:  opts,
		clock: c,
		log:   log.Named("otp.service"),
	}
}

func otpKey(channel, destination string) string {
	return channel + ":" + destination
}

// Generate creates a new code for the destination, replacing any previous
// one. A new code cannot be requested within the cooldown.
func (s *OTPService) Generate(channel, destination string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	key := otpKey(channel, destination)
	if existing, ok := s.store[key]; ok && now.Sub(existing.IssuedAt) < s.opts.Cooldown {
		wait := s.opts.Cooldown - now.Sub(existing.IssuedAt)
		return "", domain.ErrOTPCooldown.With("retry_after_seconds", int(wait.Seconds())+1)
	}

	code, err := password.GenerateCode(otpLength)
	if err != nil {
		return "", domain.Internal(err)
	}
	hash, err := password.HashWithCost(code, s.opts.HashCost)
	if err != nil {
		return "", domain.Internal(err)
	}

	s.store[key] = &OTPEntry{
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.opts.TTL),
	}
	return code, nil
}

// Verify checks a code. A successful verification consumes it.
func (s *OTPService) Verify(channel, destination, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := otpKey(channel, destination)
	entry, ok := s.store[key]
	if !ok {
		return domain.ErrInvalidOTP
	}

	if s.clock.Now().After(entry.ExpiresAt) {
		delete(s.store, key)
		return domain.ErrOTPExpired
	}

	if entry.Attempts >= s.opts.MaxAttempts {
		delete(s.store, key)
		return domain.ErrOTPExpired.Withf("too many attempts, request a new OTP")
	}

	entry.Attempts++
	if !password.Verify(strings.TrimSpace(code), entry.CodeHash) {
		return domain.ErrInvalidOTP.With("attempts_left", s.opts.MaxAttempts-entry.Attempts)
	}

	delete(s.store, key)
	return nil
}

// Sweep removes expired codes and returns how many were dropped
func (s *OTPService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, entry := range s.store {
		if now.After(entry.ExpiresAt) {
			delete(s.store, key)
			removed++
		}
	}
	return removed
}
