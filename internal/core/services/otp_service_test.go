package services

import (
	"testing"
	"time"

	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func newTestOTPService(c clock.Clock) *OTPService {
	return NewOTPService(OTPOptions{
		TTL:         5 * time.Minute,
		MaxAttempts: 3,
		Cooldown:    time.Minute,
		HashCost:    bcrypt.MinCost,
	}, c, zap.NewNop())
}

func TestOTPGenerateAndVerify(t *testing.T) {
	svc := newTestOTPService(clock.NewFakeClock(baseTime))

	code, err := svc.Generate(ChannelEmail, "a@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	require.NoError(t, svc.Verify(ChannelEmail, "a@example.com", code))
	// consumed
	assert.ErrorIs(t, svc.Verify(ChannelEmail, "a@example.com", code), domain.ErrInvalidOTP)
}

func TestOTPCooldown(t *testing.T) {
	fc := clock.NewFakeClock(baseTime)
	svc := newTestOTPService(fc)

	_, err := svc.Generate(ChannelSMS, "+66812345678")
	require.NoError(t, err)

	_, err = svc.Generate(ChannelSMS, "+66812345678")
	assert.ErrorIs(t, err, domain.ErrOTPCooldown)

	// other destinations are independent
	_, err = svc.Generate(ChannelSMS, "+66899999999")
	require.NoError(t, err)

	fc.Advance(time.Minute)
	_, err = svc.Generate(ChannelSMS, "+66812345678")
	require.NoError(t, err)
}

func TestOTPAttemptsAreCapped(t *testing.T) {
	svc := newTestOTPService(clock.NewFakeClock(baseTime))
	code, err := svc.Generate(ChannelEmail, "a@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 3; i++ {
		err := svc.Verify(ChannelEmail, "a@example.com", wrong)
		assert.ErrorIs(t, err, domain.ErrInvalidOTP)
	}
	assert.ErrorIs(t, svc.Verify(ChannelEmail, "a@example.com", code), domain.ErrOTPExpired)
}

func TestOTPExpiryAndSweep(t *testing.T) {
	fc := clock.NewFakeClock(baseTime)
	svc := newTestOTPService(fc)

	code, err := svc.Generate(ChannelEmail, "a@example.com")
	require.NoError(t, err)
	_, err = svc.Generate(ChannelEmail, "b@example.com")
	require.NoError(t, err)

	fc.Advance(6 * time.Minute)
	assert.ErrorIs(t, svc.Verify(ChannelEmail, "a@example.com", code), domain.ErrOTPExpired)
	assert.Equal(t, 1, svc.Sweep())
	assert.Equal(t, 0, svc.Sweep())
}
