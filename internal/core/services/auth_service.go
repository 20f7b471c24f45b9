package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/config"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/jwt"
	"unionpass-api/internal/pkg/password"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService is the auth provider: OTP sign-in plus access/refresh tokens
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	otp              *OTPService
	sender           OTPSender
	cfg              *config.Config
	log              *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	otp *OTPService,
	sender OTPSender,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		otp:              otp,
		sender:           sender,
		cfg:              cfg,
		log:              log.Named("auth.service"),
	}
}

// OTPRequestInput asks for a one-time code
type OTPRequestInput struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
}

// OTPVerifyInput submits a one-time code
type OTPVerifyInput struct {
	Channel     string `json:"channel"`
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
	IsNewUser    bool                 `json:"is_new_user"`
}

// RequestOTP issues and sends a code to a phone number or email address
func (s *AuthService) RequestOTP(ctx context.Context, input *OTPRequestInput) error {
	channel, destination, err := normalizeDestination(input.Channel, input.Destination)
	if err != nil {
		return err
	}

	code, err := s.otp.Generate(channel, destination)
	if err != nil {
		return err
	}

	if err := s.sender.Send(ctx, channel, destination, code); err != nil {
		s.log.Error("otp delivery failed", zap.String("channel", channel), zap.Error(err))
		return domain.Internal(err)
	}
	return nil
}

// VerifyOTP checks the code and signs the user in, creating the user with
// the customer role on first sign-in
func (s *AuthService) VerifyOTP(ctx context.Context, input *OTPVerifyInput) (*AuthResponse, error) {
	channel, destination, err := normalizeDestination(input.Channel, input.Destination)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(channel, destination, input.Code); err != nil {
		return nil, err
	}

	// 1. Find or create the user
	var user *models.User
	if channel == ChannelEmail {
		user, err = s.userRepo.GetByEmail(ctx, destination)
	} else {
		user, err = s.userRepo.GetByPhone(ctx, destination)
	}

	isNew := false
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &models.User{
			ID:       uuid.NewString(),
			Role:     string(domain.RoleCustomer),
			IsActive: true,
		}
		if channel == ChannelEmail {
			user.Email = &destination
		} else {
			user.Phone = &destination
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, domain.Internal(err)
		}
		isNew = true
		s.log.Info("user created on first sign-in", zap.String("user_id", user.ID), zap.String("channel", channel))
	default:
		return nil, domain.Internal(err)
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	// 3. Issue tokens
	resp, err := s.issue(ctx, user)
	if err != nil {
		return nil, err
	}
	resp.IsNewUser = isNew

	s.log.Info("user signed in", zap.String("user_id", user.ID))
	return resp, nil
}

// RefreshToken rotates the refresh token and issues a new access token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	// 1. Validate refresh token JWT
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrTokenInvalid
	}

	// 2. Find the stored token by hash
	storedToken, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, domain.Internal(err)
	}

	// 3. Reject revoked or expired tokens
	if storedToken.IsRevoked() {
		return nil, domain.ErrTokenRevoked
	}
	if storedToken.IsExpired(time.Now()) {
		return nil, domain.ErrTokenExpired
	}

	// 4. Load the user
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, domain.Internal(err)
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	// 5. Revoke old refresh token (token rotation)
	if err := s.refreshTokenRepo.Revoke(ctx, storedToken.ID); err != nil {
		return nil, domain.Internal(err)
	}

	return s.issue(ctx, user)
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken)); err != nil {
		return domain.Internal(err)
	}
	return nil
}

// LogoutAll revokes all refresh tokens for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID); err != nil {
		return domain.Internal(err)
	}
	s.log.Info("all sessions revoked", zap.String("user_id", userID))
	return nil
}

// ValidateAccessToken validates an access token
func (s *AuthService) ValidateAccessToken(accessToken string) (*jwt.Claims, error) {
	return jwt.ValidateAccessToken(accessToken, s.cfg.JWT.Secret)
}

// issue generates and stores a token pair
func (s *AuthService) issue(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessToken, err := jwt.GenerateAccessToken(user.ID, user.Email, user.Phone, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, domain.Internal(err)
	}

	refreshToken, err := jwt.GenerateRefreshToken(user.ID, uuid.NewString(), s.cfg.JWT.RefreshSecret, s.cfg.JWT.RefreshTokenDays)
	if err != nil {
		return nil, domain.Internal(err)
	}

	if err := s.refreshTokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		TokenHash: password.HashToken(refreshToken),
		ExpiresAt: jwt.GetExpiryTime(s.cfg.JWT.RefreshTokenDays),
	}); err != nil {
		return nil, domain.Internal(err)
	}

	return &AuthResponse{
		User:         user.ToResponse(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// normalizeDestination validates the channel and canonicalizes the address
func normalizeDestination(channel, destination string) (string, string, error) {
	channel = strings.ToLower(strings.TrimSpace(channel))
	destination = strings.TrimSpace(destination)

	switch channel {
	case ChannelEmail:
		addr, err := mail.ParseAddress(destination)
		if err != nil || addr.Address != destination {
			return "", "", domain.ErrInvalidInput.Withf("invalid email address")
		}
		return channel, strings.ToLower(destination), nil
	case ChannelSMS:
		var b strings.Builder
		for i, r := range destination {
			switch {
			case unicode.IsDigit(r):
				b.WriteRune(r)
			case r == '+' && i == 0:
				b.WriteRune(r)
			case r == ' ' || r == '-' || r == '(' || r == ')':
			default:
				return "", "", domain.ErrInvalidInput.Withf("invalid phone number")
			}
		}
		phone := b.String()
		digits := strings.TrimPrefix(phone, "+")
		if len(digits) < 8 || len(digits) > 15 {
			return "", "", domain.ErrInvalidInput.Withf("invalid phone number")
		}
		return channel, phone, nil
	default:
		return "", "", domain.ErrInvalidInput.Withf("channel must be 'sms' or 'email'")
	}
}
