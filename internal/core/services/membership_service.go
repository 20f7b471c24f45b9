package services

import (
	"context"
	"errors"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/qrtoken"

	"gorm.io/gorm"
)

// QRCode is a freshly issued payment token for display
type QRCode struct {
	QRData       string     `json:"qr_data"`
	MembershipID string     `json:"membership_id"`
	IssuedAt     time.Time  `json:"issued_at"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// MembershipService serves a customer's own balances and QR codes
type MembershipService struct {
	membershipRepo repositories.MembershipRepository
	codec          *qrtoken.Codec
	clock          clock.Clock
	qrExpiry       time.Duration
}

func NewMembershipService(
	membershipRepo repositories.MembershipRepository,
	codec *qrtoken.Codec,
	c clock.Clock,
	qrExpiry time.Duration,
) *MembershipService {
	if c == nil {
		c = clock.New()
	}
	return &MembershipService{
		membershipRepo: membershipRepo,
		codec:          codec,
		clock:          c,
		qrExpiry:       qrExpiry,
	}
}

// ListMine returns the caller's memberships
func (s *MembershipService) ListMine(ctx context.Context, userID string) ([]*models.Membership, error) {
	memberships, err := s.membershipRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if memberships == nil {
		memberships = []*models.Membership{}
	}
	return memberships, nil
}

// IssueQR encodes a payment token for a membership the caller owns. Every
// call yields a new timestamp, so the code can be regenerated at will.
func (s *MembershipService) IssueQR(ctx context.Context, userID, membershipID string) (*QRCode, error) {
	membership, err := s.membershipRepo.GetByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, domain.Internal(err)
	}
	// Someone else's membership is reported as missing
	if membership.UserID != userID {
		return nil, domain.ErrMembershipNotFound
	}
	if !membership.IsActive() {
		return nil, domain.ErrMembershipNotActive.
			Withf("membership is %s", membership.Status).
			With("status", membership.Status)
	}

	issuedAt := s.clock.Now()
	raw, err := s.codec.Encode(userID, membershipID)
	if err != nil {
		return nil, domain.Internal(err)
	}

	code := &QRCode{
		QRData:       raw,
		MembershipID: membershipID,
		IssuedAt:     issuedAt,
	}
	if s.qrExpiry > 0 {
		expires := issuedAt.Add(s.qrExpiry)
		code.ExpiresAt = &expires
	}
	return code, nil
}
