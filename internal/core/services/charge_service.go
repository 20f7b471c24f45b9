package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/metrics"
	"unionpass-api/internal/pkg/qrtoken"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultChargeDescription = "Purchase"

// ChargeInput is a point-of-sale charge request
type ChargeInput struct {
	QRData      string
	Amount      decimal.Decimal
	Description string
	StaffID     string
	VenueID     *string

	// VenueCompanyID, when set, must match the membership's company
	VenueCompanyID string
}

// CustomerMembership is the membership part of a QR lookup
type CustomerMembership struct {
	ID          string          `json:"id"`
	CompanyID   string          `json:"company_id"`
	CompanyName string          `json:"company_name"`
	Balance     decimal.Decimal `json:"balance"`
	Status      string          `json:"status"`
}

// CustomerInfo is what staff see after scanning a QR code
type CustomerInfo struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Email      *string            `json:"email,omitempty"`
	Phone      *string            `json:"phone,omitempty"`
	Membership CustomerMembership `json:"membership"`
}

// ChargeService is the only path that debits a membership balance
type ChargeService struct {
	db             *gorm.DB
	membershipRepo repositories.MembershipRepository
	txnRepo        repositories.TransactionRepository
	userRepo       repositories.UserRepository
	codec          *qrtoken.Codec
	clock          clock.Clock
	qrExpiry       time.Duration
	qrSkew         time.Duration
	metrics        *metrics.Metrics
	log            *zap.Logger
}

// ChargeOptions configures token freshness. A zero QRExpiry disables the age check.
type ChargeOptions struct {
	QRExpiry time.Duration
	QRSkew   time.Duration
}

func NewChargeService(
	db *gorm.DB,
	membershipRepo repositories.MembershipRepository,
	txnRepo repositories.TransactionRepository,
	userRepo repositories.UserRepository,
	codec *qrtoken.Codec,
	c clock.Clock,
	opts ChargeOptions,
	m *metrics.Metrics,
	log *zap.Logger,
) *ChargeService {
	if c == nil {
		c = clock.New()
	}
	return &ChargeService{
		db:             db,
		membershipRepo: membershipRepo,
		txnRepo:        txnRepo,
		userRepo:       userRepo,
		codec:          codec,
		clock:          c,
		qrExpiry:       opts.QRExpiry,
		qrSkew:         opts.QRSkew,
		metrics:        m,
		log:            log.Named("charge.service"),
	}
}

// ProcessCharge validates the token and the membership, then debits the
// balance and appends a usage entry in one database transaction.
// Checks run in order and the first failure is returned.
func (s *ChargeService) ProcessCharge(ctx context.Context, in ChargeInput) (*domain.ChargeResult, error) {
	result, err := s.processCharge(ctx, in)
	s.observe(in.Amount, err)
	return result, err
}

func (s *ChargeService) processCharge(ctx context.Context, in ChargeInput) (*domain.ChargeResult, error) {
	if err := validateAmount(in.Amount); err != nil {
		return nil, err
	}

	token, err := s.decode(in.QRData)
	if err != nil {
		return nil, err
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = defaultChargeDescription
	}

	var result *domain.ChargeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		memberships := s.membershipRepo.WithTx(tx)
		ledger := s.txnRepo.WithTx(tx)

		membership, err := s.loadMembership(ctx, memberships, token)
		if err != nil {
			return err
		}
		if in.VenueCompanyID != "" && in.VenueCompanyID != membership.CompanyID {
			return domain.ErrVenueCompanyMismatch.
				With("membership_company_id", membership.CompanyID).
				With("venue_company_id", in.VenueCompanyID)
		}
		if err := checkChargeable(membership, in.Amount); err != nil {
			return err
		}

		debited, err := memberships.Debit(ctx, membership.ID, in.Amount)
		if err != nil {
			return domain.Internal(err)
		}
		if !debited {
			// lost a race since the read; classify against the current row
			current, err := s.loadMembership(ctx, memberships, token)
			if err != nil {
				return err
			}
			if err := checkChargeable(current, in.Amount); err != nil {
				return err
			}
			return domain.ErrInsufficientBalance.With("balance", current.Balance.StringFixed(2))
		}

		updated, err := memberships.GetByID(ctx, membership.ID)
		if err != nil {
			return domain.Internal(err)
		}

		now := s.clock.Now().UTC()
		staffID := in.StaffID
		entry := &models.Transaction{
			ID:              uuid.NewString(),
			UserID:          membership.UserID,
			MembershipID:    membership.ID,
			VenueID:         in.VenueID,
			Type:            string(domain.TransactionUsage),
			Amount:          in.Amount,
			PreviousBalance: updated.Balance.Add(in.Amount),
			NewBalance:      updated.Balance,
			Description:     description,
			Status:          string(domain.TransactionCompleted),
			CreatedAt:       now,
		}
		if staffID != "" {
			entry.ProcessedBy = &staffID
		}
		if err := ledger.Create(ctx, entry); err != nil {
			return domain.Internal(err)
		}

		result = &domain.ChargeResult{
			TransactionID: entry.ID,
			NewBalance:    updated.Balance,
			CreatedAt:     now,
		}
		return nil
	})
	if err != nil {
		var de *domain.Error
		if !errors.As(err, &de) {
			err = domain.Internal(err)
		}
		if domain.KindOf(err) == domain.KindInternal {
			s.log.Error("charge failed", zap.String("membership_id", token.MembershipID), zap.Error(err))
		}
		return nil, err
	}

	s.log.Info("charge processed",
		zap.String("transaction_id", result.TransactionID),
		zap.String("membership_id", token.MembershipID),
		zap.String("amount", in.Amount.StringFixed(2)),
		zap.String("staff_id", in.StaffID),
	)
	return result, nil
}

// LookupCustomer resolves the customer and membership behind a QR payload
func (s *ChargeService) LookupCustomer(ctx context.Context, qrData string) (*CustomerInfo, error) {
	token, err := s.decode(qrData)
	if err != nil {
		return nil, err
	}

	membership, err := s.loadMembership(ctx, s.membershipRepo, token)
	if err != nil {
		return nil, err
	}

	info := &CustomerInfo{
		ID: membership.UserID,
		Membership: CustomerMembership{
			ID:        membership.ID,
			CompanyID: membership.CompanyID,
			Balance:   membership.Balance,
			Status:    membership.Status,
		},
	}
	if membership.Company != nil {
		info.Membership.CompanyName = membership.Company.Name
	}

	user, err := s.userRepo.GetByID(ctx, membership.UserID)
	switch {
	case err == nil:
		info.Email = user.Email
		info.Phone = user.Phone
		if name := firstNonEmpty(user.FullName, user.Email, user.Phone); name != nil {
			info.Name = *name
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.ErrCustomerNotFound
	default:
		s.log.Error("customer lookup failed", zap.String("user_id", membership.UserID), zap.Error(err))
		return nil, domain.Internal(err)
	}

	return info, nil
}

// decode parses the payload and applies the expiry policy
func (s *ChargeService) decode(qrData string) (*qrtoken.Token, error) {
	token, err := s.codec.Decode(qrData)
	if err != nil {
		return nil, domain.ErrInvalidQRCode
	}
	if err := qrtoken.CheckFreshness(token, s.clock.Now(), s.qrExpiry, s.qrSkew); err != nil {
		return nil, domain.ErrQRCodeExpired
	}
	return token, nil
}

// loadMembership returns the membership named by the token. A membership
// owned by someone other than the token's user is treated as absent.
func (s *ChargeService) loadMembership(ctx context.Context, repo repositories.MembershipRepository, token *qrtoken.Token) (*models.Membership, error) {
	membership, err := repo.GetByID(ctx, token.MembershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, domain.Internal(err)
	}
	if membership.UserID != token.UserID {
		return nil, domain.ErrCustomerNotFound
	}
	return membership, nil
}

func checkChargeable(m *models.Membership, amount decimal.Decimal) error {
	if !m.IsActive() {
		return domain.ErrMembershipNotActive.
			Withf("membership is %s", m.Status).
			With("status", m.Status)
	}
	if amount.GreaterThan(m.Balance) {
		return domain.ErrInsufficientBalance.With("balance", m.Balance.StringFixed(2))
	}
	return nil
}

// validateAmount accepts positive amounts with at most two decimal places
func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return domain.ErrInvalidAmount.Withf("amount must have at most 2 decimal places")
	}
	return nil
}

func (s *ChargeService) observe(amount decimal.Decimal, err error) {
	if err != nil {
		s.metrics.ObserveCharge(domain.CodeOf(err), 0)
		return
	}
	f, _ := amount.Float64()
	s.metrics.ObserveCharge("ok", f)
}
