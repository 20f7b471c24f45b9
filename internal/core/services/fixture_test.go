package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/adapters/persistence/testdb"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/clock"
	"unionpass-api/internal/pkg/qrtoken"
	"unionpass-api/internal/pkg/ratelimit"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

// recordingAuditor keeps audit entries in memory
type recordingAuditor struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.entries))
	for i, e := range a.entries {
		out[i] = e.Action
	}
	return out
}

func (a *recordingAuditor) last() AuditEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.entries[len(a.entries)-1]
}

type fixture struct {
	db    *gorm.DB
	clock *clock.FakeClock
	log   *zap.Logger
	audit *recordingAuditor

	users         repositories.UserRepository
	overrides     repositories.RoleOverrideRepository
	access        repositories.AccessRepository
	memberships   repositories.MembershipRepository
	txns          repositories.TransactionRepository
	refreshTokens repositories.RefreshTokenRepository

	codec    *qrtoken.Codec
	limiter  *ratelimit.MemoryStore
	identity *IdentityService
}

// newFixture opens a fresh database seeded with:
//
//	companies sgv (venues v1, v2) and other (venue o1)
//	cust1 customer with active membership m1 (150.75)
//	cust2 customer with suspended membership m2 (50.00)
//	staff1 staff at sgv / v1, admin1 super_admin, gone1 inactive
func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testdb.New(t)
	fc := clock.NewFakeClock(baseTime)
	log := zap.NewNop()

	f := &fixture{
		db:            db,
		clock:         fc,
		log:           log,
		audit:         &recordingAuditor{},
		users:         repositories.NewUserRepository(db),
		overrides:     repositories.NewRoleOverrideRepository(db),
		access:        repositories.NewAccessRepository(db),
		memberships:   repositories.NewMembershipRepository(db),
		txns:          repositories.NewTransactionRepository(db),
		refreshTokens: repositories.NewRefreshTokenRepository(db),
		codec:         qrtoken.NewCodec(fc),
		limiter:       ratelimit.NewMemoryStore(fc),
	}
	f.identity = NewIdentityService(f.users, f.overrides, fc, false, log)

	require.NoError(t, db.Create(&[]models.Company{
		{ID: "sgv", Name: "SGV"},
		{ID: "other", Name: "Other Co"},
	}).Error)
	require.NoError(t, db.Create(&[]models.Venue{
		{ID: "v1", CompanyID: "sgv", Name: "ET", Type: "ktv"},
		{ID: "v2", CompanyID: "sgv", Name: "Long Feng Hotpot", Type: "restaurant"},
		{ID: "o1", CompanyID: "other", Name: "Elsewhere", Type: "bar"},
	}).Error)
	require.NoError(t, db.Create(&[]models.User{
		{ID: "cust1", Email: strPtr("john@example.com"), FullName: strPtr("John Smith"), Role: "customer", IsActive: true},
		{ID: "cust2", Email: strPtr("jane@example.com"), FullName: strPtr("Jane Doe"), Role: "customer", IsActive: true},
		{ID: "staff1", Email: strPtr("alice@sgv.example"), Role: "staff", CompanyID: strPtr("sgv"), VenueID: strPtr("v1"), IsActive: true},
		{ID: "admin1", Email: strPtr("admin@example.com"), Role: "super_admin", IsActive: true},
		{ID: "gone1", Email: strPtr("gone@example.com"), Role: "staff", IsActive: true},
	}).Error)
	// IsActive has a database default, so false must be written explicitly
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", "gone1").Update("is_active", false).Error)
	require.NoError(t, db.Create(&[]models.Membership{
		{ID: "m1", UserID: "cust1", CompanyID: "sgv", Balance: decimal.RequireFromString("150.75"), Status: "active"},
		{ID: "m2", UserID: "cust2", CompanyID: "sgv", Balance: decimal.RequireFromString("50.00"), Status: "suspended"},
	}).Error)

	return f
}

func (f *fixture) chargeService() *ChargeService {
	return NewChargeService(f.db, f.memberships, f.txns, f.users, f.codec, f.clock,
		ChargeOptions{QRExpiry: 15 * time.Minute, QRSkew: time.Minute}, nil, f.log)
}

func (f *fixture) gateway(flags FlagSource, isDev bool) *GatewayService {
	return NewGatewayService(f.identity, f.limiter, flags, isDev, nil, f.log)
}

func (f *fixture) qr(t *testing.T, userID, membershipID string) string {
	t.Helper()
	raw, err := f.codec.Encode(userID, membershipID)
	require.NoError(t, err)
	return raw
}

func (f *fixture) balance(t *testing.T, membershipID string) decimal.Decimal {
	t.Helper()
	m, err := f.memberships.GetByID(context.Background(), membershipID)
	require.NoError(t, err)
	return m.Balance
}

func asSubject(id string) context.Context {
	return WithSubject(context.Background(), domain.Subject{ID: id})
}

type staticFlags map[string]bool

func (f staticFlags) FlagEnabled(name string) bool { return f[name] }
