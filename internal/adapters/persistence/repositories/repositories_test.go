package repositories

import (
	"context"
	"testing"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/testdb"
	"unionpass-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// seedTenants creates companies X and Y with two venues each
func seedTenants(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]models.Company{
		{ID: "cx", Name: "Company X"},
		{ID: "cy", Name: "Company Y"},
	}).Error)
	require.NoError(t, db.Create(&[]models.Venue{
		{ID: "vx1", CompanyID: "cx", Name: "X One"},
		{ID: "vx2", CompanyID: "cx", Name: "X Two"},
		{ID: "vy1", CompanyID: "cy", Name: "Y One"},
		{ID: "vy2", CompanyID: "cy", Name: "Y Two"},
	}).Error)
}

func TestAccessRepositoryCompanyAssociationGrantsVenues(t *testing.T) {
	db := testdb.New(t)
	seedTenants(t, db)
	require.NoError(t, db.Create(&models.User{ID: "u1", Role: "staff", IsActive: true}).Error)

	repo := NewAccessRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertCompanyAssociation(ctx, "u1", "cx", domain.CompanyRoleAdmin))

	ok, err := repo.UserCanAccessCompany(ctx, "u1", "cx")
	require.NoError(t, err)
	assert.True(t, ok)

	for _, v := range []string{"vx1", "vx2"} {
		ok, err := repo.UserCanAccessVenue(ctx, "u1", v)
		require.NoError(t, err)
		assert.True(t, ok, v)
	}
	for _, v := range []string{"vy1", "vy2"} {
		ok, err := repo.UserCanAccessVenue(ctx, "u1", v)
		require.NoError(t, err)
		assert.False(t, ok, v)
	}

	ok, err = repo.UserCanAccessVenue(ctx, "u1", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAccessRepositoryPrimaryAssignment(t *testing.T) {
	db := testdb.New(t)
	seedTenants(t, db)
	require.NoError(t, db.Create(&models.User{ID: "u1", Role: "staff", CompanyID: strPtr("cy"), VenueID: strPtr("vx1"), IsActive: true}).Error)

	repo := NewAccessRepository(db)
	ctx := context.Background()

	ok, _ := repo.UserCanAccessCompany(ctx, "u1", "cy")
	assert.True(t, ok)
	ok, _ = repo.UserCanAccessCompany(ctx, "u1", "cx")
	assert.False(t, ok)

	// primary venue, and venues under the primary company
	ok, _ = repo.UserCanAccessVenue(ctx, "u1", "vx1")
	assert.True(t, ok)
	ok, _ = repo.UserCanAccessVenue(ctx, "u1", "vy2")
	assert.True(t, ok)
	ok, _ = repo.UserCanAccessVenue(ctx, "u1", "vx2")
	assert.False(t, ok)
}

func TestAccessRepositoryUpsertReplacesRoleAndDeleteIsIdempotent(t *testing.T) {
	db := testdb.New(t)
	seedTenants(t, db)
	repo := NewAccessRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.UpsertVenueAssociation(ctx, "u1", "vy1", domain.VenueRoleStaff))
	require.NoError(t, repo.UpsertVenueAssociation(ctx, "u1", "vy1", domain.VenueRoleManager))

	views, err := repo.ListVenueAssociations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, domain.VenueRoleManager, views[0].Role)
	assert.Equal(t, "Y One", views[0].VenueName)
	assert.Equal(t, "cy", views[0].CompanyID)
	assert.Equal(t, "Company Y", views[0].CompanyName)

	require.NoError(t, repo.DeleteVenueAssociation(ctx, "u1", "vy1"))
	require.NoError(t, repo.DeleteVenueAssociation(ctx, "u1", "vy1"))
	views, err = repo.ListVenueAssociations(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, views)

	require.NoError(t, repo.UpsertCompanyAssociation(ctx, "u1", "cx", domain.CompanyRoleManager))
	require.NoError(t, repo.UpsertCompanyAssociation(ctx, "u1", "cx", domain.CompanyRoleAdmin))
	companies, err := repo.ListCompanyAssociations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, companies, 1)
	assert.Equal(t, domain.CompanyRoleAdmin, companies[0].Role)
	assert.Equal(t, "Company X", companies[0].CompanyName)

	require.NoError(t, repo.DeleteCompanyAssociation(ctx, "u1", "cx"))
	require.NoError(t, repo.DeleteCompanyAssociation(ctx, "u1", "cx"))
}

func TestMembershipRepositoryDebitIsConditional(t *testing.T) {
	db := testdb.New(t)
	seedTenants(t, db)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Membership{
		ID: "m1", UserID: "u1", CompanyID: "cx", Balance: decimal.RequireFromString("100.00"), Status: "active",
	}))
	require.NoError(t, repo.Create(ctx, &models.Membership{
		ID: "m2", UserID: "u1", CompanyID: "cx", Balance: decimal.RequireFromString("100.00"), Status: "suspended",
	}))

	ok, err := repo.Debit(ctx, "m1", decimal.RequireFromString("60"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Debit(ctx, "m1", decimal.RequireFromString("60"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Debit(ctx, "m2", decimal.RequireFromString("1"))
	require.NoError(t, err)
	assert.False(t, ok)

	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "40.00", m.Balance.StringFixed(2))

	list, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMembershipRepositoryDebitKeepsCents(t *testing.T) {
	db := testdb.New(t)
	seedTenants(t, db)
	repo := NewMembershipRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &models.Membership{
		ID: "m1", UserID: "u1", CompanyID: "cx", Balance: decimal.RequireFromString("0.30"), Status: "active",
	}))

	for i := 0; i < 3; i++ {
		ok, err := repo.Debit(ctx, "m1", decimal.RequireFromString("0.10"))
		require.NoError(t, err)
		require.True(t, ok, "debit %d", i+1)
	}

	m, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, m.Balance.Equal(decimal.Zero), "balance %s", m.Balance)

	ok, err := repo.Debit(ctx, "m1", decimal.RequireFromString("0.01"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTransactionRepositoryListFiltersAndOrders(t *testing.T) {
	db := testdb.New(t)
	repo := NewTransactionRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		{ID: "t1", UserID: "u1", MembershipID: "m1", VenueID: strPtr("v1"), ProcessedBy: strPtr("s1"), CreatedAt: base},
		{ID: "t2", UserID: "u1", MembershipID: "m1", VenueID: strPtr("v2"), ProcessedBy: strPtr("s2"), CreatedAt: base.Add(time.Hour)},
		{ID: "t3", UserID: "u2", MembershipID: "m2", VenueID: strPtr("v1"), ProcessedBy: strPtr("s1"), CreatedAt: base.Add(2 * time.Hour)},
	}
	for i := range rows {
		rows[i].Type = "usage"
		rows[i].Status = "completed"
		rows[i].Amount = decimal.NewFromInt(1)
		require.NoError(t, repo.Create(ctx, &rows[i]))
	}

	all, total, err := repo.List(ctx, TransactionFilter{}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, all, 3)
	assert.Equal(t, "t3", all[0].ID)
	assert.Equal(t, "t1", all[2].ID)

	page, total, err := repo.List(ctx, TransactionFilter{}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "t2", page[0].ID)

	byUser, total, err := repo.List(ctx, TransactionFilter{UserID: strPtr("u1")}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byUser, 2)

	byStaffVenue, total, err := repo.List(ctx, TransactionFilter{StaffID: strPtr("s1"), VenueID: strPtr("v1")}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, byStaffVenue, 2)
}

func TestRoleOverrideRepositoryUpsertAndExpiry(t *testing.T) {
	db := testdb.New(t)
	repo := NewRoleOverrideRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Upsert(ctx, &models.RoleOverride{UserID: "u1", Role: "staff", Reason: "self_upgrade", GrantedBy: "u1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &models.RoleOverride{UserID: "u1", Role: "company_admin", Reason: "self_upgrade", GrantedBy: "u1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &models.RoleOverride{UserID: "u2", Role: "staff", Reason: "self_upgrade", GrantedBy: "u2", ExpiresAt: now.Add(-time.Hour)}))

	o, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "company_admin", o.Role)
	assert.True(t, o.IsActive(now))

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.Get(ctx, "u2")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.Delete(ctx, "u1"))
	require.NoError(t, repo.Delete(ctx, "u1"))
}

func TestRefreshTokenRepositoryRevocation(t *testing.T) {
	db := testdb.New(t)
	repo := NewRefreshTokenRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &models.RefreshToken{UserID: "u1", TokenHash: "h1", ExpiresAt: now.Add(time.Hour)}))
	require.NoError(t, repo.Create(ctx, &models.RefreshToken{UserID: "u1", TokenHash: "h2", ExpiresAt: now.Add(-time.Hour)}))

	require.NoError(t, repo.RevokeByTokenHash(ctx, "h1"))
	tok, err := repo.GetByTokenHash(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, tok.IsRevoked())

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
