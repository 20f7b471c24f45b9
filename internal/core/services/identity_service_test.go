package services

import (
	"context"
	"testing"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentPrincipalWithoutSubject(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.identity.CurrentPrincipal(context.Background()))
	assert.Nil(t, f.identity.CurrentPrincipal(WithSubject(context.Background(), domain.Subject{})))
}

func TestCurrentPrincipalUsesStoredRole(t *testing.T) {
	f := newFixture(t)

	p := f.identity.CurrentPrincipal(asSubject("staff1"))
	require.NotNil(t, p)
	assert.Equal(t, "staff1", p.ID)
	assert.Equal(t, domain.RoleStaff, p.Role)
	assert.False(t, p.Overridden)
}

func TestCurrentPrincipalUnknownUser(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.identity.CurrentPrincipal(asSubject("stranger")))

	dev := NewIdentityService(f.users, f.overrides, f.clock, true, f.log)
	ctx := WithSubject(context.Background(), domain.Subject{ID: "stranger", Email: strPtr("s@example.com")})
	p := dev.CurrentPrincipal(ctx)
	require.NotNil(t, p)
	assert.Equal(t, domain.RoleSuperAdmin, p.Role)
	assert.Equal(t, "s@example.com", *p.FullName)
}

func TestCurrentPrincipalInactiveUser(t *testing.T) {
	f := newFixture(t)
	assert.Nil(t, f.identity.CurrentPrincipal(asSubject("gone1")))
}

func TestCurrentPrincipalAppliesActiveOverride(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.overrides.Upsert(context.Background(), &models.RoleOverride{
		UserID:    "cust1",
		Role:      "company_admin",
		Reason:    "test",
		GrantedBy: "cust1",
		ExpiresAt: baseTime.Add(time.Hour),
	}))

	p := f.identity.CurrentPrincipal(asSubject("cust1"))
	require.NotNil(t, p)
	assert.Equal(t, domain.RoleCompanyAdmin, p.Role)
	assert.True(t, p.Overridden)

	f.clock.Advance(2 * time.Hour)
	p = f.identity.CurrentPrincipal(asSubject("cust1"))
	require.NotNil(t, p)
	assert.Equal(t, domain.RoleCustomer, p.Role)
	assert.False(t, p.Overridden)
}
