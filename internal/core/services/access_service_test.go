package services

import (
	"context"
	"testing"

	"unionpass-api/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func byVenueID(venues []domain.VenueAccess) map[string]domain.VenueAccess {
	out := make(map[string]domain.VenueAccess, len(venues))
	for _, v := range venues {
		out[v.ID] = v
	}
	return out
}

func TestAccessUnionCompanyAssociationCoversVenues(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	require.True(t, svc.AssignUserToCompany(ctx, "cust1", "sgv", domain.CompanyRoleManager))
	p := &domain.Principal{ID: "cust1", Role: domain.RoleCustomer}

	assert.True(t, svc.CanAccessCompany(ctx, p, "sgv"))
	assert.False(t, svc.CanAccessCompany(ctx, p, "other"))
	assert.True(t, svc.CanAccessVenue(ctx, p, "v1"))
	assert.True(t, svc.CanAccessVenue(ctx, p, "v2"))
	assert.False(t, svc.CanAccessVenue(ctx, p, "o1"))
}

func TestAccessSuperAdminAndNil(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	admin := &domain.Principal{ID: "admin1", Role: domain.RoleSuperAdmin}
	assert.True(t, svc.CanAccessCompany(ctx, admin, "other"))
	assert.True(t, svc.CanAccessVenue(ctx, admin, "o1"))

	assert.False(t, svc.CanAccessCompany(ctx, nil, "sgv"))
	assert.False(t, svc.CanAccessVenue(ctx, nil, "v1"))
}

func TestAccessPrimaryAssignment(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()
	staff := &domain.Principal{ID: "staff1", Role: domain.RoleStaff}

	assert.True(t, svc.CanAccessCompany(ctx, staff, "sgv"))
	assert.True(t, svc.CanAccessVenue(ctx, staff, "v1"))
	assert.True(t, svc.CanAccessVenue(ctx, staff, "v2"))
	assert.False(t, svc.CanAccessVenue(ctx, staff, "o1"))
}

func TestGetUserPermissions(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	require.True(t, svc.AssignUserToCompany(ctx, "staff1", "other", domain.CompanyRoleAdmin))
	require.True(t, svc.AssignUserToVenue(ctx, "staff1", "o1", domain.VenueRoleManager))

	perms := svc.GetUserPermissions(ctx, "staff1")
	require.NotNil(t, perms)
	assert.Equal(t, domain.RoleStaff, perms.PrimaryRole)
	assert.Equal(t, "sgv", *perms.PrimaryCompanyID)
	assert.Equal(t, "v1", *perms.PrimaryVenueID)
	require.Len(t, perms.CompanyAssociations, 1)
	assert.Equal(t, "Other Co", perms.CompanyAssociations[0].CompanyName)
	require.Len(t, perms.VenueAssociations, 1)
	assert.Equal(t, "Elsewhere", perms.VenueAssociations[0].VenueName)
	assert.Equal(t, "other", perms.VenueAssociations[0].CompanyID)

	assert.Nil(t, svc.GetUserPermissions(ctx, "nobody"))
}

func TestListAccessibleCompaniesAssociationWins(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	companies := svc.ListAccessibleCompanies(ctx, "staff1")
	require.Len(t, companies, 1)
	assert.Equal(t, domain.AccessPrimary, companies[0].AccessType)
	assert.Equal(t, "staff", companies[0].Role)

	require.True(t, svc.AssignUserToCompany(ctx, "staff1", "sgv", domain.CompanyRoleAdmin))
	companies = svc.ListAccessibleCompanies(ctx, "staff1")
	require.Len(t, companies, 1)
	assert.Equal(t, domain.AccessAssociation, companies[0].AccessType)
	assert.Equal(t, "admin", companies[0].Role)

	assert.Empty(t, svc.ListAccessibleCompanies(ctx, "nobody"))
}

func TestListAccessibleVenuesPrecedence(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	require.True(t, svc.AssignUserToVenue(ctx, "staff1", "v2", domain.VenueRoleManager))
	require.True(t, svc.AssignUserToCompany(ctx, "staff1", "other", domain.CompanyRoleManager))

	venues := svc.ListAccessibleVenues(ctx, "staff1")
	assert.Len(t, venues, 3)
	got := byVenueID(venues)

	assert.Equal(t, domain.AccessPrimary, got["v1"].AccessType)
	assert.Equal(t, "staff", got["v1"].Role)
	assert.Equal(t, "SGV", got["v1"].CompanyName)

	assert.Equal(t, domain.AccessAssociation, got["v2"].AccessType)
	assert.Equal(t, "manager", got["v2"].Role)

	assert.Equal(t, domain.AccessCompany, got["o1"].AccessType)
	assert.Equal(t, "company_manager", got["o1"].Role)
	assert.Equal(t, "Other Co", got["o1"].CompanyName)
}

func TestAssignRejectsUnknownRoles(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	assert.False(t, svc.AssignUserToCompany(ctx, "cust1", "sgv", domain.CompanyRole("owner")))
	assert.False(t, svc.AssignUserToVenue(ctx, "cust1", "v1", domain.VenueRole("owner")))
	assert.True(t, svc.RemoveUserFromCompany(ctx, "cust1", "sgv"))
	assert.True(t, svc.RemoveUserFromVenue(ctx, "cust1", "v1"))
}

func TestCompanyNameAndVenueCompany(t *testing.T) {
	f := newFixture(t)
	svc := NewAccessService(f.users, f.access, f.log)
	ctx := context.Background()

	name, err := svc.CompanyName(ctx, "sgv")
	require.NoError(t, err)
	assert.Equal(t, "SGV", name)
	_, err = svc.CompanyName(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrCompanyNotFound)

	companyID, err := svc.VenueCompany(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "other", companyID)
	_, err = svc.VenueCompany(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrVenueNotFound)
}
