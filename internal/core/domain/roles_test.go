package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleSatisfiesIsMonotonic(t *testing.T) {
	for _, r1 := range Roles {
		for _, r2 := range Roles {
			assert.Equal(t, r1.Rank() >= r2.Rank(), r1.Satisfies(r2), "%s satisfies %s", r1, r2)
		}
	}
}

func TestSuperAdminSatisfiesEverything(t *testing.T) {
	for _, r := range Roles {
		assert.True(t, RoleSuperAdmin.Satisfies(r), r)
	}
}

func TestCustomerSatisfiesOnlyCustomer(t *testing.T) {
	assert.True(t, RoleCustomer.Satisfies(RoleCustomer))
	assert.False(t, RoleCustomer.Satisfies(RoleStaff))
	assert.False(t, RoleCustomer.Satisfies(RoleCompanyAdmin))
	assert.False(t, RoleCustomer.Satisfies(RoleSuperAdmin))
}

func TestUnknownRoleSatisfiesNothing(t *testing.T) {
	unknown := Role("owner")
	assert.Equal(t, -1, unknown.Rank())
	for _, r := range Roles {
		assert.False(t, unknown.Satisfies(r))
		assert.False(t, r.Satisfies(unknown))
	}
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole("  Company_Admin ")
	require.NoError(t, err)
	assert.Equal(t, RoleCompanyAdmin, role)

	_, err = ParseRole("root")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestIsUpgradeable(t *testing.T) {
	assert.False(t, IsUpgradeable(RoleCustomer))
	assert.True(t, IsUpgradeable(RoleStaff))
	assert.True(t, IsUpgradeable(RoleCompanyAdmin))
	assert.True(t, IsUpgradeable(RoleSuperAdmin))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "super admin", RoleSuperAdmin.DisplayName())
	assert.Equal(t, "staff", RoleStaff.DisplayName())
}
