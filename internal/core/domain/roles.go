package domain

import "strings"

// Role represents a principal's primary role
type Role string

const (
	RoleCustomer     Role = "customer"
	RoleStaff        Role = "staff"
	RoleCompanyAdmin Role = "company_admin"
	RoleSuperAdmin   Role = "super_admin"
)

// Roles lists every primary role from lowest to highest rank
var Roles = []Role{RoleCustomer, RoleStaff, RoleCompanyAdmin, RoleSuperAdmin}

// UpgradeableRoles are the roles a principal may request through the demo self-upgrade
var UpgradeableRoles = []Role{RoleStaff, RoleCompanyAdmin, RoleSuperAdmin}

// Rank returns the position of the role in the hierarchy.
// Unknown roles rank -1 and satisfy no requirement.
func (r Role) Rank() int {
	switch r {
	case RoleCustomer:
		return 0
	case RoleStaff:
		return 1
	case RoleCompanyAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	default:
		return -1
	}
}

// Satisfies reports whether r meets the required minimum role
func (r Role) Satisfies(required Role) bool {
	rank := r.Rank()
	if rank < 0 || required.Rank() < 0 {
		return false
	}
	return rank >= required.Rank()
}

// IsValid reports whether r is one of the known roles
func (r Role) IsValid() bool {
	return r.Rank() >= 0
}

// DisplayName returns the role with underscores replaced, e.g. "super admin"
func (r Role) DisplayName() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// ParseRole normalizes and validates a role name
func ParseRole(s string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	return role, nil
}

// IsUpgradeable reports whether the role can be requested via self-upgrade
func IsUpgradeable(r Role) bool {
	for _, role := range UpgradeableRoles {
		if role == r {
			return true
		}
	}
	return false
}

// CompanyRole is the role held through a company association
type CompanyRole string

const (
	CompanyRoleAdmin   CompanyRole = "admin"
	CompanyRoleManager CompanyRole = "manager"
)

// IsValid reports whether the company role is known
func (r CompanyRole) IsValid() bool {
	return r == CompanyRoleAdmin || r == CompanyRoleManager
}

// VenueRole is the role held through a venue association
type VenueRole string

const (
	VenueRoleStaff   VenueRole = "staff"
	VenueRoleManager VenueRole = "manager"
)

// IsValid reports whether the venue role is known
func (r VenueRole) IsValid() bool {
	return r == VenueRoleStaff || r == VenueRoleManager
}
