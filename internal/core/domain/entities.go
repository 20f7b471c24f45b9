package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subject is the authenticated identity supplied by the auth provider
type Subject struct {
	ID    string
	Email *string
	Phone *string
}

// Principal is the resolved caller: identity plus effective role
type Principal struct {
	ID       string  `json:"id"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	FullName *string `json:"full_name,omitempty"`
	Role     Role    `json:"role"`
	// Overridden is set when Role comes from an active role override
	Overridden bool `json:"role_overridden,omitempty"`
}

// MembershipStatus is the lifecycle state of a prepaid balance
type MembershipStatus string

const (
	MembershipActive    MembershipStatus = "active"
	MembershipInactive  MembershipStatus = "inactive"
	MembershipSuspended MembershipStatus = "suspended"
)

// TransactionType classifies a ledger entry
type TransactionType string

const (
	TransactionPurchase   TransactionType = "purchase"
	TransactionUsage      TransactionType = "usage"
	TransactionRefund     TransactionType = "refund"
	TransactionAdjustment TransactionType = "adjustment"
)

// TransactionStatus is the state of a ledger entry
type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionPending   TransactionStatus = "pending"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionRefunded  TransactionStatus = "refunded"
)

// AccessType tells how a company or venue became reachable
type AccessType string

const (
	AccessPrimary     AccessType = "primary"
	AccessAssociation AccessType = "association"
	AccessCompany     AccessType = "company"
)

// CompanyAssociationView is a company association joined with the company name
type CompanyAssociationView struct {
	CompanyID   string      `json:"company_id"`
	Role        CompanyRole `json:"role"`
	CompanyName string      `json:"company_name"`
}

// VenueAssociationView is a venue association joined with venue and company names
type VenueAssociationView struct {
	VenueID     string    `json:"venue_id"`
	Role        VenueRole `json:"role"`
	VenueName   string    `json:"venue_name"`
	CompanyID   string    `json:"company_id"`
	CompanyName string    `json:"company_name"`
}

// UserPermissions is the full access surface of a user
type UserPermissions struct {
	UserID              string                   `json:"user_id"`
	PrimaryRole         Role                     `json:"primary_role"`
	PrimaryCompanyID    *string                  `json:"primary_company_id"`
	PrimaryVenueID      *string                  `json:"primary_venue_id"`
	CompanyAssociations []CompanyAssociationView `json:"company_associations"`
	VenueAssociations   []VenueAssociationView   `json:"venue_associations"`
}

// CompanyAccess is one entry of a user's accessible companies
type CompanyAccess struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Role       string     `json:"role"`
	AccessType AccessType `json:"access_type"`
}

// VenueAccess is one entry of a user's accessible venues
type VenueAccess struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	CompanyID   string     `json:"company_id"`
	CompanyName string     `json:"company_name"`
	Role        string     `json:"role"`
	AccessType  AccessType `json:"access_type"`
}

// ChargeResult is the outcome of a successful point-of-sale charge
type ChargeResult struct {
	TransactionID string          `json:"transaction_id"`
	NewBalance    decimal.Decimal `json:"new_balance"`
	CreatedAt     time.Time       `json:"created_at"`
}
