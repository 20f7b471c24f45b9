package models

import (
	"time"

	"unionpass-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ============================================================
// Identity
// ============================================================

// User represents users table
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Email     *string   `gorm:"uniqueIndex;size:100" json:"email"`
	Phone     *string   `gorm:"uniqueIndex;size:32" json:"phone"`
	FullName  *string   `gorm:"size:150" json:"full_name"`
	Role      string    `gorm:"size:20;not null;default:'customer'" json:"role"`
	CompanyID *string   `gorm:"size:64;index" json:"company_id"`
	VenueID   *string   `gorm:"size:64;index" json:"venue_id"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email"`
	Phone     *string   `json:"phone"`
	FullName  *string   `json:"full_name"`
	Role      string    `json:"role"`
	CompanyID *string   `json:"company_id,omitempty"`
	VenueID   *string   `json:"venue_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Phone:     u.Phone,
		FullName:  u.FullName,
		Role:      u.Role,
		CompanyID: u.CompanyID,
		VenueID:   u.VenueID,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    string     `gorm:"size:64;index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// RoleOverride temporarily replaces a user's stored role (demo self-upgrade)
type RoleOverride struct {
	UserID    string    `gorm:"primaryKey;size:64" json:"user_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	Reason    string    `gorm:"size:50;not null" json:"reason"`
	GrantedBy string    `gorm:"size:64;not null" json:"granted_by"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RoleOverride) TableName() string {
	return "role_overrides"
}

// IsActive reports whether the override is still in force
func (o *RoleOverride) IsActive(now time.Time) bool {
	return now.Before(o.ExpiresAt)
}

// ============================================================
// Tenancy
// ============================================================

// Company represents companies table
type Company struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	LogoURL     *string   `gorm:"size:255" json:"logo_url"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Company) TableName() string {
	return "companies"
}

// Venue represents venues table. A venue belongs to exactly one company.
type Venue struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	CompanyID string    `gorm:"size:64;not null;index" json:"company_id"`
	Name      string    `gorm:"size:150;not null" json:"name"`
	Type      string    `gorm:"size:30;not null;default:'other'" json:"type"`
	Address   *string   `gorm:"size:255" json:"address"`
	Phone     *string   `gorm:"size:32" json:"phone"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Venue) TableName() string {
	return "venues"
}

// UserCompany represents user_companies table (company association)
type UserCompany struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:ux_user_companies_user_company,priority:1" json:"user_id"`
	CompanyID string    `gorm:"size:64;not null;uniqueIndex:ux_user_companies_user_company,priority:2;index" json:"company_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (UserCompany) TableName() string {
	return "user_companies"
}

// UserVenue represents user_venues table (venue association)
type UserVenue struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"size:64;not null;uniqueIndex:ux_user_venues_user_venue,priority:1" json:"user_id"`
	VenueID   string    `gorm:"size:64;not null;uniqueIndex:ux_user_venues_user_venue,priority:2;index" json:"venue_id"`
	Role      string    `gorm:"size:20;not null" json:"role"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	// Relations
	Venue *Venue `gorm:"foreignKey:VenueID" json:"venue,omitempty"`
}

func (UserVenue) TableName() string {
	return "user_venues"
}

// ============================================================
// Balances & Ledger
// ============================================================

// Membership represents memberships table: one prepaid balance scoped to one company
type Membership struct {
	ID             string          `gorm:"primaryKey;size:64" json:"id"`
	UserID         string          `gorm:"size:64;not null;index" json:"user_id"`
	CompanyID      string          `gorm:"size:64;not null;index" json:"company_id"`
	MembershipType string          `gorm:"size:20;not null;default:'company'" json:"membership_type"`
	Balance        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"balance"`
	TotalPurchased decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"total_purchased"`
	Status         string          `gorm:"size:20;not null;default:'active'" json:"status"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (Membership) TableName() string {
	return "memberships"
}

// IsActive reports whether the membership can be charged
func (m *Membership) IsActive() bool {
	return domain.MembershipStatus(m.Status) == domain.MembershipActive
}

// Transaction represents transactions table (append-only ledger)
type Transaction struct {
	ID              string          `gorm:"primaryKey;size:64" json:"id"`
	UserID          string          `gorm:"size:64;not null;index" json:"user_id"`
	MembershipID    string          `gorm:"size:64;not null;index" json:"membership_id"`
	VenueID         *string         `gorm:"size:64;index" json:"venue_id"`
	Type            string          `gorm:"size:20;not null" json:"type"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	PreviousBalance decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"previous_balance"`
	NewBalance      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"new_balance"`
	Description     string          `gorm:"type:text" json:"description"`
	ProcessedBy     *string         `gorm:"size:64;index" json:"processed_by"`
	Status          string          `gorm:"size:20;not null;default:'completed'" json:"status"`
	CreatedAt       time.Time       `gorm:"not null;index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// ============================================================
// Audit
// ============================================================

// AuditLog represents audit_logs table
type AuditLog struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Action    string    `gorm:"size:64;not null;index" json:"action"`
	UserID    string    `gorm:"size:64;not null;index" json:"user_id"`
	Details   string    `gorm:"type:text" json:"details"`
	IPAddress string    `gorm:"size:64" json:"ip_address"`
	UserAgent string    `gorm:"size:255" json:"user_agent"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&RoleOverride{},
		&Company{},
		&Venue{},
		&UserCompany{},
		&UserVenue{},
		&Membership{},
		&Transaction{},
		&AuditLog{},
	)
}
