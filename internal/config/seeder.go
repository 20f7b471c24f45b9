package config

import (
	"errors"
	"time"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/core/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *zap.Logger) *Seeder {
	return &Seeder{db: db, log: log.Named("seeder")}
}

// Run seeds the demo tenant. Existing rows are left untouched, so running
// it twice is safe. Development only.
func (s *Seeder) Run() error {
	s.log.Info("running demo seeders")

	steps := []struct {
		name string
		fn   func() error
	}{
		{"companies", s.seedCompanies},
		{"venues", s.seedVenues},
		{"users", s.seedUsers},
		{"memberships", s.seedMemberships},
		{"transactions", s.seedTransactions},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			s.log.Error("seeder failed", zap.String("step", step.name), zap.Error(err))
			return err
		}
	}

	s.log.Info("demo seeding completed")
	return nil
}

func strPtr(s string) *string { return &s }

func (s *Seeder) seedCompanies() error {
	companies := []models.Company{
		{ID: "sgv", Name: "SGV", Description: strPtr("SGV hospitality group")},
	}
	for i := range companies {
		if err := s.createIfMissing(&models.Company{}, companies[i].ID, &companies[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedVenues() error {
	venues := []models.Venue{
		{ID: "sgv-et", CompanyID: "sgv", Name: "ET", Type: "ktv"},
		{ID: "sgv-long-feng", CompanyID: "sgv", Name: "Long Feng Hotpot", Type: "restaurant"},
		{ID: "sgv-zui-ktown", CompanyID: "sgv", Name: "Zui Beer (K town)", Type: "restaurant"},
	}
	for i := range venues {
		if err := s.createIfMissing(&models.Venue{}, venues[i].ID, &venues[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedUsers() error {
	users := []models.User{
		{ID: "user123", FullName: strPtr("John Smith"), Email: strPtr("john.smith@example.com"), Phone: strPtr("+15551234567"), Role: string(domain.RoleCustomer), IsActive: true},
		{ID: "user456", FullName: strPtr("Jane Doe"), Email: strPtr("jane.doe@example.com"), Phone: strPtr("+15559876543"), Role: string(domain.RoleCustomer), IsActive: true},
		{ID: "staff456", FullName: strPtr("Alice Staff"), Email: strPtr("alice.staff@example.com"), Role: string(domain.RoleStaff), CompanyID: strPtr("sgv"), VenueID: strPtr("sgv-et"), IsActive: true},
		{ID: "staff789", FullName: strPtr("Bob Staff"), Email: strPtr("bob.staff@example.com"), Role: string(domain.RoleStaff), CompanyID: strPtr("sgv"), VenueID: strPtr("sgv-long-feng"), IsActive: true},
		{ID: "admin001", FullName: strPtr("Demo Admin"), Email: strPtr("admin@example.com"), Role: string(domain.RoleSuperAdmin), IsActive: true},
	}
	for i := range users {
		if err := s.createIfMissing(&models.User{}, users[i].ID, &users[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedMemberships() error {
	memberships := []models.Membership{
		{ID: "sgv-basic-1", UserID: "user123", CompanyID: "sgv", MembershipType: "company", Balance: decimal.RequireFromString("150.75"), TotalPurchased: decimal.RequireFromString("200.00"), Status: string(domain.MembershipActive)},
		{ID: "sgv-premium-1", UserID: "user456", CompanyID: "sgv", MembershipType: "company", Balance: decimal.RequireFromString("275.50"), TotalPurchased: decimal.RequireFromString("304.00"), Status: string(domain.MembershipActive)},
	}
	for i := range memberships {
		if err := s.createIfMissing(&models.Membership{}, memberships[i].ID, &memberships[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedTransactions() error {
	txns := []models.Transaction{
		{ID: "txn_1704067200000", UserID: "user123", MembershipID: "sgv-basic-1", VenueID: strPtr("sgv-et"), ProcessedBy: strPtr("staff456"), Amount: decimal.RequireFromString("45.00"), PreviousBalance: decimal.RequireFromString("195.75"), NewBalance: decimal.RequireFromString("150.75"), Description: "KTV Room 3 - 2 hours", CreatedAt: time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{ID: "txn_1704153600000", UserID: "user456", MembershipID: "sgv-premium-1", VenueID: strPtr("sgv-long-feng"), ProcessedBy: strPtr("staff789"), Amount: decimal.RequireFromString("28.50"), PreviousBalance: decimal.RequireFromString("304.00"), NewBalance: decimal.RequireFromString("275.50"), Description: "Hotpot dinner for 2", CreatedAt: time.Date(2024, 1, 2, 18, 45, 0, 0, time.UTC)},
		{ID: "txn_1704240000000", UserID: "user123", MembershipID: "sgv-basic-1", VenueID: strPtr("sgv-zui-ktown"), ProcessedBy: strPtr("staff456"), Amount: decimal.RequireFromString("15.25"), PreviousBalance: decimal.RequireFromString("166.00"), NewBalance: decimal.RequireFromString("150.75"), Description: "Drinks and snacks", CreatedAt: time.Date(2024, 1, 3, 20, 15, 0, 0, time.UTC)},
	}
	for i := range txns {
		txns[i].Type = string(domain.TransactionUsage)
		txns[i].Status = string(domain.TransactionCompleted)
		if err := s.createIfMissing(&models.Transaction{}, txns[i].ID, &txns[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) createIfMissing(probe interface{}, id string, row interface{}) error {
	err := s.db.Where("id = ?", id).First(probe).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if err := s.db.Create(row).Error; err != nil {
		return err
	}
	s.log.Debug("seeded row", zap.String("id", id))
	return nil
}
