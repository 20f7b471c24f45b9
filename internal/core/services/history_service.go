package services

import (
	"context"

	"unionpass-api/internal/adapters/persistence/models"
	"unionpass-api/internal/adapters/persistence/repositories"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/pkg/pagination"
)

// HistoryQuery narrows a history listing. Filters are honored for staff and above only.
type HistoryQuery struct {
	UserID  *string
	StaffID *string
	VenueID *string
	Page    *pagination.Params
}

// HistoryPage is one page of ledger rows
type HistoryPage struct {
	Transactions []*models.Transaction `json:"transactions"`
	Meta         *pagination.Meta      `json:"meta"`
}

// HistoryService lists ledger rows visible to the caller
type HistoryService struct {
	txnRepo repositories.TransactionRepository
}

func NewHistoryService(txnRepo repositories.TransactionRepository) *HistoryService {
	return &HistoryService{txnRepo: txnRepo}
}

// List returns the caller's view of the ledger, newest first. Customers
// always see only their own rows.
func (s *HistoryService) List(ctx context.Context, principal *domain.Principal, q HistoryQuery) (*HistoryPage, error) {
	page := q.Page
	if page == nil {
		page = pagination.New(0, 0)
	}

	var filter repositories.TransactionFilter
	if principal.Role.Satisfies(domain.RoleStaff) {
		filter = repositories.TransactionFilter{UserID: q.UserID, StaffID: q.StaffID, VenueID: q.VenueID}
	} else {
		filter.UserID = &principal.ID
	}

	rows, total, err := s.txnRepo.List(ctx, filter, page.Offset, page.Limit)
	if err != nil {
		return nil, domain.Internal(err)
	}
	if rows == nil {
		rows = []*models.Transaction{}
	}

	return &HistoryPage{
		Transactions: rows,
		Meta:         pagination.GetMeta(page, total),
	}, nil
}
