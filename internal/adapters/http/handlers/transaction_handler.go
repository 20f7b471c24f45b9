package handlers

import (
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/pagination"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// TransactionHandler handles point-of-sale charges and ledger history
type TransactionHandler struct {
	chargeService  *services.ChargeService
	historyService *services.HistoryService
	accessService  *services.AccessService
	audit          services.Auditor
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(
	chargeService *services.ChargeService,
	historyService *services.HistoryService,
	accessService *services.AccessService,
	audit services.Auditor,
) *TransactionHandler {
	return &TransactionHandler{
		chargeService:  chargeService,
		historyService: historyService,
		accessService:  accessService,
		audit:          audit,
	}
}

// ProcessRequest is a charge submitted by staff after scanning a QR code
type ProcessRequest struct {
	QRData      string          `json:"qrData"`
	Amount      decimal.Decimal `json:"amount" swaggertype:"number"`
	Description string          `json:"description"`
	VenueID     *string         `json:"venueId"`
}

// LookupCustomer resolves the customer behind a QR code
// @Summary Look up customer from QR
// @Description Returns customer and membership details for a scanned QR payload (staff and above)
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param qrData query string true "Scanned QR payload"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /transactions/process [get]
func (h *TransactionHandler) LookupCustomer(c *fiber.Ctx) error {
	qrData := c.Query("qrData")
	if qrData == "" {
		return response.FromError(c, domain.ErrInvalidInput.Withf("qrData is required"))
	}

	info, err := h.chargeService.LookupCustomer(c.UserContext(), qrData)
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Customer found", fiber.Map{"customer": info})
}

// ProcessCharge debits a membership balance
// @Summary Process payment
// @Description Charge a customer's membership from a scanned QR code (staff and above)
// @Tags Transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ProcessRequest true "Charge"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /transactions/process [post]
func (h *TransactionHandler) ProcessCharge(c *fiber.Ctx) error {
	var req ProcessRequest
	if err := c.BodyParser(&req); err != nil {
		return response.FromError(c, domain.ErrInvalidInput.Withf("invalid request body"))
	}
	if req.QRData == "" {
		return response.FromError(c, domain.ErrInvalidInput.Withf("qrData is required"))
	}
	req.VenueID = optionalString(req.VenueID)

	ctx := c.UserContext()
	principal := middleware.PrincipalFrom(c)

	var venueCompanyID string
	if req.VenueID != nil {
		companyID, err := h.accessService.VenueCompany(ctx, *req.VenueID)
		if err != nil {
			return response.FromError(c, err)
		}
		venueCompanyID = companyID
		if !h.accessService.CanAccessVenue(ctx, principal, *req.VenueID) {
			return response.FromError(c, domain.ErrAccessDenied.With("venue_id", *req.VenueID))
		}
	}

	result, err := h.chargeService.ProcessCharge(ctx, services.ChargeInput{
		QRData:      req.QRData,
		Amount:      req.Amount,
		Description: req.Description,
		StaffID:     principal.ID,
		VenueID:     req.VenueID,

		VenueCompanyID: venueCompanyID,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	details := map[string]any{
		"transactionId": result.TransactionID,
		"amount":        req.Amount.StringFixed(2),
		"newBalance":    result.NewBalance.StringFixed(2),
	}
	if req.VenueID != nil {
		details["venueId"] = *req.VenueID
	}
	h.audit.Record(ctx, requestMeta(c).Entry(services.AuditChargeProcessed, principal.ID, details))

	data := fiber.Map{
		"transaction_id": result.TransactionID,
		"new_balance":    result.NewBalance,
		"created_at":     result.CreatedAt,
	}
	if info, err := h.chargeService.LookupCustomer(ctx, req.QRData); err == nil {
		data["customer_info"] = info
	}

	return response.Success(c, "Payment processed successfully", data)
}

// History lists ledger rows visible to the caller
// @Summary Transaction history
// @Description Customers see their own rows; staff and above may filter by userId, staffId or venueId
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param userId query string false "Customer ID"
// @Param staffId query string false "Processing staff ID"
// @Param venueId query string false "Venue ID"
// @Param limit query int false "Items per page" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /transactions/history [get]
func (h *TransactionHandler) History(c *fiber.Ctx) error {
	page, err := h.historyService.List(c.UserContext(), middleware.PrincipalFrom(c), services.HistoryQuery{
		UserID:  optionalQuery(c, "userId"),
		StaffID: optionalQuery(c, "staffId"),
		VenueID: optionalQuery(c, "venueId"),
		Page:    pagination.GetParams(c),
	})
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Transactions retrieved successfully", page)
}
