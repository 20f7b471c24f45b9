package handlers

import (
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// AccessHandler exposes company and venue associations
type AccessHandler struct {
	accessService *services.AccessService
	audit         services.Auditor
}

func NewAccessHandler(accessService *services.AccessService, audit services.Auditor) *AccessHandler {
	return &AccessHandler{
		accessService: accessService,
		audit:         audit,
	}
}

// CompanyAssignment is the body of a company association request
type CompanyAssignment struct {
	CompanyID string `json:"companyId"`
	Role      string `json:"role"`
}

// VenueAssignment is the body of a venue association request
type VenueAssignment struct {
	VenueID string `json:"venueId"`
	Role    string `json:"role"`
}

// canView allows users to read their own access and company admins to read anyone's
func canView(principal *domain.Principal, userID string) error {
	if principal.ID == userID || principal.Role.Satisfies(domain.RoleCompanyAdmin) {
		return nil
	}
	return domain.ErrAccessDenied
}

// Permissions returns a user's primary assignment and associations
// @Summary User permissions
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /access/users/{id}/permissions [get]
func (h *AccessHandler) Permissions(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := canView(middleware.PrincipalFrom(c), userID); err != nil {
		return response.FromError(c, err)
	}

	perms := h.accessService.GetUserPermissions(c.UserContext(), userID)
	if perms == nil {
		return response.FromError(c, domain.ErrUserNotFound)
	}
	return response.Success(c, "Permissions retrieved successfully", perms)
}

// Companies lists the companies a user can reach
// @Summary Accessible companies
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /access/users/{id}/companies [get]
func (h *AccessHandler) Companies(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := canView(middleware.PrincipalFrom(c), userID); err != nil {
		return response.FromError(c, err)
	}
	companies := h.accessService.ListAccessibleCompanies(c.UserContext(), userID)
	return response.Success(c, "Companies retrieved successfully", fiber.Map{"companies": companies})
}

// Venues lists the venues a user can reach
// @Summary Accessible venues
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /access/users/{id}/venues [get]
func (h *AccessHandler) Venues(c *fiber.Ctx) error {
	userID := c.Params("id")
	if err := canView(middleware.PrincipalFrom(c), userID); err != nil {
		return response.FromError(c, err)
	}
	venues := h.accessService.ListAccessibleVenues(c.UserContext(), userID)
	return response.Success(c, "Venues retrieved successfully", fiber.Map{"venues": venues})
}

// AssignCompany creates or replaces a company association
// @Summary Assign user to company
// @Description Company admins may only assign within companies they can access
// @Tags Access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param body body CompanyAssignment true "Company and role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /access/users/{id}/companies [post]
func (h *AccessHandler) AssignCompany(c *fiber.Ctx) error {
	var req CompanyAssignment
	if err := c.BodyParser(&req); err != nil {
		return response.FromError(c, domain.ErrInvalidInput.Withf("invalid request body"))
	}
	role := domain.CompanyRole(req.Role)
	if !role.IsValid() {
		return response.FromError(c, domain.ErrInvalidRole.With("allowed", []domain.CompanyRole{domain.CompanyRoleAdmin, domain.CompanyRoleManager}))
	}

	ctx := c.UserContext()
	principal := middleware.PrincipalFrom(c)
	userID := c.Params("id")
	if err := h.authorizeCompany(c, principal, req.CompanyID); err != nil {
		return response.FromError(c, err)
	}
	if !h.accessService.AssignUserToCompany(ctx, userID, req.CompanyID, role) {
		return response.FromError(c, domain.Internal(nil))
	}

	h.audit.Record(ctx, requestMeta(c).Entry(services.AuditCompanyAssigned, principal.ID, map[string]any{
		"targetUserId": userID,
		"companyId":    req.CompanyID,
		"role":         string(role),
	}))
	return response.Success(c, "User assigned to company", nil)
}

// RemoveCompany deletes a company association
// @Summary Remove user from company
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param companyId path string true "Company ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /access/users/{id}/companies/{companyId} [delete]
func (h *AccessHandler) RemoveCompany(c *fiber.Ctx) error {
	ctx := c.UserContext()
	principal := middleware.PrincipalFrom(c)
	userID, companyID := c.Params("id"), c.Params("companyId")
	if err := h.authorizeCompany(c, principal, companyID); err != nil {
		return response.FromError(c, err)
	}
	if !h.accessService.RemoveUserFromCompany(ctx, userID, companyID) {
		return response.FromError(c, domain.Internal(nil))
	}

	h.audit.Record(ctx, requestMeta(c).Entry(services.AuditCompanyRemoved, principal.ID, map[string]any{
		"targetUserId": userID,
		"companyId":    companyID,
	}))
	return response.Success(c, "User removed from company", nil)
}

// AssignVenue creates or replaces a venue association
// @Summary Assign user to venue
// @Description Company admins may only assign within companies they can access
// @Tags Access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param body body VenueAssignment true "Venue and role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /access/users/{id}/venues [post]
func (h *AccessHandler) AssignVenue(c *fiber.Ctx) error {
	var req VenueAssignment
	if err := c.BodyParser(&req); err != nil {
		return response.FromError(c, domain.ErrInvalidInput.Withf("invalid request body"))
	}
	role := domain.VenueRole(req.Role)
	if !role.IsValid() {
		return response.FromError(c, domain.ErrInvalidRole.With("allowed", []domain.VenueRole{domain.VenueRoleStaff, domain.VenueRoleManager}))
	}

	ctx := c.UserContext()
	principal := middleware.PrincipalFrom(c)
	userID := c.Params("id")
	if err := h.authorizeVenue(c, principal, req.VenueID); err != nil {
		return response.FromError(c, err)
	}
	if !h.accessService.AssignUserToVenue(ctx, userID, req.VenueID, role) {
		return response.FromError(c, domain.Internal(nil))
	}

	h.audit.Record(ctx, requestMeta(c).Entry(services.AuditVenueAssigned, principal.ID, map[string]any{
		"targetUserId": userID,
		"venueId":      req.VenueID,
		"role":         string(role),
	}))
	return response.Success(c, "User assigned to venue", nil)
}

// RemoveVenue deletes a venue association
// @Summary Remove user from venue
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param venueId path string true "Venue ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /access/users/{id}/venues/{venueId} [delete]
func (h *AccessHandler) RemoveVenue(c *fiber.Ctx) error {
	ctx := c.UserContext()
	principal := middleware.PrincipalFrom(c)
	userID, venueID := c.Params("id"), c.Params("venueId")
	if err := h.authorizeVenue(c, principal, venueID); err != nil {
		return response.FromError(c, err)
	}
	if !h.accessService.RemoveUserFromVenue(ctx, userID, venueID) {
		return response.FromError(c, domain.Internal(nil))
	}

	h.audit.Record(ctx, requestMeta(c).Entry(services.AuditVenueRemoved, principal.ID, map[string]any{
		"targetUserId": userID,
		"venueId":      venueID,
	}))
	return response.Success(c, "User removed from venue", nil)
}

func (h *AccessHandler) authorizeCompany(c *fiber.Ctx, principal *domain.Principal, companyID string) error {
	if companyID == "" {
		return domain.ErrInvalidInput.Withf("companyId is required")
	}
	if _, err := h.accessService.CompanyName(c.UserContext(), companyID); err != nil {
		return err
	}
	if !h.accessService.CanAccessCompany(c.UserContext(), principal, companyID) {
		return domain.ErrAccessDenied.With("company_id", companyID)
	}
	return nil
}

// authorizeVenue checks access to the company owning the venue
func (h *AccessHandler) authorizeVenue(c *fiber.Ctx, principal *domain.Principal, venueID string) error {
	if venueID == "" {
		return domain.ErrInvalidInput.Withf("venueId is required")
	}
	companyID, err := h.accessService.VenueCompany(c.UserContext(), venueID)
	if err != nil {
		return err
	}
	if !h.accessService.CanAccessCompany(c.UserContext(), principal, companyID) {
		return domain.ErrAccessDenied.With("venue_id", venueID)
	}
	return nil
}
