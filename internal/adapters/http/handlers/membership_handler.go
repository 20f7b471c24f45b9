package handlers

import (
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// MembershipHandler serves a customer's own memberships
type MembershipHandler struct {
	membershipService *services.MembershipService
}

func NewMembershipHandler(membershipService *services.MembershipService) *MembershipHandler {
	return &MembershipHandler{membershipService: membershipService}
}

// ListMine lists the caller's memberships
// @Summary My memberships
// @Tags Memberships
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /memberships [get]
func (h *MembershipHandler) ListMine(c *fiber.Ctx) error {
	memberships, err := h.membershipService.ListMine(c.UserContext(), middleware.PrincipalFrom(c).ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Memberships retrieved successfully", fiber.Map{"memberships": memberships})
}

// IssueQR returns a fresh payment QR payload for one of the caller's memberships
// @Summary Issue payment QR
// @Description Every call yields a new token
// @Tags Memberships
// @Produce json
// @Security BearerAuth
// @Param id path string true "Membership ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /memberships/{id}/qr [get]
func (h *MembershipHandler) IssueQR(c *fiber.Ctx) error {
	code, err := h.membershipService.IssueQR(c.UserContext(), middleware.PrincipalFrom(c).ID, c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "QR code issued", code)
}
