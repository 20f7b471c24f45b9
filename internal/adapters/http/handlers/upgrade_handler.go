package handlers

import (
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UpgradeHandler exposes the demo self-upgrade
type UpgradeHandler struct {
	upgradeService *services.DemoUpgradeService
}

func NewUpgradeHandler(upgradeService *services.DemoUpgradeService) *UpgradeHandler {
	return &UpgradeHandler{upgradeService: upgradeService}
}

// UpgradeRequest names the requested role
type UpgradeRequest struct {
	Role string `json:"role"`
}

// Upgrade grants the caller a temporary role
// @Summary Demo self-upgrade
// @Description Grant yourself staff, company_admin or super_admin for a limited time. Requires ALLOW_DEMO_ROLE_UPGRADE=true.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body UpgradeRequest true "Requested role"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/upgrade [post]
func (h *UpgradeHandler) Upgrade(c *fiber.Ctx) error {
	var req UpgradeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	result, err := h.upgradeService.Upgrade(c.UserContext(), middleware.PrincipalFrom(c), req.Role, requestMeta(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Role upgraded to "+string(result.Role), result)
}

// Status returns the caller and available upgrades
// @Summary Demo self-upgrade status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/upgrade [get]
func (h *UpgradeHandler) Status(c *fiber.Ctx) error {
	status, err := h.upgradeService.Status(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Upgrade status", status)
}

// Clear removes the caller's temporary role
// @Summary Clear demo self-upgrade
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /admin/upgrade [delete]
func (h *UpgradeHandler) Clear(c *fiber.Ctx) error {
	if err := h.upgradeService.Clear(c.UserContext(), middleware.PrincipalFrom(c), requestMeta(c)); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Role override cleared", nil)
}
