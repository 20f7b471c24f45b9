package handlers

import (
	"unionpass-api/internal/adapters/http/middleware"
	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/pagination"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// UserHandler handles role administration endpoints
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// SetUserRole creates a user with a role or changes an existing user's role
// @Summary Set user role
// @Description Create or update a user with the given primary role (super admin only)
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SetUserRoleInput true "User and role"
// @Success 200 {object} response.Response
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /admin/users [post]
func (h *UserHandler) SetUserRole(c *fiber.Ctx) error {
	var req services.SetUserRoleInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	req.Email = optionalString(req.Email)
	req.Phone = optionalString(req.Phone)
	req.FullName = optionalString(req.FullName)
	req.CompanyID = optionalString(req.CompanyID)
	req.VenueID = optionalString(req.VenueID)

	user, created, err := h.userService.SetUserRole(c.UserContext(), middleware.PrincipalFrom(c), &req, requestMeta(c))
	if err != nil {
		return response.FromError(c, err)
	}

	if created {
		return response.Created(c, "User created successfully", fiber.Map{"user": user})
	}
	return response.Success(c, "User role updated successfully", fiber.Map{"user": user})
}

// GetUsers returns one user (userId query, company admin and above) or all
// users (super admin only)
// @Summary Get users
// @Description One user by userId, or a paginated list of all users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param userId query string false "User ID"
// @Param limit query int false "Items per page" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users [get]
func (h *UserHandler) GetUsers(c *fiber.Ctx) error {
	if userID := optionalQuery(c, "userId"); userID != nil {
		return h.getUser(c, *userID)
	}

	principal := middleware.PrincipalFrom(c)
	if !principal.Role.Satisfies(domain.RoleSuperAdmin) {
		return response.FromError(c, domain.ErrInsufficientRole.
			Withf("%s privileges required", domain.RoleSuperAdmin.DisplayName()).
			With("required_role", string(domain.RoleSuperAdmin)))
	}

	result, err := h.userService.ListUsers(c.UserContext(), pagination.GetParams(c))
	if err != nil {
		return response.FromError(c, err)
	}

	return response.Success(c, "Users retrieved successfully", result)
}

// GetUser handles getting a user by ID
// @Summary Get user by ID
// @Description Get a specific user by ID (company admin and above)
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /admin/users/{id} [get]
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	return h.getUser(c, c.Params("id"))
}

func (h *UserHandler) getUser(c *fiber.Ctx, id string) error {
	user, err := h.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "User retrieved successfully", fiber.Map{"user": user})
}
