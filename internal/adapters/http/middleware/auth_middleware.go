package middleware

import (
	"errors"
	"strings"

	"unionpass-api/internal/core/domain"
	"unionpass-api/internal/core/services"
	"unionpass-api/internal/pkg/jwt"
	"unionpass-api/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// TokenValidator checks an access token
type TokenValidator interface {
	ValidateAccessToken(accessToken string) (*jwt.Claims, error)
}

// AuthMiddleware attaches the authenticated subject to the request context
// when an access token is present. Requests without a token pass through
// anonymous; a present but invalid token is rejected.
func AuthMiddleware(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := extractToken(c)
		if accessToken == "" {
			return c.Next()
		}

		claims, err := validator.ValidateAccessToken(accessToken)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return response.FromError(c, domain.ErrTokenExpired)
			}
			return response.FromError(c, domain.ErrTokenInvalid)
		}

		c.Locals("userID", claims.UserID)
		c.SetUserContext(services.WithSubject(c.UserContext(), domain.Subject{
			ID:    claims.UserID,
			Email: claims.Email,
			Phone: claims.Phone,
		}))

		return c.Next()
	}
}

// Protect runs the security gateway in front of a handler and stores the
// resolved principal for it
func Protect(gateway *services.GatewayService, cfg services.GuardConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, err := gateway.Guard(c.UserContext(), cfg)
		if err != nil {
			return response.FromError(c, err)
		}
		if principal != nil {
			c.Locals(principalKey, principal)
		}
		return c.Next()
	}
}

// PrincipalFrom returns the principal stored by Protect
func PrincipalFrom(c *fiber.Ctx) *domain.Principal {
	principal, _ := c.Locals(principalKey).(*domain.Principal)
	return principal
}

// extractToken reads the access token from the cookie, then the Authorization header
func extractToken(c *fiber.Ctx) string {
	if token := c.Cookies("access_token"); token != "" {
		return token
	}
	authHeader := c.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}
