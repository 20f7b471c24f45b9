package handlers

import (
	"strings"

	"unionpass-api/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// requestMeta captures caller details for audit entries
func requestMeta(c *fiber.Ctx) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	}
}

// optionalQuery returns a trimmed query parameter or nil when absent
func optionalQuery(c *fiber.Ctx, key string) *string {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil
	}
	return &v
}

// optionalString trims a body field and turns empty into nil
func optionalString(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
