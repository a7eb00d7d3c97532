package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/servisdesk/servisdesk/internal/policy"
	apperrors "github.com/servisdesk/servisdesk/pkg/errorutil"
)

// RequireAdmin ensures the caller is an active staff member or superuser.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !policy.IsAdministrator(identity) {
			return apperrors.NewForbidden("administrator required")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures an identity has been resolved.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
