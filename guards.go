package auth

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
)

// RequirePrincipal rejects anonymous requests with ErrUnauthenticated.
// The authentication middleware never rejects; protected routes add
// this guard.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromFiber(c); !ok {
			return ErrUnauthenticated
		}
		return c.Next()
	}
}

// RequireRole rejects requests whose principal is below minRole in the
// role hierarchy.
func RequireRole(minRole Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFromFiber(c)
		if !ok {
			return ErrUnauthenticated
		}
		if !p.IsAtLeast(minRole) {
			return ErrForbidden.Clone().WithMetadata(map[string]any{
				"required": string(minRole),
				"actual":   string(p.Role()),
			})
		}
		return c.Next()
	}
}

// RequireAuthority rejects requests whose principal lacks the authority
func RequireAuthority(authority string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := PrincipalFromFiber(c)
		if !ok {
			return ErrUnauthenticated
		}
		if !p.HasAuthority(authority) {
			return goerrors.Wrap(ErrForbidden, goerrors.CategoryAuthz, "missing authority "+authority)
		}
		return c.Next()
	}
}
