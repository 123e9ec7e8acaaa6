package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is the fiber locals key holding the principal
const DefaultContextKey = "user"

var principalCtxKey = &contextKey{"principal"}

type contextKey struct {
	name string
}

// WithPrincipal sets the principal in the given context
func WithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, principal)
}

// PrincipalFromContext finds the principal in the context. The boolean
// is false for anonymous requests.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// FromContext finds the principal's record in the context.
func FromContext(ctx context.Context) (*User, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return nil, false
	}
	return p.User, p.User != nil
}

// PrincipalFromFiber reads the principal attached to a fiber request
func PrincipalFromFiber(c *fiber.Ctx) (*Principal, bool) {
	return PrincipalFromContext(c.UserContext())
}
