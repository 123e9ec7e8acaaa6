package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/dhaaraai/go-auth/middleware/jwtware"
)

// OutcomeListener aliases the jwtware listener so consumers can use auth helpers directly.
type OutcomeListener = jwtware.OutcomeListener

// ContextEnricherAdapter stores a resolved principal in the standard
// context for downstream guards.
func ContextEnricherAdapter(c context.Context, principal any) context.Context {
	p, ok := principal.(*Principal)
	if !ok || p == nil {
		return c
	}
	return WithPrincipal(c, p)
}

// ResolverAdapter exposes a PrincipalLoader as a jwtware resolver. An
// absent principal is returned as a nil interface.
func ResolverAdapter(loader *PrincipalLoader) jwtware.PrincipalResolver {
	return func(ctx context.Context, subjectID string) (any, error) {
		p, err := loader.LoadBySubjectID(ctx, subjectID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, nil
		}
		return p, nil
	}
}

// NewAuthenticationMiddleware wires the fail-open bearer token
// middleware to the token service and principal loader.
func NewAuthenticationMiddleware(cfg Config, tokens TokenService, loader *PrincipalLoader, logger Logger, listeners ...OutcomeListener) fiber.Handler {
	logger = normalizeLogger(logger)
	return jwtware.New(jwtware.Config{
		TokenValidator:   tokens,
		Resolver:         ResolverAdapter(loader),
		ContextEnricher:  ContextEnricherAdapter,
		ContextKey:       cfg.GetContextKey(),
		TokenLookup:      cfg.GetTokenLookup(),
		AuthScheme:       cfg.GetAuthScheme(),
		Logger:           logger,
		OutcomeListeners: listeners,
	})
}
