package auth

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Logger is the structured logger used across the package. Arguments
// after the message are key/value pairs; *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetTokenExpiration() int
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
}

// IdentityStore is the identity record store. Lookups return
// ErrIdentityNotFound when no record matches. Create must report a
// uniqueness violation as ErrIdentityConflict.
type IdentityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
}

// CredentialStore hashes secrets and verifies them against stored hashes
type CredentialStore interface {
	Hash(secret string) (string, error)
	Verify(secret, hash string) bool
	// VerifyDummy burns the same work as Verify against a hash that
	// never matches.
	VerifyDummy(secret string)
}

type defLogger struct{}

func (defLogger) Debug(msg string, args ...any) {
	slog.Default().Debug("AUTH "+msg, args...)
}

func (defLogger) Info(msg string, args ...any) {
	slog.Default().Info("AUTH "+msg, args...)
}

func (defLogger) Warn(msg string, args ...any) {
	slog.Default().Warn("AUTH "+msg, args...)
}

func (defLogger) Error(msg string, args ...any) {
	slog.Default().Error("AUTH "+msg, args...)
}

func normalizeLogger(l Logger) Logger {
	if l == nil {
		return defLogger{}
	}
	return l
}
