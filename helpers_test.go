package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/dhaaraai/go-auth"
	"github.com/dhaaraai/go-auth/internal/db"
	"github.com/dhaaraai/go-auth/internal/migrations"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// newTestDB opens a private in-memory SQLite database with the schema applied
func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	database, err := db.Open(ctx, db.Options{DSN: "file::memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	_, err = migrations.Run(ctx, database)
	require.NoError(t, err)

	return database
}

// newTestStack wires the bun store, a fast bcrypt store and a token
// service into an authenticator.
func newTestStack(t *testing.T) (*auth.Auther, *auth.Users, *auth.TokenServiceImpl) {
	t.Helper()
	users := auth.NewUsersRepository(newTestDB(t))
	tokens := auth.NewTokenService(testSigningKey, time.Hour)
	auther := auth.NewAuthenticator(users, tokens, auth.NewBcryptCredentialStore(bcrypt.MinCost))
	return auther, users, tokens
}
