package auth_test

import (
	"context"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/dhaaraai/go-auth"
)

func TestUsers_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	created, err := users.Create(ctx, &auth.User{
		Username:     "alice",
		Email:        " Alice@Example.COM ",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.Equal(t, auth.RoleClient, created.Role)
	require.NotNil(t, created.CreatedAt)
	require.NotNil(t, created.UpdatedAt)

	byID, err := users.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byName, err := users.GetByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)
}

func TestUsers_NotFound(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	_, err := users.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)

	_, err = users.GetByEmail(ctx, "nobody@x.io")
	assert.True(t, auth.IsIdentityNotFound(err))

	_, err = users.GetByUsername(ctx, "nobody")
	assert.True(t, auth.IsIdentityNotFound(err))

	_, err = users.GetByIdentifier(ctx, "")
	assert.True(t, auth.IsIdentityNotFound(err))
}

func TestUsers_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	_, err := users.Create(ctx, &auth.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	require.NoError(t, err)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := users.Create(ctx, &auth.User{Username: "other", Email: "A@x.io", PasswordHash: "h"})
		require.Error(t, err)
		assert.True(t, auth.IsConflict(err))

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, auth.TextCodeIdentityConflict, rich.TextCode)
		assert.Equal(t, "email", rich.Metadata["field"])
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := users.Create(ctx, &auth.User{Username: "alice", Email: "b@x.io", PasswordHash: "h"})
		require.Error(t, err)
		assert.True(t, auth.IsConflict(err))
		assert.Contains(t, err.Error(), "username already taken")
	})
}

func TestUsers_GetByIdentifier(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	created, err := users.Create(ctx, &auth.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	require.NoError(t, err)

	for _, identifier := range []string{created.ID.String(), "a@x.io", "alice"} {
		t.Run(identifier, func(t *testing.T) {
			got, err := users.GetByIdentifier(ctx, identifier)
			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	}
}

func TestUsers_UpdateRole(t *testing.T) {
	ctx := context.Background()
	users := auth.NewUsersRepository(newTestDB(t))

	created, err := users.Create(ctx, &auth.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	require.NoError(t, err)

	updated, err := users.UpdateRole(ctx, created.ID, auth.RoleLawyer)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleLawyer, updated.Role)
	assert.Equal(t, "h", updated.PasswordHash, "other columns are untouched")

	_, err = users.UpdateRole(ctx, created.ID, auth.Role("OWNER"))
	assert.Error(t, err)

	_, err = users.UpdateRole(ctx, uuid.New(), auth.RoleAdmin)
	assert.ErrorIs(t, err, auth.ErrIdentityNotFound)
}

func TestUsers_WithTx(t *testing.T) {
	ctx := context.Background()
	database := newTestDB(t)
	users := auth.NewUsersRepository(database)

	tx, err := database.BeginTx(ctx, nil)
	require.NoError(t, err)

	_, err = users.WithTx(tx).Create(ctx, &auth.User{Username: "alice", Email: "a@x.io", PasswordHash: "h"})
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	_, err = users.GetByEmail(ctx, "a@x.io")
	assert.True(t, auth.IsIdentityNotFound(err))
}
