package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

// pgUniqueViolation is the SQLSTATE for unique_violation
const pgUniqueViolation = "23505"

// Users is the bun backed IdentityStore
type Users struct {
	db bun.IDB
}

var _ IdentityStore = (*Users)(nil)

// NewUsersRepository returns a users store on db
func NewUsersRepository(db bun.IDB) *Users {
	return &Users{db: db}
}

// WithTx returns a store bound to the transaction
func (r *Users) WithTx(tx bun.IDB) *Users {
	return &Users{db: tx}
}

// GetByID implements IdentityStore.
func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getBy(ctx, "id", id)
}

// GetByUsername implements IdentityStore.
func (r *Users) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.getBy(ctx, "username", strings.TrimSpace(username))
}

// GetByEmail implements IdentityStore.
func (r *Users) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getBy(ctx, "email", normalizeEmail(email))
}

// GetByIdentifier looks a user up by id, email or username, depending
// on the shape of the identifier.
func (r *Users) GetByIdentifier(ctx context.Context, identifier string) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		user, err := r.getBy(ctx, opt.column, opt.value)
		if err != nil {
			if IsIdentityNotFound(err) {
				continue
			}
			return nil, err
		}
		return user, nil
	}
	return nil, ErrIdentityNotFound
}

// Create implements IdentityStore.
func (r *Users) Create(ctx context.Context, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user must not be nil", goerrors.CategoryInternal)
	}

	prepareUserDefaults(user)

	if _, err := r.db.NewInsert().Model(user).Exec(ctx); err != nil {
		if column, ok := uniqueViolation(err); ok {
			return nil, conflictFor(column)
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user")
	}

	return user, nil
}

// UpdateRole sets the role of an existing record
func (r *Users) UpdateRole(ctx context.Context, id uuid.UUID, role Role) (*User, error) {
	if !role.IsValid() {
		return nil, goerrors.New("unknown role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"role": string(role)})
	}

	now := time.Now().UTC()
	user := &User{ID: id, Role: role, UpdatedAt: &now}
	res, err := r.db.NewUpdate().
		Model(user).
		Column("role", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update role")
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrIdentityNotFound
	}

	return r.GetByID(ctx, id)
}

func (r *Users) getBy(ctx context.Context, column string, value any) (*User, error) {
	user := &User{}
	err := r.db.NewSelect().
		Model(user).
		Where(fmt.Sprintf("?TableAlias.%s = ?", column), value).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to query users").
			WithMetadata(map[string]any{"column": column})
	}
	return user, nil
}

func prepareUserDefaults(user *User) {
	user.Email = normalizeEmail(user.Email)
	user.Username = strings.TrimSpace(user.Username)
	if user.Role == "" {
		user.Role = BaselineRole
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	if _, err := uuid.Parse(trimmed); err == nil {
		return []identifierOption{{column: "id", value: trimmed}}
	}

	if _, err := mail.ParseAddress(trimmed); err == nil {
		return []identifierOption{
			{column: "email", value: normalizeEmail(trimmed)},
			{column: "username", value: trimmed},
		}
	}

	return []identifierOption{{column: "username", value: trimmed}}
}

// uniqueViolation reports whether err is a unique constraint failure
// and, when it can tell, which column caused it.
func uniqueViolation(err error) (string, bool) {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		if pgErr.Field('C') != pgUniqueViolation {
			return "", false
		}
		return constraintColumn(pgErr.Field('n') + " " + pgErr.Field('D')), true
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return constraintColumn(msg), true
	}
	return "", false
}

func constraintColumn(detail string) string {
	switch {
	case strings.Contains(detail, "email"):
		return "email"
	case strings.Contains(detail, "username"):
		return "username"
	default:
		return ""
	}
}

func conflictFor(column string) *goerrors.Error {
	err := ErrIdentityConflict.Clone()
	if column == "username" {
		err.Message = "username already taken"
	}
	if column != "" {
		err = err.WithMetadata(map[string]any{"field": column})
	}
	return err
}
