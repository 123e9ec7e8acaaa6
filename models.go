package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the identity record
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username      string     `bun:"username,notnull,unique" json:"username"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	PasswordHash  string     `bun:"password_hash,notnull" json:"-"`
	Role          Role       `bun:"role,nullzero" json:"role,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updated_at,omitempty"`
}

var _ bun.BeforeAppendModelHook = (*User)(nil)

// BeforeAppendModel fills ids and timestamps
func (u *User) BeforeAppendModel(_ context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if u.ID == uuid.Nil {
			u.ID = uuid.New()
		}
		if u.CreatedAt == nil {
			u.CreatedAt = &now
		}
		u.UpdatedAt = &now
	case *bun.UpdateQuery:
		u.UpdatedAt = &now
	}
	return nil
}

// EffectiveRole returns the stored role, or the baseline role when the
// record carries none or an unknown one
func (u *User) EffectiveRole() Role {
	if u == nil {
		return BaselineRole
	}
	return u.Role.OrBaseline()
}

// Sanitized returns a copy without the password hash
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	cp := *u
	cp.PasswordHash = ""
	return &cp
}
