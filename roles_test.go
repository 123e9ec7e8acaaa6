package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	auth "github.com/dhaaraai/go-auth"
)

func TestRole_IsValid(t *testing.T) {
	for _, r := range auth.GetAllRoles() {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, auth.Role("SUPERUSER").IsValid())
	assert.False(t, auth.Role("").IsValid())
}

func TestRole_Authorities(t *testing.T) {
	tests := []struct {
		role auth.Role
		want []string
	}{
		{auth.RoleClient, []string{"ROLE_CLIENT"}},
		{auth.RoleLawyer, []string{"ROLE_LAWYER"}},
		{auth.RoleAdmin, []string{"ROLE_ADMIN"}},
		{auth.Role(""), []string{"ROLE_CLIENT"}},
		{auth.Role("bogus"), []string{"ROLE_CLIENT"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.role.Authorities())
		})
	}
}

func TestRole_IsAtLeast(t *testing.T) {
	assert.True(t, auth.RoleAdmin.IsAtLeast(auth.RoleLawyer))
	assert.True(t, auth.RoleLawyer.IsAtLeast(auth.RoleLawyer))
	assert.True(t, auth.RoleLawyer.IsAtLeast(auth.RoleClient))
	assert.False(t, auth.RoleClient.IsAtLeast(auth.RoleLawyer))
	assert.False(t, auth.RoleLawyer.IsAtLeast(auth.RoleAdmin))
	assert.False(t, auth.Role("bogus").IsAtLeast(auth.RoleClient))
	assert.False(t, auth.RoleAdmin.IsAtLeast(auth.Role("bogus")))
}

func TestRole_OrBaseline(t *testing.T) {
	assert.Equal(t, auth.RoleClient, auth.Role("").OrBaseline())
	assert.Equal(t, auth.RoleLawyer, auth.RoleLawyer.OrBaseline())
	assert.Equal(t, auth.BaselineRole, auth.RoleClient)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want auth.Role
		ok   bool
	}{
		{"ADMIN", auth.RoleAdmin, true},
		{"lawyer", auth.RoleLawyer, true},
		{" ROLE_CLIENT ", auth.RoleClient, true},
		{"role_admin", auth.RoleAdmin, true},
		{"owner", auth.Role("OWNER"), false},
		{"", auth.Role(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := auth.ParseRole(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
