package auth

import "strings"

// Role is the coarse role tag carried by an identity record
type Role string

const (
	// RoleClient is the baseline role assigned on registration
	RoleClient Role = "CLIENT"
	// RoleLawyer is a practitioner account
	RoleLawyer Role = "LAWYER"
	// RoleAdmin manages the platform
	RoleAdmin Role = "ADMIN"
)

// BaselineRole is used when a record carries no role or an unknown one
const BaselineRole = RoleClient

// AuthorityPrefix prefixes the role name in an authority string
const AuthorityPrefix = "ROLE_"

var roleLevels = map[Role]int{
	RoleClient: 0,
	RoleLawyer: 1,
	RoleAdmin:  2,
}

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	_, ok := roleLevels[r]
	return ok
}

func (r Role) String() string {
	return string(r)
}

// Authorities returns the authority set derived from the role
func (r Role) Authorities() []string {
	return []string{AuthorityPrefix + string(r.OrBaseline())}
}

// OrBaseline returns r when valid and BaselineRole otherwise
func (r Role) OrBaseline() Role {
	if r.IsValid() {
		return r
	}
	return BaselineRole
}

// IsAtLeast checks if this role meets the minimum required level
func (r Role) IsAtLeast(minRole Role) bool {
	currentLevel, exists := roleLevels[r]
	if !exists {
		return false
	}

	minLevel, exists := roleLevels[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []Role {
	return []Role{
		RoleClient,
		RoleLawyer,
		RoleAdmin,
	}
}

// ParseRole parses a role name, accepting the authority form
// ("ROLE_ADMIN") and any letter case.
func ParseRole(roleStr string) (Role, bool) {
	s := strings.ToUpper(strings.TrimSpace(roleStr))
	s = strings.TrimPrefix(s, AuthorityPrefix)
	role := Role(s)
	return role, role.IsValid()
}
