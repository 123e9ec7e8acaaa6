package auth

import "slices"

// Principal is the request scoped identity: the identity record plus
// the authorities derived from its role.
type Principal struct {
	User        *User    `json:"user"`
	Authorities []string `json:"authorities"`
}

// NewPrincipal builds a principal from a record, dropping the password
// hash and mapping an absent role to the baseline role.
func NewPrincipal(user *User) *Principal {
	if user == nil {
		return nil
	}
	u := user.Sanitized()
	u.Role = u.EffectiveRole()
	return &Principal{
		User:        u,
		Authorities: u.Role.Authorities(),
	}
}

// SubjectID returns the record id as it appears in a token subject
func (p *Principal) SubjectID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID.String()
}

// Role returns the principal's role
func (p *Principal) Role() Role {
	if p == nil {
		return BaselineRole
	}
	return p.User.EffectiveRole()
}

// HasAuthority checks for an authority such as "ROLE_ADMIN"
func (p *Principal) HasAuthority(authority string) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Authorities, authority)
}

// HasRole checks if the principal has exactly the given role
func (p *Principal) HasRole(role Role) bool {
	return p.HasAuthority(AuthorityPrefix + string(role))
}

// IsAtLeast checks the principal's role against the role hierarchy
func (p *Principal) IsAtLeast(minRole Role) bool {
	if p == nil {
		return false
	}
	return p.Role().IsAtLeast(minRole)
}

// Identity adapts the principal to the Identity interface
func (p *Principal) Identity() Identity {
	if p == nil {
		return nil
	}
	return NewIdentityFromUser(p.User)
}
