package auth

import "authd/internal/models"

// RoleGate checks a resolved account against a set of allowed roles.
type RoleGate struct {
	allowed map[string]bool
}

// NewRoleGate creates a gate admitting only the named roles. A gate with no
// roles admits any account carrying a non-empty role.
func NewRoleGate(roles ...string) *RoleGate {
	g := &RoleGate{allowed: make(map[string]bool, len(roles))}
	for _, role := range roles {
		g.allowed[role] = true
	}
	return g
}

// Check returns nil when the account may pass the gate and ErrForbidden
// otherwise.
//
// The record carries the admin fact twice, as the role string and as the
// is_admin flag. The gate trusts the claim only when both agree: a record
// where they disagree has been corrupted or tampered with somewhere, and the
// safe reading of a corrupt privilege bit is no privilege.
func (g *RoleGate) Check(user *models.User) error {
	// Every account carries a role; a record without one is not trusted
	// through any gate.
	if user.Role == "" {
		return ErrForbidden
	}
	if len(g.allowed) == 0 {
		return nil
	}
	if !g.allowed[user.Role] {
		return ErrForbidden
	}
	if user.Role == models.RoleAdmin && !user.IsAdmin {
		return ErrForbidden
	}
	return nil
}
