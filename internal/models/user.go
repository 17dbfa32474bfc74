package models

import "time"

// Role names carried in the token's role claim and the user record.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is a persisted account record. Credential holds the salted password
// hash in "<hex-salt>$<hex-key>" form and is never serialized; accounts
// created through a sign-in provider have an empty credential until a
// password is set.
//
// Role and IsAdmin are two signals of the same fact. Role is authoritative;
// IsAdmin is kept in the record because the schema carries both, and the
// admin gate requires them to agree. Code that promotes a user must set both
// together (see SetRole).
type User struct {
	ID              int64     `json:"id"`
	Email           string    `json:"email"`
	Name            string    `json:"name"`
	ProviderSubject string    `json:"-"`
	Credential      string    `json:"-"`
	Role            string    `json:"role"`
	IsAdmin         bool      `json:"is_admin"`
	IsVerified      bool      `json:"is_verified"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewUser creates an active, non-admin account.
func NewUser(email, name string) *User {
	now := time.Now().UTC()
	return &User{
		Email:     email,
		Name:      name,
		Role:      RoleUser,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetRole updates the role and keeps the admin flag in agreement with it.
func (u *User) SetRole(role string) {
	u.Role = role
	u.IsAdmin = role == RoleAdmin
	u.UpdatedAt = time.Now().UTC()
}

// Clone returns a copy of the record so storage implementations can hand out
// values without exposing their internal state.
func (u *User) Clone() *User {
	c := *u
	return &c
}
