package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUser(t *testing.T) {
	u := NewUser("a@x.com", "Alice")

	assert.Equal(t, "a@x.com", u.Email)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsAdmin)
	assert.True(t, u.IsActive)
	assert.False(t, u.CreatedAt.IsZero())
}

func TestUser_SetRole_KeepsSignalsInAgreement(t *testing.T) {
	u := NewUser("a@x.com", "Alice")

	u.SetRole(RoleAdmin)
	assert.Equal(t, RoleAdmin, u.Role)
	assert.True(t, u.IsAdmin)

	u.SetRole(RoleUser)
	assert.Equal(t, RoleUser, u.Role)
	assert.False(t, u.IsAdmin)
}

func TestUser_Clone(t *testing.T) {
	u := NewUser("a@x.com", "Alice")
	c := u.Clone()

	c.Name = "Mallory"
	assert.Equal(t, "Alice", u.Name, "mutating the clone must not affect the original")
}
