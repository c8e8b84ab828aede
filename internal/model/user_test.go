package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_HasUsablePassword(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want bool
	}{
		{"hashed", "$2a$12$abcdef", true},
		{"empty", "", false},
		{"marker", "!0123abcd", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{PasswordHash: tt.hash}
			assert.Equal(t, tt.want, u.HasUsablePassword())
		})
	}
}

func TestUser_SetUnusablePassword(t *testing.T) {
	u := &User{PasswordHash: "$2a$12$abcdef"}

	assert.True(t, u.SetUnusablePassword())
	assert.False(t, u.HasUsablePassword())
	assert.True(t, strings.HasPrefix(u.PasswordHash, "!"))
	assert.Len(t, u.PasswordHash, 33)

	disabled := u.PasswordHash
	assert.False(t, u.SetUnusablePassword())
	assert.Equal(t, disabled, u.PasswordHash)
}

func TestUser_SetUnusablePasswordRandom(t *testing.T) {
	a := &User{PasswordHash: "x"}
	b := &User{PasswordHash: "x"}
	a.SetUnusablePassword()
	b.SetUnusablePassword()
	assert.NotEqual(t, a.PasswordHash, b.PasswordHash)
}

func TestUpdatePasswordExpiryPolicyRequest_Apply(t *testing.T) {
	days := 60
	enabled := false
	p := &PasswordExpiryPolicy{Name: "p", Days: 30, Enabled: true, Weight: 2}

	req := &UpdatePasswordExpiryPolicyRequest{Days: &days, Enabled: &enabled}
	req.Apply(p)

	assert.Equal(t, "p", p.Name)
	assert.Equal(t, 60, p.Days)
	assert.False(t, p.Enabled)
	assert.Equal(t, 2.0, p.Weight)
}
