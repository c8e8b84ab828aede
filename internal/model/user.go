package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// User status constants
const (
	UserStatusActive   = "active"
	UserStatusInactive = "inactive"
	UserStatusPending  = "pending"
	UserStatusLocked   = "locked"
)

// unusablePasswordPrefix marks a hash that can never match a password.
const unusablePasswordPrefix = "!"

// User represents a system user
type User struct {
	Base
	OrganizationID     uuid.UUID  `json:"organization_id" db:"organization_id"`
	Email              string     `json:"email" db:"email"`
	Name               string     `json:"name" db:"name"`
	PasswordHash       string     `json:"-" db:"password_hash"`
	PasswordChangeDate *time.Time `json:"password_change_date" db:"password_change_date"`
	Status             string     `json:"status" db:"status"`
	PreferredLanguage  string     `json:"preferred_language" db:"preferred_language"`
}

// HasUsablePassword reports whether the stored credential can be used to log in.
// An empty hash is unusable, so expiry never rewrites it.
func (u *User) HasUsablePassword() bool {
	return u.PasswordHash != "" && !strings.HasPrefix(u.PasswordHash, unusablePasswordPrefix)
}

// SetUnusablePassword replaces the credential with a marker no password can
// match. It returns false when the credential was already unusable, in which
// case the user is left untouched.
func (u *User) SetUnusablePassword() bool {
	if !u.HasUsablePassword() {
		return false
	}
	u.PasswordHash = unusablePasswordPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	return true
}
