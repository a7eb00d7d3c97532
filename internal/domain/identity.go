package domain

import (
	"strings"
	"time"
)

// Identity is an account that can authenticate against the helpdesk.
type Identity struct {
	ID           int64
	Username     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
	LastLogin    *time.Time
}

// FullName joins first and last name, falling back to the username.
func (i *Identity) FullName() string {
	name := strings.TrimSpace(i.FirstName + " " + i.LastName)
	if name == "" {
		return i.Username
	}
	return name
}

// IdentityWithProfile pairs an identity with its profile row.
type IdentityWithProfile struct {
	Identity Identity
	Profile  Profile
}
