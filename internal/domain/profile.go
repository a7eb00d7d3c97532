package domain

import "time"

const (
	ProfilePhoneMaxLength      = 20
	ProfileDepartmentMaxLength = 100
	ProfilePositionMaxLength   = 100
)

// Profile extends an identity with contact and organisational details.
type Profile struct {
	ID         int64
	IdentityID int64
	Phone      string
	Department string
	Position   string
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewProfile returns the empty profile created alongside a new identity.
func NewProfile(identityID int64) *Profile {
	return &Profile{IdentityID: identityID, IsActive: true}
}
