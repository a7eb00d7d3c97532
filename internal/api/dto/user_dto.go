package dto

import "time"

// LoginRequest payload.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse returns an issued token.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Identity  IdentityResponse `json:"user"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	OldPassword  string `json:"old_password"`
	NewPassword1 string `json:"new_password1"`
	NewPassword2 string `json:"new_password2"`
}

// CreateUserRequest payload.
type CreateUserRequest struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Password1  string `json:"password1"`
	Password2  string `json:"password2"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Position   string `json:"position"`
	IsStaff    bool   `json:"is_staff"`
}

// UpdateUserRequest payload. Omitted fields stay unchanged.
type UpdateUserRequest struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	Phone        *string `json:"phone"`
	Department   *string `json:"department"`
	Position     *string `json:"position"`
	IsStaff      *bool   `json:"is_staff"`
	IsActive     *bool   `json:"is_active"`
	NewPassword1 string  `json:"new_password1"`
	NewPassword2 string  `json:"new_password2"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Email      *string `json:"email"`
	Phone      *string `json:"phone"`
	Department *string `json:"department"`
	Position   *string `json:"position"`
}

// ProfileResponse represents profile details.
type ProfileResponse struct {
	Phone      string    `json:"phone"`
	Department string    `json:"department"`
	Position   string    `json:"position"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// IdentityResponse represents an account. The password hash is never exposed.
type IdentityResponse struct {
	ID          int64           `json:"id"`
	Username    string          `json:"username"`
	FirstName   string          `json:"first_name"`
	LastName    string          `json:"last_name"`
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	IsActive    bool            `json:"is_active"`
	IsStaff     bool            `json:"is_staff"`
	IsSuperuser bool            `json:"is_superuser"`
	DateJoined  time.Time       `json:"date_joined"`
	LastLogin   *time.Time      `json:"last_login"`
	Profile     ProfileResponse `json:"profile"`
}
