package models

import "time"

// Staff roles
const (
	RoleAdmin       = "admin"
	RoleCoordinador = "coordinador"
	RoleCajero      = "cajero"
)

type User struct {
	ID           int          `json:"id"`
	Nombre       string       `json:"nombre"`
	Email        string       `json:"email"`
	Telefono     string       `json:"telefono"`
	PasswordHash string       `json:"-"` // Never expose in JSON
	Role         string       `json:"role"`
	Status       RecordStatus `json:"status"`
	TOTPSecret   string       `json:"-"`
	TOTPEnabled  bool         `json:"totp_enabled"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsActive reports whether the user may log in
func (u *User) IsActive() bool {
	return u.Status == StatusActivo
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the login result. When the user has 2FA enabled only
// Requires2FA and TempToken are set; the session token comes from the
// second step.
type AuthResponse struct {
	Token       string `json:"token,omitempty"`
	User        *User  `json:"user,omitempty"`
	Requires2FA bool   `json:"requires_2fa,omitempty"`
	TempToken   string `json:"temp_token,omitempty"`
}

// ChangePasswordRequest is a user changing their own password
type ChangePasswordRequest struct {
	Actual string `json:"actual"`
	Nueva  string `json:"nueva"`
}

// CreateUserRequest represents the request body for creating a user
type CreateUserRequest struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateUserRequest represents the request body for updating a user
type UpdateUserRequest struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
	Password string `json:"password,omitempty"` // Optional
	Role     string `json:"role"`
}
