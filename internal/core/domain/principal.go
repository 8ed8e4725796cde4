package domain

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Principal models an authenticatable identity: a regular user or an
// administrator, discriminated by Role. Username and email are unique across
// both variants so a login lookup resolves to exactly one principal or none.
type Principal struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Enabled      bool      `json:"enabled"`

	// Verification fields are set at signup and cleared once the account is
	// enabled. A zero VerificationExpiresAt means no code is outstanding.
	VerificationCode      string    `json:"-"`
	VerificationExpiresAt time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the principal carries the admin role.
func (p *Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
