package models

import "time"

// UserRole represents the available roles for the RBAC system. Admins issue
// codes and moderate; seekers browse the approved knowledge base.
type UserRole string

const (
	RoleAdmin  UserRole = "ADMIN"
	RoleSeeker UserRole = "SEEKER"
)

// User represents an application user stored in the users table. Uploaders
// are intentionally absent here: submissions are anonymous and gated by
// upload codes, not accounts.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Department   string     `db:"department" json:"department"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
