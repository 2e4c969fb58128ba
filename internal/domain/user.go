package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User represents an identity known to the system.
// AuthyID is empty until the user enrolls in two-factor verification.
type User struct {
	ID           int64
	Email        string
	Username     string
	Phone        string
	PasswordHash string
	Role         Role
	AuthyID      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Enrolled reports whether the user carries a two-factor provider handle.
func (u *User) Enrolled() bool {
	return u != nil && u.AuthyID != ""
}
