package domain

import (
	"errors"
	"time"
)

// Role values form a closed set. They are validated once at the API
// boundary and treated as opaque strings everywhere else.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ValidRole reports whether role belongs to the closed role set.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleMember
}

var ErrEmailTaken = errors.New("email already in use")
var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrInvalidRole = errors.New("invalid role")
var ErrUserNotFound = errors.New("user not found")
var ErrForbidden = errors.New("access forbidden")

// User models a registered account. The password hash never serializes;
// it exists only inside the credential store and the login comparison.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
