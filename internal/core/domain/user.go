// internal/core/domain/user.go
package domain

import "github.com/google/uuid"

// Role is a user's permission tier
type Role string

// Role constants
const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleViewer Role = "viewer"
)

// UserStatus is whether an account may log in
type UserStatus string

// User status constants
const (
	UserActive   UserStatus = "active"
	UserInactive UserStatus = "inactive"
)

// User is an application account. PasswordHash is produced by an external
// hashing helper and is only ever compared, never derived, here.
type User struct {
	ID           string     `json:"id" validate:"required"`
	Name         string     `json:"name" validate:"required"`
	Username     string     `json:"username" validate:"required"`
	Role         Role       `json:"role" validate:"required,oneof=admin staff viewer"`
	Status       UserStatus `json:"status" validate:"omitempty,oneof=active inactive"`
	PasswordHash string     `json:"password,omitempty"`
}

// Validate performs domain validation on the user
func (u *User) Validate() error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleStaff
	}
	if u.Status == "" {
		u.Status = UserActive
	}
	return ValidateStruct(u)
}

// CanWrite reports whether the user may mutate collections
func (u *User) CanWrite() bool {
	return u.Role == RoleAdmin || u.Role == RoleStaff
}

// Active reports whether the user may log in
func (u *User) Active() bool {
	return u.Status != UserInactive
}

// Public returns a copy without the password hash, suitable for the session key
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}
