package model

import (
	"strings"
	"time"
)

// UserRole is the account type of a profile.
type UserRole string

const (
	RoleClient   UserRole = "client"
	RoleProvider UserRole = "provider"
	RoleAdmin    UserRole = "admin"
)

// ParseRole maps a stored role to a UserRole. Unknown values become clients.
func ParseRole(s string) UserRole {
	switch UserRole(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAdmin:
		return RoleAdmin
	case RoleProvider:
		return RoleProvider
	default:
		return RoleClient
	}
}

// Label returns the display name of the role.
func (r UserRole) Label() string {
	switch r {
	case RoleAdmin:
		return "Administrador"
	case RoleProvider:
		return "Prestador"
	default:
		return "Cliente"
	}
}

// Profile is a row of the profiles table.
type Profile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Role      UserRole  `json:"role"`
	AvatarURL string    `json:"avatarUrl,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProfileUpdate carries the profile fields to change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.AvatarURL == nil
}

// UserListItem is a row in the admin user listing.
type UserListItem struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Role  UserRole `json:"role"`
}
