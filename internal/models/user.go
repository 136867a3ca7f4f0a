package models

import (
	"fmt"
	"strings"
)

// Role enumerates user roles.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// ParseRole converts a string into a Role.
func ParseRole(s string) (Role, error) {
	switch role := Role(strings.ToUpper(s)); role {
	case RoleAdmin, RoleUser:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// User represents a user in the system
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email,omitempty"`
	PasswordHash string `json:"-"` // Not serialized
	Role         Role   `json:"role"`
	CreatedAt    string `json:"created_at"`
}
