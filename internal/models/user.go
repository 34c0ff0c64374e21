package models

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles. It is parsed once at the token
// boundary and carried as a typed value everywhere else.
type Role string

const (
	// RoleStudent can enroll in courses and submit assignment work.
	RoleStudent Role = "student"
	// RoleTrainer authors courses and grades submissions for courses they instruct.
	RoleTrainer Role = "trainer"
	// RoleAdmin bypasses ownership checks entirely.
	RoleAdmin Role = "admin"
)

// ParseRole normalizes and validates a raw role string.
func ParseRole(value string) (Role, error) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleStudent, RoleTrainer, RoleAdmin:
		return role, nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// User represents a registered account.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	FirstName    string    `gorm:"size:100;not null" json:"first_name"`
	LastName     string    `gorm:"size:100;not null" json:"last_name"`
	Role         Role      `gorm:"size:32;not null;default:student" json:"role"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FullName joins the user's first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
