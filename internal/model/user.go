package model

import (
	"fmt"
	"time"
)

// User represents a reviewer-portal account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Roles. Admins manage rules and users and make final decisions, reviewers
// make initial decisions, submitters can only submit supplies and evidence.
const (
	RoleAdmin     = "admin"
	RoleReviewer  = "reviewer"
	RoleSubmitter = "submitter"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleAdmin:     3,
		RoleReviewer:  2,
		RoleSubmitter: 1,
	}
	return levels[role] >= levels[minimum]
}

// ValidRole reports whether role is a known role.
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleReviewer || role == RoleSubmitter
}

// ValidatePassword enforces the minimum password policy.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}
