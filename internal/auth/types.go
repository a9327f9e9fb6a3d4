package auth

import (
	"strings"
	"time"
)

// Roles understood by the access policy. Every user carries exactly one.
const (
	RoleEmployee = "employee"
	RoleTeamLead = "team_lead"
	RoleITStaff  = "it_staff"
)

// ValidRole reports whether role is one of the three known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleTeamLead, RoleITStaff:
		return true
	}
	return false
}

// NormalizeRole lower-cases and trims a role string for comparison.
func NormalizeRole(role string) string {
	return strings.TrimSpace(strings.ToLower(role))
}

// User is an account in the help desk directory. PasswordHash is never
// serialized; list and profile responses carry identity fields only.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the decoded content of a verified credential. It is what
// handlers see after authentication; it never includes the password hash.
type Identity struct {
	UserID   string
	Username string
	Email    string
	FullName string
	Role     string
}
