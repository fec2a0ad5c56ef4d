package domain

import "time"

// Role separates ticket filers from helpdesk staff.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
)

// User is the local directory entry for an identity supplied by the identity provider.
type User struct {
	ID          int64
	Email       string
	DisplayName string
	IsStaff     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Actor identifies who performs a mutation.
type Actor struct {
	UserID int64
	Role   Role
}

// IsStaff reports whether the actor acts with staff privileges.
func (a Actor) IsStaff() bool {
	return a.Role == RoleStaff
}
