package model

import "time"

// Role names as carried in the JWT "role" claim and the users.role column.
type Role string

const (
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
	RoleTutor   Role = "TUTOR"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTutor, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether r may perform administrative wallet and
// scheduling actions on behalf of other users.
func (r Role) IsStaff() bool { return r == RoleManager || r == RoleAdmin }

// User represents an application user record as stored in the
// `users` table.  Users are owned by the wider application; this
// service only reads them to validate tutors and students.
//
// Fields:
//  ID        – primary key identifier of the user (UUID).
//  Name      – display name used in notifications.
//  Email     – unique email address.
//  Role      – one of the Role constants.
//  CreatedAt – timestamp of creation.
type User struct {
	ID        string    `json:"id"`         // users.id
	Name      string    `json:"name"`       // users.name
	Email     string    `json:"email"`      // users.email
	Role      Role      `json:"role"`       // users.role
	CreatedAt time.Time `json:"created_at"` // users.created_at
}

// Course is the read-only view of a course.  Sessions, proposals and
// wallets are all keyed by course.
type Course struct {
	ID       string `json:"id"`        // courses.id
	Title    string `json:"title"`     // courses.title
	IsActive bool   `json:"is_active"` // courses.is_active
}

// Actor is the authenticated caller of an operation, resolved by the
// auth middleware before any handler runs.
type Actor struct {
	UserID string
	Role   Role
}
