package models

// UserRole represents the roles recognised by the API.
type UserRole string

const (
	RoleHQ      UserRole = "HQ"
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleParent  UserRole = "PARENT"
)

// Valid reports whether the role is recognised.
func (r UserRole) Valid() bool {
	switch r {
	case RoleHQ, RoleAdmin, RoleTeacher, RoleParent:
		return true
	}
	return false
}
