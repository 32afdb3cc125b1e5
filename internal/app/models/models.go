package models

// RoleType defines the user role type
type RoleType string

const (
	RoleStudent   RoleType = "STUDENT"
	RoleTeacher   RoleType = "TEACHER"
	RoleCounselor RoleType = "COUNSELOR"
	RoleAdmin     RoleType = "ADMIN"
)

// Valid reports whether r is a known role
func (r RoleType) Valid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleCounselor, RoleAdmin:
		return true
	}
	return false
}

// IsStaff reports whether the role manages students
func (r RoleType) IsStaff() bool {
	return r == RoleCounselor || r == RoleAdmin
}
