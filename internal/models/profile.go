package models

// Role is the access level of a user profile.
type Role string

const (
	RoleVisitor Role = "visitor"
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleVisitor, RoleStudent, RoleAdmin:
		return true
	}
	return false
}

// CanEdit reports whether the role may write notes.
func (r Role) CanEdit() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Profile is the persisted role and pack assignment of a user.
type Profile struct {
	ID         string  `db:"id" json:"id"`
	FullName   *string `db:"full_name" json:"full_name"`
	PackNumber *int    `db:"pack_number" json:"pack_number"`
	Role       Role    `db:"role" json:"role"`
}
