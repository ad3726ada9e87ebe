package models

// Role is the access level of a user account.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
)

// User represents an account allowed to sign in.
// It maps to the `users` table. UnitID is nil for admins.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password_hash" json:"-"`
	Role         Role   `db:"role" json:"role"`
	UnitID       *int64 `db:"unit_id" json:"unit_id,omitempty"`
	// UnitName is only populated by listings that join the units table.
	UnitName string `db:"unit_name" json:"unit_name,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
