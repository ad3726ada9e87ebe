package models

// Admin "inherits" from User via embedding. The distinguishing field is Role.
// Admins are never bound to a unit and cannot be deleted.
type Admin struct {
	User
}

// NewAdmin creates an admin model with Role preset to "admin".
func NewAdmin(username, passwordHash string) *Admin {
	return &Admin{User: User{Username: username, PasswordHash: passwordHash, Role: RoleAdmin}}
}
