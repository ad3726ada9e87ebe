package auth

import (
	"context"
	"errors"

	"ticketCountManagement/models"
)

var (
	// ErrUnauthenticated means no valid session or token accompanied the request.
	ErrUnauthenticated = errors.New("unauthorized")
	// ErrForbidden means the caller is authenticated but lacks the required role.
	ErrForbidden = errors.New("forbidden")
)

// Principal is the authenticated caller. It is derived once per request from
// the session or bearer token and never modified afterwards.
type Principal struct {
	UserID   int64
	Username string
	Role     models.Role
	UnitID   int64 // 0 for admins
}

// PrincipalFromUser builds the principal of a stored user.
func PrincipalFromUser(u *models.User) Principal {
	p := Principal{UserID: u.ID, Username: u.Username, Role: u.Role}
	if u.UnitID != nil {
		p.UnitID = *u.UnitID
	}
	return p
}

func (p Principal) IsAdmin() bool  { return p.Role == models.RoleAdmin }
func (p Principal) IsEditor() bool { return p.Role == models.RoleEditor }

// HomePath is where the principal lands after login.
func (p Principal) HomePath() string {
	if p.IsAdmin() {
		return "/admin"
	}
	return "/editor"
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authorize checks that ctx carries a principal with the given role.
func Authorize(ctx context.Context, role models.Role) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, ErrUnauthenticated
	}
	if p.Role != role {
		return p, ErrForbidden
	}
	return p, nil
}
