// Package auth defines the authenticated-caller model and its context
// carrier. Resolution of credentials into a User happens in pkg/middleware;
// hooks and services only ever read the context.
package auth

import "context"

// Role is the caller's access level.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User is an authenticated caller.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type contextKey string

const (
	userKey   contextKey = "auth_user"
	systemKey contextKey = "auth_system"
)

// WithUser installs the authenticated user on the context.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// FromContext returns the authenticated user, or nil for anonymous callers.
func FromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userKey).(*User)
	return u
}

// AsSystem marks the context as an internal call. System calls bypass role
// guards; the id allocator uses this when it writes counter documents
// through the options service.
func AsSystem(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemKey, true)
}

// IsSystem reports whether the context carries the internal-call mark.
func IsSystem(ctx context.Context) bool {
	b, _ := ctx.Value(systemKey).(bool)
	return b
}
