// Package requestctx carries authenticated request identity through context.
package requestctx

import "context"

// Principal identifies the authenticated caller of a request.
type Principal struct {
	// Subject is the roll number for students or the employee ID for staff.
	Subject string
	// Role is one of "student", "faculty", "staff", "admin".
	Role string
	// TokenID is the jti of the presenting token.
	TokenID string
}

// IsStaff reports whether the principal holds staff-or-above privileges.
func (p Principal) IsStaff() bool {
	return p.Role == "staff" || p.Role == "admin"
}

// IsAdmin reports whether the principal is an administrator.
func (p Principal) IsAdmin() bool {
	return p.Role == "admin"
}

// principalContextKey is the context key for authenticated request identity.
type principalContextKey struct{}

// WithPrincipal stores the authenticated principal in context.
func WithPrincipal(ctx context.Context, principal Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, principalContextKey{}, principal)
}

// PrincipalFromContext returns the principal stored in context, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	value, ok := ctx.Value(principalContextKey{}).(Principal)
	return value, ok
}
