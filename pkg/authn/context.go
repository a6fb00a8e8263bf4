package authn

import (
	"context"

	"github.com/akarpenko/backplane/pkg/userstore"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{ name string }

var userContextKey = &contextKey{name: "authn_user"}

// WithUser attaches the authenticated user to the context.
func WithUser(ctx context.Context, user *userstore.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the authenticated user attached by the middleware.
func UserFromContext(ctx context.Context) (*userstore.User, bool) {
	user, ok := ctx.Value(userContextKey).(*userstore.User)
	return user, ok
}
