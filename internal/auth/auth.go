// Package auth answers "who is the current user?" for the engine, and issues and
// verifies the bearer tokens the HTTP server authenticates with.
package auth

import (
	"context"

	"go-site-builder/internal/model"
)

// Provider reports the authenticated user, if any.
type Provider interface {
	CurrentUser(ctx context.Context) (*model.User, bool)
}

// Static always reports the same user. A nil User means signed out.
// The CLI uses it with the operator configured on the command line.
type Static struct {
	User *model.User
}

func (s Static) CurrentUser(context.Context) (*model.User, bool) {
	if s.User == nil || s.User.ID == "" {
		return nil, false
	}
	u := *s.User
	return &u, true
}

type userKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the user stored by WithUser.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey{}).(*model.User)
	if !ok || u == nil || u.ID == "" {
		return nil, false
	}
	return u, true
}

// ContextProvider reads the user placed on the request context by Middleware.
type ContextProvider struct{}

func (ContextProvider) CurrentUser(ctx context.Context) (*model.User, bool) {
	return UserFromContext(ctx)
}
