package composables

import (
	"context"
	"errors"

	"github.com/gemelli/tenantcore/pkg/constants"
	"github.com/gemelli/tenantcore/pkg/identity"
)

var (
	ErrNoPrincipal = errors.New("no principal found in context")
	ErrNoUser      = errors.New("no user found in context")
)

func WithPrincipal(ctx context.Context, p *identity.Principal) context.Context {
	return context.WithValue(ctx, constants.PrincipalKey, p)
}

func UsePrincipal(ctx context.Context) (*identity.Principal, error) {
	p, ok := ctx.Value(constants.PrincipalKey).(*identity.Principal)
	if !ok || p == nil {
		return nil, ErrNoPrincipal
	}
	return p, nil
}

func WithUser(ctx context.Context, u *identity.User) context.Context {
	return context.WithValue(ctx, constants.UserKey, u)
}

// UseUser returns the acting user. Background work has none and gets ErrNoUser.
func UseUser(ctx context.Context) (*identity.User, error) {
	u, ok := ctx.Value(constants.UserKey).(*identity.User)
	if !ok || u == nil {
		return nil, ErrNoUser
	}
	return u, nil
}
