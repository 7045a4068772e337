package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, error) {
	if id, ok := ctx.Value(ctxIdentity).(Identity); ok && id.Kind != "" {
		return id, nil
	}
	return Identity{}, errors.New("identity not in context")
}

// UserID returns the authenticated user id, failing for visitors.
func UserID(ctx context.Context) (string, error) {
	id, err := IdentityFrom(ctx)
	if err != nil {
		return "", err
	}
	if !id.IsUser() {
		return "", errors.New("not an authenticated user")
	}
	return id.UserID, nil
}
