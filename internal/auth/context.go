package auth

import (
	"context"

	"github.com/isdelr/task-manager-api/internal/models"
)

// Identity is the authenticated caller resolved from a bearer token.
type Identity struct {
	User   models.User
	Claims *Claims
}

type contextKey string

const identityKey = contextKey("identity")

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity stored by the auth middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
