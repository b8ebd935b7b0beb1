package auth

import (
	"context"

	"github.com/numo-systems/numo-admin/gateway/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by the gate.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
