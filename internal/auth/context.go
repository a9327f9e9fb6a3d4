package auth

import (
	"context"
	"strings"
)

type ctxKey string

const identityKey ctxKey = "auth_identity"

// ContextWithIdentity stores the authenticated identity in the context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	v, ok := ctx.Value(identityKey).(Identity)
	if !ok || strings.TrimSpace(v.UserID) == "" {
		return Identity{}, false
	}
	return v, true
}

// UserIDFromContext returns just the acting user id, for audit logging.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", false
	}
	return id.UserID, true
}

// HasRole checks whether the context identity carries the given role.
func HasRole(ctx context.Context, role string) bool {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return false
	}
	return id.Role == NormalizeRole(role)
}
