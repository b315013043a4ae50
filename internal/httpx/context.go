package httpx

import (
	"context"
	"net/http"
)

type contextKey string

const (
	identityKey       contextKey = "identity"
	identityHolderKey contextKey = "identityHolder"
	requestIDKey      contextKey = "requestID"
)

// Identity is the authenticated caller attached by the auth middlewares.
type Identity struct {
	UserID string
	Role   string
}

func (i Identity) HasRole(roles ...string) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

// ContextWithIdentity returns a new context carrying the caller identity.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	if holder, ok := ctx.Value(identityHolderKey).(*identityHolder); ok {
		holder.userID = id.UserID
	}
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom returns the caller identity, if the request was authenticated.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// UserIDFrom retrieves the user ID from the request context.
func UserIDFrom(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.UserID
}

// RoleFrom retrieves the user role from the request context.
func RoleFrom(r *http.Request) string {
	id, _ := IdentityFrom(r.Context())
	return id.Role
}

func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFrom(r *http.Request) string {
	if v, ok := r.Context().Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// identityHolder lets the access log see an identity attached by an inner middleware.
type identityHolder struct {
	userID string
}

func contextWithIdentityHolder(ctx context.Context, holder *identityHolder) context.Context {
	return context.WithValue(ctx, identityHolderKey, holder)
}
