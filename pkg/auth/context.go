package auth

import (
	"context"
	"net/http"

	"github.com/rhuss/memberportal/pkg/api"
)

// identityKey is a private type for the identity context key.
type identityKey struct{}

// SetIdentity stores the authenticated identity in the context.
func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity.
// Returns nil on public routes, where the gate does not authenticate.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// Identity headers set by the gate on authenticated API requests.
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

var identityHeaders = []string{HeaderUserID, HeaderUserEmail, HeaderUserRole}

// InjectHeaders writes the identity into request headers, replacing any
// existing values.
func InjectHeaders(h http.Header, id *Identity) {
	h.Set(HeaderUserID, id.Subject)
	h.Set(HeaderUserEmail, id.Email)
	h.Set(HeaderUserRole, string(id.Role))
}

// StripHeaders removes identity headers. The gate calls it on every
// request so clients cannot supply their own.
func StripHeaders(h http.Header) {
	for _, name := range identityHeaders {
		h.Del(name)
	}
}

// IdentityFromHeaders reads the identity injected by the gate. Handlers
// behind the gate treat it as already verified. Returns nil when the
// subject header is absent.
func IdentityFromHeaders(h http.Header) *Identity {
	subject := h.Get(HeaderUserID)
	if subject == "" {
		return nil
	}
	return &Identity{
		Subject: subject,
		Email:   h.Get(HeaderUserEmail),
		Role:    api.Role(h.Get(HeaderUserRole)),
	}
}
