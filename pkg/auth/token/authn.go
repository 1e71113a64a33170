package token

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/debug"
)

// DefaultCookieName is the session cookie name.
const DefaultCookieName = "token"

// CookieAuthenticator reads the session token from a cookie.
//
// Decision outcomes:
//   - Abstain: no cookie, or an empty one
//   - No: cookie present but the token is invalid or expired
//   - Yes: valid token
type CookieAuthenticator struct {
	Service *Service
	Name    string
}

// NewCookieAuthenticator creates a cookie authenticator. An empty name
// selects DefaultCookieName.
func NewCookieAuthenticator(svc *Service, name string) *CookieAuthenticator {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieAuthenticator{Service: svc, Name: name}
}

// Authenticate implements auth.Authenticator.
func (a *CookieAuthenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	c, err := r.Cookie(a.Name)
	if err != nil || c.Value == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	return verify(a.Service, c.Value, "cookie")
}

// BearerAuthenticator reads the session token from an
// "Authorization: Bearer" header.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: bearer token present but invalid or expired
//   - Yes: valid token
type BearerAuthenticator struct {
	Service *Service
}

// NewBearerAuthenticator creates a bearer authenticator.
func NewBearerAuthenticator(svc *Service) *BearerAuthenticator {
	return &BearerAuthenticator{Service: svc}
}

// Authenticate implements auth.Authenticator.
func (a *BearerAuthenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	scheme, tokenStr, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("%w: empty bearer token", ErrInvalidToken),
		}
	}
	return verify(a.Service, tokenStr, "bearer")
}

func verify(svc *Service, tokenStr, source string) auth.AuthResult {
	id, err := svc.Verify(tokenStr)
	if err != nil {
		debug.Log("auth", "token rejected", "source", source, "error", err)
		return auth.AuthResult{Decision: auth.No, Err: err}
	}
	return auth.AuthResult{Decision: auth.Yes, Identity: id}
}

// NewChain builds the gate's authentication chain: the session cookie
// first, then the bearer header. A present but invalid cookie stops the
// chain, so a bearer header never rescues it.
func NewChain(svc *Service, cookieName string) *auth.AuthChain {
	return auth.NewAuthChain(
		NewCookieAuthenticator(svc, cookieName),
		NewBearerAuthenticator(svc),
	)
}

// CookieOptions controls the attributes of the session cookie.
type CookieOptions struct {
	Name     string
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return DefaultCookieName
	}
	return o.Name
}

// SessionCookie returns the HttpOnly cookie carrying a freshly issued token.
func SessionCookie(o CookieOptions, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     o.name(),
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// ClearCookie returns a cookie that removes the session cookie.
func ClearCookie(o CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     o.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: o.SameSite,
	}
}

// ParseSameSite converts "lax", "strict" or "none" to an http.SameSite.
// An empty string selects lax.
func ParseSameSite(s string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	}
	return 0, fmt.Errorf("unknown same_site mode %q", s)
}
