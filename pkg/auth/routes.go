package auth

import (
	"net/http"
	"path"
	"strings"
)

// RoutePolicy classifies request paths for the gate. Prefix entries are
// segment-aware: "/news" matches "/news" and "/news/42" but not
// "/newsletter".
type RoutePolicy struct {
	// PublicExact lists pages that are public only at that exact path.
	PublicExact []string

	// PublicPrefixes lists page, asset and operational prefixes that never
	// need a session.
	PublicPrefixes []string

	// PublicAPI lists API prefixes open for every method.
	PublicAPI []string

	// PublicReadAPI lists API prefixes open for GET and HEAD only.
	PublicReadAPI []string

	// AdminPrefixes lists prefixes that require an admin role.
	AdminPrefixes []string

	// LoginPath is where unauthenticated page requests are redirected.
	LoginPath string

	// DashboardPath is where non-admins are sent from admin pages.
	DashboardPath string

	// SessionCookie is the cookie cleared when it holds an invalid token.
	SessionCookie string
}

// DefaultRoutePolicy returns the portal's route policy.
func DefaultRoutePolicy() *RoutePolicy {
	return &RoutePolicy{
		PublicExact: []string{"/"},
		PublicPrefixes: []string{
			"/about", "/contact", "/news", "/events", "/members", "/gallery",
			"/login", "/register",
			"/_next", "/static", "/favicon.ico",
			"/healthz", "/readyz", "/metrics",
		},
		PublicAPI:     []string{"/api/auth/login", "/api/auth/register", "/api/auth/logout"},
		PublicReadAPI: []string{"/api/news", "/api/events", "/api/members", "/api/gallery"},
		AdminPrefixes: []string{"/admin", "/api/admin"},
		LoginPath:     "/login",
		DashboardPath: "/dashboard",
		SessionCookie: "token",
	}
}

// IsAPI reports whether p is an API path.
func IsAPI(p string) bool {
	return hasPathPrefix(p, "/api")
}

// IsPublic reports whether a request with the given method and path may
// pass the gate without a session.
func (rp *RoutePolicy) IsPublic(method, p string) bool {
	if IsAPI(p) {
		if matchAny(p, rp.PublicAPI) {
			return true
		}
		if method == http.MethodGet || method == http.MethodHead {
			return matchAny(p, rp.PublicReadAPI)
		}
		return false
	}
	for _, exact := range rp.PublicExact {
		if p == exact {
			return true
		}
	}
	return matchAny(p, rp.PublicPrefixes)
}

// IsAdmin reports whether p requires an admin role.
func (rp *RoutePolicy) IsAdmin(p string) bool {
	return matchAny(p, rp.AdminPrefixes)
}

func matchAny(p string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if hasPathPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func hasPathPrefix(p, prefix string) bool {
	if p == prefix {
		return true
	}
	return strings.HasPrefix(p, strings.TrimSuffix(prefix, "/")+"/")
}

// cleanPath resolves dot segments so "/api/auth/login/../../admin" is
// classified as "/api/admin".
func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}
