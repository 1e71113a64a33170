package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/debug"
	"github.com/rhuss/memberportal/pkg/observability"
	"github.com/rhuss/memberportal/pkg/transport"
)

// Gate decision labels for logs and metrics.
const (
	decisionPublic          = "public"
	decisionAllowed         = "allowed"
	decisionUnauthenticated = "unauthenticated"
	decisionInvalidToken    = "invalid_token"
	decisionForbidden       = "forbidden"
)

// Gate creates the request gate middleware. For every request it:
//
//  1. removes client-supplied X-User-* headers;
//  2. passes public paths through untouched;
//  3. authenticates with the chain, answering 401 (API) or redirecting to
//     the login page (pages) when the session is missing or invalid;
//  4. answers 403 (API) or redirects to the dashboard (pages) when a
//     non-admin requests an admin prefix;
//  5. stores the identity in the context and, on API paths, injects the
//     X-User-* headers before calling next.
//
// A nil policy selects DefaultRoutePolicy.
func Gate(chain *AuthChain, policy *RoutePolicy) func(http.Handler) http.Handler {
	if policy == nil {
		policy = DefaultRoutePolicy()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			StripHeaders(r.Header)

			p := cleanPath(r.URL.Path)
			if policy.IsPublic(r.Method, p) {
				observability.GateDecisionsTotal.WithLabelValues(decisionPublic).Inc()
				next.ServeHTTP(w, r)
				return
			}

			isAPI := IsAPI(p)
			result := chain.Authenticate(r.Context(), r)

			if result.Decision != Yes || result.Identity == nil || result.Identity.Subject == "" {
				if result.Decision == Yes {
					slog.Error("authenticator returned identity with empty subject")
				}
				if errors.Is(result.Err, ErrUnauthenticated) {
					record(decisionUnauthenticated, r, p)
					rejectUnauthenticated(w, r, policy, isAPI, "Authentication required")
					return
				}

				record(decisionInvalidToken, r, p, "error", result.Err)
				clearSessionCookie(w, r, policy.SessionCookie)
				rejectUnauthenticated(w, r, policy, isAPI, "Invalid or expired token")
				return
			}

			id := result.Identity
			if policy.IsAdmin(p) && !id.IsAdmin() {
				record(decisionForbidden, r, p, "subject", id.Subject, "role", id.Role)
				if isAPI {
					transport.WriteAPIError(w, api.NewAuthorizationError("Admin access required"))
					return
				}
				http.Redirect(w, r, policy.DashboardPath, http.StatusFound)
				return
			}

			record(decisionAllowed, r, p, "subject", id.Subject)
			if isAPI {
				InjectHeaders(r.Header, id)
			}
			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), id)))
		})
	}
}

func rejectUnauthenticated(w http.ResponseWriter, r *http.Request, policy *RoutePolicy, isAPI bool, message string) {
	if isAPI {
		transport.WriteAPIError(w, api.NewAuthenticationError(message))
		return
	}
	http.Redirect(w, r, LoginRedirect(policy.LoginPath, r.URL), http.StatusFound)
}

// LoginRedirect builds the login URL that returns to target afterwards.
func LoginRedirect(loginPath string, target *url.URL) string {
	return loginPath + "?redirect=" + url.QueryEscape(target.RequestURI())
}

// clearSessionCookie expires the session cookie if the request sent one.
func clearSessionCookie(w http.ResponseWriter, r *http.Request, name string) {
	if name == "" {
		return
	}
	if _, err := r.Cookie(name); err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

func record(decision string, r *http.Request, p string, args ...any) {
	observability.GateDecisionsTotal.WithLabelValues(decision).Inc()
	debug.Log("gate", "decision", append([]any{"decision", decision, "method", r.Method, "path", p}, args...)...)
}
