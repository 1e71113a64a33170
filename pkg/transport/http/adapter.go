package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/memberportal/pkg/account"
	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/auth/token"
	"github.com/rhuss/memberportal/pkg/observability"
	"github.com/rhuss/memberportal/pkg/storage"
	"github.com/rhuss/memberportal/pkg/transport"
)

// Response messages.
const (
	msgRegistered   = "Registration successful! Your account is pending admin approval."
	msgLoggedIn     = "Login successful"
	msgLoggedOut    = "Logged out successfully"
	msgApproved     = "User approved successfully"
	msgRejected     = "User rejected successfully"
	msgSuspended    = "User suspended successfully"
	msgAuthRequired = "Authentication required"
	msgNotFound     = "Not found"
)

const readinessTimeout = 2 * time.Second

// Adapter serves the member portal API over HTTP.
// It routes requests to the account service and serializes responses.
type Adapter struct {
	accounts *account.Service
	store    storage.AccountStore
	policy   *auth.RoutePolicy
	mux      *http.ServeMux
	config   Config
	logger   *slog.Logger
}

// Config holds configuration for the HTTP adapter.
type Config struct {
	MaxBodySize    int64
	Cookie         token.CookieOptions
	MetricsEnabled bool
	MetricsPath    string
	Logger         *slog.Logger
}

// DefaultConfig returns the default adapter configuration.
func DefaultConfig() Config {
	return Config{
		MaxBodySize:    1 << 20, // 1 MB
		Cookie:         token.CookieOptions{Name: token.DefaultCookieName, SameSite: http.SameSiteLaxMode},
		MetricsEnabled: true,
		MetricsPath:    "/metrics",
	}
}

// NewAdapter creates an HTTP adapter for the given account service. The
// store is only used for readiness checks.
func NewAdapter(accounts *account.Service, store storage.AccountStore, cfg Config) *Adapter {
	defaults := DefaultConfig()
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = defaults.MaxBodySize
	}
	if cfg.Cookie.Name == "" {
		cfg.Cookie.Name = defaults.Cookie.Name
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = defaults.MetricsPath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	policy := auth.DefaultRoutePolicy()
	policy.SessionCookie = cfg.Cookie.Name
	if cfg.MetricsEnabled && cfg.MetricsPath != defaults.MetricsPath {
		policy.PublicExact = append(policy.PublicExact, cfg.MetricsPath)
	}

	a := &Adapter{
		accounts: accounts,
		store:    store,
		policy:   policy,
		mux:      http.NewServeMux(),
		config:   cfg,
		logger:   cfg.Logger,
	}

	a.mux.HandleFunc("POST /api/auth/register", a.handleRegister)
	a.mux.HandleFunc("POST /api/auth/login", a.handleLogin)
	a.mux.HandleFunc("POST /api/auth/logout", a.handleLogout)
	a.mux.HandleFunc("GET /api/auth/me", a.handleMe)
	a.mux.HandleFunc("GET /api/admin/members/pending", a.handleListPending)
	a.mux.HandleFunc("POST /api/admin/members/{id}/decision", a.handleDecision)
	a.mux.HandleFunc("POST /api/admin/members/{id}/approve", a.handleDecision)
	a.mux.HandleFunc("POST /api/admin/members/{id}/suspend", a.handleSuspend)
	a.mux.HandleFunc("/api/", a.handleAPINotFound)

	a.mux.HandleFunc("GET /dashboard", a.handleDashboard)
	a.mux.HandleFunc("GET /admin/dashboard", a.handleDashboard)
	a.mux.HandleFunc("GET /admin", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/dashboard", http.StatusFound)
	})

	a.mux.HandleFunc("GET /healthz", a.handleHealthz)
	a.mux.HandleFunc("GET /readyz", a.handleReadyz)
	if cfg.MetricsEnabled {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}

	return a
}

// Handler returns the http.Handler for this adapter with the full
// middleware stack: request ID, panic recovery, access logging, security
// headers, metrics and finally the request gate.
func (a *Adapter) Handler() http.Handler {
	chain := token.NewChain(a.accounts.Tokens(), a.config.Cookie.Name)
	return transport.Chain(
		transport.RequestID(),
		transport.Recovery(a.logger),
		transport.Logging(a.logger),
		transport.SecurityHeaders(),
		observability.MetricsMiddleware,
		auth.Gate(chain, a.policy),
	)(a.mux)
}

// handleRegister handles POST /api/auth/register.
func (a *Adapter) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	result, err := a.accounts.Register(r.Context(), &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	transport.WriteSuccess(w, http.StatusCreated, msgRegistered, result)
}

// handleLogin handles POST /api/auth/login. The token is returned in the
// body and set as the session cookie.
func (a *Adapter) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	result, err := a.accounts.Login(r.Context(), &req, clientIP(r))
	if err != nil {
		a.writeError(w, err)
		return
	}

	http.SetCookie(w, token.SessionCookie(a.config.Cookie, result.Token, a.accounts.Tokens().TTL()))
	transport.WriteSuccess(w, http.StatusOK, msgLoggedIn, result)
}

// handleLogout handles POST /api/auth/logout.
func (a *Adapter) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, token.ClearCookie(a.config.Cookie))
	transport.WriteSuccess(w, http.StatusOK, msgLoggedOut, nil)
}

// handleMe handles GET /api/auth/me using the identity headers set by
// the gate.
func (a *Adapter) handleMe(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromHeaders(r.Header)
	if id == nil {
		transport.WriteAPIError(w, api.NewAuthenticationError(msgAuthRequired))
		return
	}

	acct, err := a.accounts.Me(r.Context(), id)
	if err != nil {
		a.writeError(w, err)
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "", userData{User: acct})
}

// handleListPending handles GET /api/admin/members/pending.
func (a *Adapter) handleListPending(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := api.ParsePageParams(q.Get("page"), q.Get("limit"))

	result, err := a.accounts.ListPending(r.Context(), page, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "", result)
}

// handleDecision handles POST /api/admin/members/{id}/decision.
func (a *Adapter) handleDecision(w http.ResponseWriter, r *http.Request) {
	var req api.DecisionRequest
	if !a.decode(w, r, &req, false) {
		return
	}

	acct, err := a.accounts.Decide(r.Context(), actor(r), r.PathValue("id"), &req)
	if err != nil {
		a.writeError(w, err)
		return
	}

	msg := msgApproved
	if req.Action == api.DecisionReject {
		msg = msgRejected
	}
	transport.WriteSuccess(w, http.StatusOK, msg, userData{User: acct})
}

// handleSuspend handles POST /api/admin/members/{id}/suspend. The body is
// optional.
func (a *Adapter) handleSuspend(w http.ResponseWriter, r *http.Request) {
	var req api.SuspendRequest
	if !a.decode(w, r, &req, true) {
		return
	}

	acct, err := a.accounts.Suspend(r.Context(), actor(r), r.PathValue("id"), &req)
	if err != nil {
		a.writeError(w, err)
		return
	}
	transport.WriteSuccess(w, http.StatusOK, msgSuspended, userData{User: acct})
}

func (a *Adapter) handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	transport.WriteAPIError(w, api.NewNotFoundError(msgNotFound))
}

type userData struct {
	User *api.Account `json:"user"`
}

// dashboardSummary is what the dashboard endpoints return in place of a
// rendered page.
type dashboardSummary struct {
	UserID  string   `json:"userId"`
	Email   string   `json:"email"`
	Role    api.Role `json:"role"`
	IsAdmin bool     `json:"isAdmin"`
}

// handleDashboard handles GET /dashboard and GET /admin/dashboard. The
// gate has already enforced the role for the admin variant.
func (a *Adapter) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFromContext(r.Context())
	if id == nil {
		transport.WriteAPIError(w, api.NewAuthenticationError(msgAuthRequired))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "", dashboardSummary{
		UserID:  id.Subject,
		Email:   id.Email,
		Role:    id.Role,
		IsAdmin: id.IsAdmin(),
	})
}

func (a *Adapter) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReadyz reports whether the account store is reachable.
func (a *Adapter) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	if err := a.store.HealthCheck(ctx); err != nil {
		a.logger.Warn("readiness check failed", "error", err)
		transport.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads a JSON body into v. It writes the error response itself and
// reports whether the handler should continue. With allowEmpty, a missing
// body leaves v at its zero value.
func (a *Adapter) decode(w http.ResponseWriter, r *http.Request, v any, allowEmpty bool) bool {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || mediaType != "application/json" {
			transport.WriteErrorResponse(w,
				api.NewValidationError("Content-Type must be application/json"),
				http.StatusUnsupportedMediaType,
			)
			return false
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.config.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			transport.WriteErrorResponse(w,
				api.NewValidationError(fmt.Sprintf("Request body too large (max %d bytes)", a.config.MaxBodySize)),
				http.StatusRequestEntityTooLarge,
			)
			return false
		}
		transport.WriteAPIError(w, api.NewValidationError("Invalid JSON body"))
		return false
	}
	return true
}

// writeError writes err as an error envelope. Anything that is not an
// APIError is logged and answered with a generic server error.
func (a *Adapter) writeError(w http.ResponseWriter, err error) {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		transport.WriteAPIError(w, apiErr)
		return
	}
	a.logger.Error("unhandled handler error", "error", err)
	transport.WriteAPIError(w, api.NewServerError("Internal server error"))
}

// actor returns the identity the gate stored for the request, falling
// back to the injected headers.
func actor(r *http.Request) *auth.Identity {
	if id := auth.IdentityFromContext(r.Context()); id != nil {
		return id
	}
	return auth.IdentityFromHeaders(r.Header)
}

// clientIP returns the host part of the connection's remote address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
