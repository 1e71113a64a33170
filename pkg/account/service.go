// Package account implements the account lifecycle of the member portal:
// registration, login, the current-account view, administrator approval
// decisions, suspension and administrator bootstrap.
//
// Operations return *api.APIError values for every failure a client may
// see. Storage and hashing failures are logged and surface as a generic
// server error.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth"
	"github.com/rhuss/memberportal/pkg/auth/password"
	"github.com/rhuss/memberportal/pkg/auth/token"
	"github.com/rhuss/memberportal/pkg/observability"
	"github.com/rhuss/memberportal/pkg/storage"
)

// Client-facing messages.
const (
	msgEmailTaken         = "Email already registered"
	msgInvalidCredentials = "Invalid email or password"
	msgTooManyAttempts    = "Too many login attempts. Please try again later."
	msgPending            = "Your account is pending admin approval. Please wait for approval."
	msgRejected           = "Your account has been rejected. Please contact admin."
	msgSuspended          = "Your account has been suspended. Please contact admin."
	msgUserNotFound       = "User not found"
	msgNotActive          = "Account is not active"
	msgNotPending         = "User is not pending approval"
	msgOnlyActive         = "Only active accounts can be suspended"
	msgSuperAdmin         = "Super admin accounts cannot be suspended"
	msgSelfSuspend        = "You cannot suspend your own account"
	msgInternal           = "Internal server error"
)

// membershipAttempts bounds retries when a generated membership number
// collides with an existing one.
const membershipAttempts = 3

// Config holds the dependencies of a Service.
type Config struct {
	Store  storage.AccountStore
	Hasher *password.Hasher
	Tokens *token.Service

	// Limiter throttles login attempts. Nil disables throttling.
	Limiter auth.RateLimiter

	// MembershipPrefix prefixes generated membership numbers. Default: "AGR".
	MembershipPrefix string

	// Now returns the current time. Default: time.Now.
	Now func() time.Time

	// NewID generates account IDs. Default: random UUIDs.
	NewID func() string

	// Logger receives audit and error records. Default: slog.Default().
	Logger *slog.Logger
}

// Service implements the account operations.
type Service struct {
	store   storage.AccountStore
	hasher  *password.Hasher
	tokens  *token.Service
	limiter auth.RateLimiter
	prefix  string
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// New creates a Service. Store, Hasher and Tokens are required.
func New(cfg Config) (*Service, error) {
	var errs []error
	if cfg.Store == nil {
		errs = append(errs, errors.New("account service: store is required"))
	}
	if cfg.Hasher == nil {
		errs = append(errs, errors.New("account service: hasher is required"))
	}
	if cfg.Tokens == nil {
		errs = append(errs, errors.New("account service: token service is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Service{
		store:   cfg.Store,
		hasher:  cfg.Hasher,
		tokens:  cfg.Tokens,
		limiter: cfg.Limiter,
		prefix:  cfg.MembershipPrefix,
		now:     cfg.Now,
		newID:   cfg.NewID,
		logger:  cfg.Logger,
	}
	if s.prefix == "" {
		s.prefix = api.DefaultMembershipPrefix
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Tokens returns the token service, used by handlers to size cookies.
func (s *Service) Tokens() *token.Service {
	return s.tokens
}

// RegisterResult is returned by a successful registration.
type RegisterResult struct {
	UserID       string            `json:"userId"`
	MembershipNo string            `json:"membershipNo"`
	Status       api.AccountStatus `json:"status"`
}

// Register validates the request and creates a pending member account
// with its profile. A duplicate email is detected only by the store's
// uniqueness constraint.
func (s *Service) Register(ctx context.Context, req *api.RegisterRequest) (*RegisterResult, error) {
	if apiErr := req.Validate(); apiErr != nil {
		observability.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return nil, apiErr
	}
	if apiErr := api.ValidateStatusTransition("", api.AccountStatusPending); apiErr != nil {
		return nil, apiErr
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.internal("hashing password", err)
	}

	now := s.now().UTC()
	acct := &api.Account{
		ID:           s.newID(),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         api.RoleMember,
		Status:       api.AccountStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	for attempt := 1; ; attempt++ {
		acct.Profile = req.Profile(api.NewMembershipNo(s.prefix, now))
		err = s.store.CreateAccount(ctx, acct)
		if err == nil {
			break
		}
		if !errors.Is(err, storage.ErrConflict) {
			observability.RegistrationsTotal.WithLabelValues("error").Inc()
			return nil, s.internal("creating account", err)
		}

		// The conflict is either the email or, rarely, the membership number.
		if _, lookupErr := s.store.GetAccountByEmail(ctx, req.Email); lookupErr == nil || attempt >= membershipAttempts {
			observability.RegistrationsTotal.WithLabelValues("duplicate").Inc()
			return nil, api.NewConflictError(msgEmailTaken)
		}
	}

	observability.RegistrationsTotal.WithLabelValues("created").Inc()
	s.logger.Info("account registered",
		"account_id", acct.ID,
		"membership_no", acct.Profile.MembershipNo,
	)

	return &RegisterResult{
		UserID:       acct.ID,
		MembershipNo: acct.Profile.MembershipNo,
		Status:       acct.Status,
	}, nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	User      *api.Account `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"-"`
}

// Login authenticates by email and password and issues a session token.
// clientIP keys the per-address rate limit.
//
// Unknown emails and wrong passwords are indistinguishable: both take a
// bcrypt comparison and both answer "Invalid email or password". Status
// checks run only after the password matched.
func (s *Service) Login(ctx context.Context, req *api.LoginRequest, clientIP string) (*LoginResult, error) {
	if apiErr := req.Validate(); apiErr != nil {
		observability.LoginAttemptsTotal.WithLabelValues("invalid").Inc()
		return nil, apiErr
	}

	if err := s.throttle(ctx, clientIP, req.Email); err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	acct, err := s.store.GetAccountByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
			return nil, s.internal("looking up account", err)
		}
		s.hasher.VerifyMissing(req.Password)
		observability.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, api.NewAuthenticationError(msgInvalidCredentials)
	}

	if !s.hasher.Verify(req.Password, acct.PasswordHash) {
		observability.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, api.NewAuthenticationError(msgInvalidCredentials)
	}

	switch acct.Status {
	case api.AccountStatusActive:
	case api.AccountStatusPending:
		observability.LoginAttemptsTotal.WithLabelValues("pending").Inc()
		return nil, api.NewAccountStateError(msgPending)
	case api.AccountStatusRejected:
		observability.LoginAttemptsTotal.WithLabelValues("rejected").Inc()
		return nil, api.NewAccountStateError(msgRejected)
	case api.AccountStatusSuspended:
		observability.LoginAttemptsTotal.WithLabelValues("suspended").Inc()
		return nil, api.NewAccountStateError(msgSuspended)
	default:
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, s.internal("checking account status", fmt.Errorf("unknown status %q", acct.Status))
	}

	now := s.now().UTC()
	if err := s.store.RecordLogin(ctx, acct.ID, now); err != nil {
		s.logger.Warn("recording last login failed", "account_id", acct.ID, "error", err)
	} else {
		acct.LastLogin = &now
	}

	tok, expiresAt, err := s.tokens.Issue(acct.ID, acct.Email, acct.Role)
	if err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, s.internal("issuing token", err)
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.logger.Info("login succeeded", "account_id", acct.ID, "role", acct.Role)

	return &LoginResult{User: acct, Token: tok, ExpiresAt: expiresAt}, nil
}

// throttle applies the per-address and per-email login limits.
func (s *Service) throttle(ctx context.Context, clientIP, email string) error {
	if s.limiter == nil {
		return nil
	}
	keys := []struct{ scope, key string }{
		{"login_ip", "login:ip:" + clientIP},
		{"login_email", "login:email:" + email},
	}
	for _, k := range keys {
		if k.scope == "login_ip" && clientIP == "" {
			continue
		}
		if err := s.limiter.Allow(ctx, k.key); err != nil {
			if errors.Is(err, auth.ErrTooManyRequests) {
				observability.RateLimitRejectedTotal.WithLabelValues(k.scope).Inc()
				s.logger.Warn("login rate limit exceeded", "scope", k.scope, "remote_ip", clientIP)
				return api.NewTooManyRequestsError(msgTooManyAttempts)
			}
			s.logger.Warn("rate limiter error, allowing attempt", "error", err)
		}
	}
	return nil
}

// Me returns the caller's own account. The token may be stale, so the
// stored status is checked again.
func (s *Service) Me(ctx context.Context, id *auth.Identity) (*api.Account, error) {
	if id == nil || id.Subject == "" {
		return nil, api.NewAuthenticationError("Authentication required")
	}
	acct, err := s.getAccount(ctx, id.Subject)
	if err != nil {
		return nil, err
	}
	if acct.Status != api.AccountStatusActive {
		return nil, api.NewAccountStateError(msgNotActive)
	}
	return acct, nil
}

// ListPending returns one page of pending accounts, newest first.
func (s *Service) ListPending(ctx context.Context, page, limit int) (*api.AccountPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = api.DefaultPageLimit
	}
	if limit > api.MaxPageLimit {
		limit = api.MaxPageLimit
	}
	// Keeps (page-1)*limit from overflowing.
	page = min(page, math.MaxInt/limit)

	accounts, total, err := s.store.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{
		Offset: (page - 1) * limit,
		Limit:  limit,
	})
	if err != nil {
		return nil, s.internal("listing pending accounts", err)
	}
	if accounts == nil {
		accounts = []*api.Account{}
	}

	return &api.AccountPage{
		Members:    accounts,
		Pagination: api.NewPagination(page, limit, total),
	}, nil
}

// Decide approves or rejects a pending account. A concurrent decision on
// the same account loses through the store's conditional update and is
// answered like any other non-pending account.
func (s *Service) Decide(ctx context.Context, actor *auth.Identity, targetID string, req *api.DecisionRequest) (*api.Account, error) {
	if apiErr := req.Validate(); apiErr != nil {
		return nil, apiErr
	}

	target, err := s.getAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status != api.AccountStatusPending {
		return nil, api.NewValidationError(msgNotPending)
	}

	to := req.TargetStatus()
	if apiErr := api.ValidateStatusTransition(target.Status, to); apiErr != nil {
		return nil, apiErr
	}

	updated, err := s.store.UpdateStatus(ctx, targetID, storage.StatusChange{
		From:   api.AccountStatusPending,
		To:     to,
		Verify: req.Action == api.DecisionApprove,
		At:     s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrStatusChanged):
			return nil, api.NewValidationError(msgNotPending)
		case errors.Is(err, storage.ErrNotFound):
			return nil, api.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internal("updating account status", err)
	}

	s.audit(actor, updated, string(req.Action), req.Reason)
	return updated, nil
}

// Suspend moves an active account to suspended. Super administrators and
// the caller's own account cannot be suspended.
func (s *Service) Suspend(ctx context.Context, actor *auth.Identity, targetID string, req *api.SuspendRequest) (*api.Account, error) {
	target, err := s.getAccount(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.Role == api.RoleSuperAdmin {
		return nil, api.NewAuthorizationError(msgSuperAdmin)
	}
	if actor != nil && actor.Subject == target.ID {
		return nil, api.NewValidationError(msgSelfSuspend)
	}
	if target.Status != api.AccountStatusActive {
		return nil, api.NewValidationError(msgOnlyActive)
	}
	if apiErr := api.ValidateStatusTransition(target.Status, api.AccountStatusSuspended); apiErr != nil {
		return nil, apiErr
	}

	updated, err := s.store.UpdateStatus(ctx, targetID, storage.StatusChange{
		From: api.AccountStatusActive,
		To:   api.AccountStatusSuspended,
		At:   s.now().UTC(),
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrStatusChanged):
			return nil, api.NewValidationError(msgOnlyActive)
		case errors.Is(err, storage.ErrNotFound):
			return nil, api.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internal("suspending account", err)
	}

	reason := ""
	if req != nil {
		reason = req.Reason
	}
	s.audit(actor, updated, "suspend", reason)
	return updated, nil
}

func (s *Service) getAccount(ctx context.Context, id string) (*api.Account, error) {
	acct, err := s.store.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, api.NewNotFoundError(msgUserNotFound)
		}
		return nil, s.internal("loading account", err)
	}
	return acct, nil
}

func (s *Service) audit(actor *auth.Identity, target *api.Account, action, reason string) {
	observability.AccountDecisionsTotal.WithLabelValues(action).Inc()

	actorID := ""
	if actor != nil {
		actorID = actor.Subject
	}
	s.logger.Info("account decision",
		"actor_id", actorID,
		"target_id", target.ID,
		"action", action,
		"reason", reason,
		"status", target.Status,
	)
}

// internal logs err and returns the generic server error.
func (s *Service) internal(op string, err error) *api.APIError {
	s.logger.Error("account operation failed", "op", op, "error", err)
	return api.NewServerError(msgInternal)
}
