package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rhuss/memberportal/pkg/api"
)

// AuthDecision represents the three possible outcomes of authentication.
type AuthDecision int

const (
	// Yes means credentials are valid. The chain stops and the identity is used.
	Yes AuthDecision = iota

	// No means credentials are present but invalid. The chain stops and the
	// request is rejected.
	No

	// Abstain means this authenticator found no credentials it handles.
	// The chain continues to the next authenticator.
	Abstain
)

// String returns a lowercase label for logs and metrics.
func (d AuthDecision) String() string {
	switch d {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "abstain"
	}
}

// AuthResult carries the outcome of an authentication attempt.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity // populated only when Decision == Yes
	Err      error     // populated only when Decision == No
}

// Identity is the verified caller, as recorded in a session token at
// issuance time. It can be stale relative to the stored account.
type Identity struct {
	// Subject is the account ID (required, non-empty).
	Subject string

	Email string
	Role  api.Role

	// ExpiresAt is the token expiry; zero when unknown.
	ExpiresAt time.Time
}

// IsAdmin reports whether the identity may reach admin-prefixed routes.
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role.IsAdmin()
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// Sentinel errors.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator
}

// NewAuthChain creates a chain from the given authenticators.
func NewAuthChain(authenticators ...Authenticator) *AuthChain {
	return &AuthChain{Authenticators: authenticators}
}

// Authenticate runs the chain. Stops on the first Yes or No. If every
// authenticator abstains, the request carries no credentials and the
// result is No with ErrUnauthenticated.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	return AuthResult{
		Decision: No,
		Err:      ErrUnauthenticated,
	}
}
