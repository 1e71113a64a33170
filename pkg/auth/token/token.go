// Package token issues and verifies stateless HS256 session tokens and
// provides the cookie and bearer authenticators that read them.
//
// A token records the account ID, email and role at issuance time and
// expires after a fixed TTL. There is no server-side revocation: a token
// stays valid until it expires even if the account is later suspended.
package token

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth"
)

// DefaultTTL is the session lifetime: 7 days.
const DefaultTTL = 7 * 24 * time.Hour

// MinSecretLength is the shortest signing secret accepted in production.
const MinSecretLength = 32

// Sentinel errors. Verify wraps every failure in one of the first two.
var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrMissingSecret = errors.New("token signing secret is not configured")
)

// Config holds the token service configuration.
type Config struct {
	// Secret is the HMAC signing key (required).
	Secret []byte

	// TTL is the token lifetime. Default: DefaultTTL.
	TTL time.Duration

	// Issuer is written to and checked against the iss claim when set.
	Issuer string

	// Now returns the current time. Default: time.Now.
	Now func() time.Time
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Claims is the token payload.
type Claims struct {
	UserID string   `json:"userId"`
	Email  string   `json:"email"`
	Role   api.Role `json:"role"`
	jwtlib.RegisteredClaims
}

// Service issues and verifies session tokens.
type Service struct {
	config Config
}

// New creates a token service. It fails with ErrMissingSecret when no
// secret is configured.
func New(cfg Config) (*Service, error) {
	if len(cfg.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	cfg.applyDefaults()
	cfg.Secret = append([]byte(nil), cfg.Secret...)
	return &Service{config: cfg}, nil
}

// TTL returns the token lifetime.
func (s *Service) TTL() time.Duration {
	return s.config.TTL
}

// Issue signs a token for the account. It returns the token and its expiry.
func (s *Service) Issue(accountID, email string, role api.Role) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, fmt.Errorf("issuing token: empty account id")
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("issuing token: unknown role %q", role)
	}
	now := s.config.Now()
	expiresAt := now.Add(s.config.TTL)

	claims := Claims{
		UserID: accountID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   accountID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expiresAt.Truncate(time.Second), nil
}

// Verify checks the token signature, algorithm, expiry and issuer and
// returns the identity it carries. Any defect yields an error wrapping
// ErrInvalidToken or ErrTokenExpired; Verify never panics on malformed
// input.
func (s *Service) Verify(tokenStr string) (*auth.Identity, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidToken)
	}

	claims := &Claims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		return s.config.Secret, nil
	}, s.parserOptions()...)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing userId claim", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	id := &auth.Identity{
		Subject: claims.UserID,
		Email:   claims.Email,
		Role:    claims.Role,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}

// parserOptions builds JWT parser options based on the configuration.
func (s *Service) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.config.Now),
	}
	if s.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(s.config.Issuer))
	}
	return opts
}
