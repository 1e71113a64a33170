package token

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// fakeClock is a settable time source.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func newTestService(t *testing.T, clock *fakeClock) *Service {
	t.Helper()
	cfg := Config{Secret: testSecret, Issuer: "memberportal"}
	if clock != nil {
		cfg.Now = clock.Now
	}
	svc, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

// signRaw signs arbitrary claims with the given method and key.
func signRaw(t *testing.T, method jwtlib.SigningMethod, key any, claims jwtlib.Claims) string {
	t.Helper()
	s, err := jwtlib.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}
	return s
}

// swapSignature returns tok with the signature segment of other.
func swapSignature(tok, other string) string {
	return tok[:strings.LastIndex(tok, ".")] + other[strings.LastIndex(other, "."):]
}

func TestNew_MissingSecret(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("New without secret err = %v, want ErrMissingSecret", err)
	}
}

func TestNew_DefaultTTL(t *testing.T) {
	svc := newTestService(t, nil)
	if svc.TTL() != 7*24*time.Hour {
		t.Errorf("TTL = %v, want 168h", svc.TTL())
	}
}

func TestIssueVerifyRoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock)

	tok, exp, err := svc.Issue("acc-1", "a@example.com", api.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if want := clock.now.Add(DefaultTTL); !exp.Equal(want) {
		t.Errorf("expiresAt = %v, want %v", exp, want)
	}

	id, err := svc.Verify(tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.Subject != "acc-1" || id.Email != "a@example.com" || id.Role != api.RoleAdmin {
		t.Errorf("identity = %+v", id)
	}
	if !id.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", id.ExpiresAt, exp)
	}
}

func TestIssue_EmptyAccountID(t *testing.T) {
	svc := newTestService(t, nil)
	if _, _, err := svc.Issue("", "a@example.com", api.RoleMember); err == nil {
		t.Error("Issue with empty account id succeeded")
	}
}

func TestIssue_UnknownRole(t *testing.T) {
	svc := newTestService(t, nil)
	for _, role := range []api.Role{"", "OWNER", "member"} {
		if _, _, err := svc.Issue("acc-1", "a@example.com", role); err == nil {
			t.Errorf("Issue with role %q succeeded", role)
		}
	}
}

func TestVerify_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc := newTestService(t, clock)

	tok, _, err := svc.Issue("acc-1", "a@example.com", api.RoleMember)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	clock.now = clock.now.Add(DefaultTTL - time.Minute)
	if _, err := svc.Verify(tok); err != nil {
		t.Fatalf("Verify just before expiry: %v", err)
	}

	clock.now = clock.now.Add(2 * time.Minute)
	_, err = svc.Verify(tok)
	if !errors.Is(err, ErrTokenExpired) {
		t.Errorf("Verify after expiry err = %v, want ErrTokenExpired", err)
	}
}

func TestVerify_Rejects(t *testing.T) {
	svc := newTestService(t, nil)
	now := time.Now()
	valid := Claims{
		UserID: "acc-1",
		Email:  "a@example.com",
		Role:   api.RoleMember,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "memberportal",
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Hour)),
		},
	}
	good := signRaw(t, jwtlib.SigningMethodHS256, testSecret, valid)

	noExp := valid
	noExp.ExpiresAt = nil

	wrongIssuer := valid
	wrongIssuer.Issuer = "someone-else"

	noUser := valid
	noUser.UserID = ""

	badRole := valid
	badRole.Role = "ROOT"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"random text", "hello world"},
		{"tampered signature", swapSignature(good, signRaw(t, jwtlib.SigningMethodHS256, testSecret, wrongIssuer))},
		{"truncated", good[:len(good)/2]},
		{"wrong secret", signRaw(t, jwtlib.SigningMethodHS256, []byte("another-secret-another-secret-!!"), valid)},
		{"wrong algorithm", signRaw(t, jwtlib.SigningMethodHS512, testSecret, valid)},
		{"alg none", signRaw(t, jwtlib.SigningMethodNone, jwtlib.UnsafeAllowNoneSignatureType, valid)},
		{"missing exp", signRaw(t, jwtlib.SigningMethodHS256, testSecret, noExp)},
		{"wrong issuer", signRaw(t, jwtlib.SigningMethodHS256, testSecret, wrongIssuer)},
		{"missing userId", signRaw(t, jwtlib.SigningMethodHS256, testSecret, noUser)},
		{"unknown role", signRaw(t, jwtlib.SigningMethodHS256, testSecret, badRole)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := svc.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify err = %v, want ErrInvalidToken", err)
			}
			if id != nil {
				t.Errorf("identity = %+v, want nil", id)
			}
		})
	}

	if _, err := svc.Verify(good); err != nil {
		t.Errorf("control token rejected: %v", err)
	}
}

func TestCookieAuthenticator(t *testing.T) {
	svc := newTestService(t, nil)
	tok, _, _ := svc.Issue("acc-1", "a@example.com", api.RoleMember)
	authn := NewCookieAuthenticator(svc, "")

	tests := []struct {
		name   string
		cookie *http.Cookie
		want   auth.AuthDecision
	}{
		{"no cookie", nil, auth.Abstain},
		{"empty cookie", &http.Cookie{Name: "token", Value: ""}, auth.Abstain},
		{"other cookie", &http.Cookie{Name: "session", Value: tok}, auth.Abstain},
		{"invalid", &http.Cookie{Name: "token", Value: "bogus"}, auth.No},
		{"valid", &http.Cookie{Name: "token", Value: tok}, auth.Yes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/dashboard", nil)
			if tt.cookie != nil {
				r.AddCookie(tt.cookie)
			}
			res := authn.Authenticate(context.Background(), r)
			if res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v (err %v)", res.Decision, tt.want, res.Err)
			}
			if tt.want == auth.Yes && res.Identity.Subject != "acc-1" {
				t.Errorf("Subject = %q, want acc-1", res.Identity.Subject)
			}
		})
	}
}

func TestBearerAuthenticator(t *testing.T) {
	svc := newTestService(t, nil)
	tok, _, _ := svc.Issue("acc-2", "b@example.com", api.RoleMember)
	authn := NewBearerAuthenticator(svc)

	tests := []struct {
		name   string
		header string
		want   auth.AuthDecision
	}{
		{"no header", "", auth.Abstain},
		{"basic scheme", "Basic dXNlcjpwYXNz", auth.Abstain},
		{"bearer without space", "Bearer", auth.Abstain},
		{"empty bearer", "Bearer ", auth.No},
		{"invalid bearer", "Bearer bogus", auth.No},
		{"valid bearer", "Bearer " + tok, auth.Yes},
		{"lowercase scheme", "bearer " + tok, auth.Yes},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/auth/me", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			res := authn.Authenticate(context.Background(), r)
			if res.Decision != tt.want {
				t.Errorf("Decision = %v, want %v (err %v)", res.Decision, tt.want, res.Err)
			}
		})
	}
}

func TestChain_CookieTakesPrecedence(t *testing.T) {
	svc := newTestService(t, nil)
	memberTok, _, _ := svc.Issue("member-1", "m@example.com", api.RoleMember)
	adminTok, _, _ := svc.Issue("admin-1", "a@example.com", api.RoleAdmin)
	chain := NewChain(svc, "token")

	t.Run("cookie wins over header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: memberTok})
		r.Header.Set("Authorization", "Bearer "+adminTok)
		res := chain.Authenticate(context.Background(), r)
		if res.Decision != auth.Yes || res.Identity.Subject != "member-1" {
			t.Errorf("result = %+v, want member-1", res)
		}
	})

	t.Run("invalid cookie not rescued by header", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/auth/me", nil)
		r.AddCookie(&http.Cookie{Name: "token", Value: "bogus"})
		r.Header.Set("Authorization", "Bearer "+adminTok)
		res := chain.Authenticate(context.Background(), r)
		if res.Decision != auth.No || !errors.Is(res.Err, ErrInvalidToken) {
			t.Errorf("result = %+v, want No/ErrInvalidToken", res)
		}
	})

	t.Run("header used without cookie", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/auth/me", nil)
		r.Header.Set("Authorization", "Bearer "+adminTok)
		res := chain.Authenticate(context.Background(), r)
		if res.Decision != auth.Yes || res.Identity.Subject != "admin-1" {
			t.Errorf("result = %+v, want admin-1", res)
		}
	})

	t.Run("nothing", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/auth/me", nil)
		res := chain.Authenticate(context.Background(), r)
		if res.Decision != auth.No || !errors.Is(res.Err, auth.ErrUnauthenticated) {
			t.Errorf("result = %+v, want No/ErrUnauthenticated", res)
		}
	})
}

func TestSessionCookie(t *testing.T) {
	opts := CookieOptions{Secure: true, SameSite: http.SameSiteStrictMode}
	c := SessionCookie(opts, "abc", DefaultTTL)

	if c.Name != "token" || c.Value != "abc" || c.Path != "/" {
		t.Errorf("cookie = %+v", c)
	}
	if c.MaxAge != 7*24*60*60 {
		t.Errorf("MaxAge = %d, want %d", c.MaxAge, 7*24*60*60)
	}
	if !c.HttpOnly || !c.Secure || c.SameSite != http.SameSiteStrictMode {
		t.Errorf("attributes = %+v", c)
	}

	cleared := ClearCookie(opts)
	if cleared.MaxAge >= 0 || cleared.Value != "" || cleared.Path != "/" {
		t.Errorf("cleared cookie = %+v", cleared)
	}
	if !strings.Contains(cleared.String(), "Max-Age=0") {
		t.Errorf("cleared cookie header = %q, want Max-Age=0", cleared.String())
	}
}

func TestParseSameSite(t *testing.T) {
	tests := []struct {
		in      string
		want    http.SameSite
		wantErr bool
	}{
		{"", http.SameSiteLaxMode, false},
		{"Lax", http.SameSiteLaxMode, false},
		{"strict", http.SameSiteStrictMode, false},
		{"none", http.SameSiteNoneMode, false},
		{"sometimes", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseSameSite(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseSameSite(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Errorf("ParseSameSite(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
