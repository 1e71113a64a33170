package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/rhuss/memberportal/pkg/api"
)

// mockAuthn is a test authenticator with configurable behavior.
type mockAuthn struct {
	result AuthResult
	calls  int
}

func (m *mockAuthn) Authenticate(_ context.Context, _ *http.Request) AuthResult {
	m.calls++
	return m.result
}

var _ Authenticator = (*mockAuthn)(nil)

func TestAuthChain_FirstYesStops(t *testing.T) {
	second := &mockAuthn{result: AuthResult{Decision: No, Err: ErrUnauthenticated}}
	chain := NewAuthChain(
		&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "alice"}}},
		second,
	)

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Errorf("Decision = %v, want Yes", result.Decision)
	}
	if result.Identity.Subject != "alice" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "alice")
	}
	if second.calls != 0 {
		t.Errorf("second authenticator called %d times, want 0", second.calls)
	}
}

func TestAuthChain_FirstNoStops(t *testing.T) {
	invalid := errors.New("bad signature")
	chain := NewAuthChain(
		&mockAuthn{result: AuthResult{Decision: No, Err: invalid}},
		&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "bob"}}},
	)

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No {
		t.Errorf("Decision = %v, want No", result.Decision)
	}
	if !errors.Is(result.Err, invalid) {
		t.Errorf("Err = %v, want %v", result.Err, invalid)
	}
}

func TestAuthChain_AllAbstain(t *testing.T) {
	chain := NewAuthChain(
		&mockAuthn{result: AuthResult{Decision: Abstain}},
		&mockAuthn{result: AuthResult{Decision: Abstain}},
	)

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No {
		t.Errorf("Decision = %v, want No", result.Decision)
	}
	if !errors.Is(result.Err, ErrUnauthenticated) {
		t.Errorf("Err = %v, want ErrUnauthenticated", result.Err)
	}
}

func TestAuthChain_Empty(t *testing.T) {
	chain := NewAuthChain()

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != No || !errors.Is(result.Err, ErrUnauthenticated) {
		t.Errorf("result = %+v, want No/ErrUnauthenticated", result)
	}
}

func TestAuthChain_AbstainThenYes(t *testing.T) {
	chain := NewAuthChain(
		&mockAuthn{result: AuthResult{Decision: Abstain}},
		&mockAuthn{result: AuthResult{Decision: Yes, Identity: &Identity{Subject: "bearer-user"}}},
	)

	r, _ := http.NewRequest("GET", "/", nil)
	result := chain.Authenticate(context.Background(), r)

	if result.Decision != Yes {
		t.Errorf("Decision = %v, want Yes", result.Decision)
	}
	if result.Identity.Subject != "bearer-user" {
		t.Errorf("Subject = %q, want %q", result.Identity.Subject, "bearer-user")
	}
}

func TestAuthDecisionString(t *testing.T) {
	tests := map[AuthDecision]string{Yes: "yes", No: "no", Abstain: "abstain"}
	for d, want := range tests {
		if got := d.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestIdentity_IsAdmin(t *testing.T) {
	tests := []struct {
		id   *Identity
		want bool
	}{
		{&Identity{Subject: "a", Role: api.RoleAdmin}, true},
		{&Identity{Subject: "s", Role: api.RoleSuperAdmin}, true},
		{&Identity{Subject: "m", Role: api.RoleMember}, false},
		{&Identity{Subject: "x", Role: "admin"}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := tt.id.IsAdmin(); got != tt.want {
			t.Errorf("IsAdmin(%+v) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()

	if IdentityFromContext(ctx) != nil {
		t.Error("expected nil identity from empty context")
	}

	ctx = SetIdentity(ctx, &Identity{Subject: "alice"})
	got := IdentityFromContext(ctx)
	if got == nil || got.Subject != "alice" {
		t.Errorf("got %v, want alice", got)
	}
}

func TestIdentityHeaders(t *testing.T) {
	h := http.Header{}
	if IdentityFromHeaders(h) != nil {
		t.Error("expected nil identity without headers")
	}

	InjectHeaders(h, &Identity{Subject: "u1", Email: "u1@example.com", Role: api.RoleAdmin})
	got := IdentityFromHeaders(h)
	if got == nil || got.Subject != "u1" || got.Email != "u1@example.com" || got.Role != api.RoleAdmin {
		t.Errorf("IdentityFromHeaders = %+v", got)
	}

	StripHeaders(h)
	for _, name := range []string{HeaderUserID, HeaderUserEmail, HeaderUserRole} {
		if v := h.Get(name); v != "" {
			t.Errorf("%s = %q after StripHeaders, want empty", name, v)
		}
	}
}
