package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
	"github.com/rhuss/memberportal/pkg/storage/storagetest"
)

func TestConformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.AccountStore {
		return New()
	})
}

func TestReturnedAccountsAreCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	acct := storagetest.NewAccount("acct-1", "asha@example.com", time.Now())
	if err := s.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}

	// Mutating the caller's value after insert must not leak into the store.
	acct.Status = api.AccountStatusActive
	acct.Profile.Gotra = "changed"

	got, err := s.GetAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if got.Status != api.AccountStatusPending {
		t.Errorf("Status = %q, want %q", got.Status, api.AccountStatusPending)
	}
	if got.Profile.Gotra != "Garg" {
		t.Errorf("Gotra = %q, want %q", got.Profile.Gotra, "Garg")
	}

	// Mutating a returned value must not leak either.
	got.Role = api.RoleSuperAdmin
	again, _ := s.GetAccount(ctx, "acct-1")
	if again.Role != api.RoleMember {
		t.Errorf("Role = %q, want %q", again.Role, api.RoleMember)
	}
}
