// Package storagetest provides a conformance suite that every
// storage.AccountStore adapter runs from its own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.AccountStore

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// NewAccount builds a pending member account with a profile.
func NewAccount(id, email string, createdAt time.Time) *api.Account {
	return &api.Account{
		ID:           id,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Role:         api.RoleMember,
		Status:       api.AccountStatusPending,
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
		Profile: &api.Profile{
			MembershipNo: "AGR" + fmt.Sprintf("%08d", createdAt.Unix()%100000000) + "TEST",
			FirstName:    "Test",
			LastName:     "Member",
			Gotra:        "Garg",
			Locality:     "Civil Lines",
			Phone:        "555-0100",
		},
	}
}

// Run executes the conformance suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.AccountStore)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"GetByEmailIgnoresCase", testGetByEmailIgnoresCase},
		{"DuplicateEmailConflicts", testDuplicateEmailConflicts},
		{"ConcurrentRegistrationsOneWins", testConcurrentRegistrations},
		{"NotFound", testNotFound},
		{"AccountWithoutProfile", testAccountWithoutProfile},
		{"UpdateStatus", testUpdateStatus},
		{"UpdateStatusConditional", testUpdateStatusConditional},
		{"RecordLogin", testRecordLogin},
		{"ListByStatus", testListByStatus},
		{"HealthCheck", testHealthCheck},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { s.Close() })
			tt.fn(t, s)
		})
	}
}

func testCreateAndGet(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	acct := NewAccount("acct-1", "asha@example.com", base)
	require.NoError(t, s.CreateAccount(ctx, acct))

	got, err := s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", got.Email)
	assert.Equal(t, acct.PasswordHash, got.PasswordHash)
	assert.Equal(t, api.RoleMember, got.Role)
	assert.Equal(t, api.AccountStatusPending, got.Status)
	assert.False(t, got.IsVerified)
	assert.Nil(t, got.LastLogin)
	assert.True(t, got.CreatedAt.Equal(base), "CreatedAt = %v, want %v", got.CreatedAt, base)
	require.NotNil(t, got.Profile)
	assert.Equal(t, acct.Profile.MembershipNo, got.Profile.MembershipNo)
	assert.Equal(t, "Garg", got.Profile.Gotra)
	assert.Equal(t, "555-0100", got.Profile.Phone)
	assert.Empty(t, got.Profile.Occupation)
}

func testGetByEmailIgnoresCase(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, NewAccount("acct-1", "asha@example.com", base)))

	got, err := s.GetAccountByEmail(ctx, "Asha@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "acct-1", got.ID)
}

func testDuplicateEmailConflicts(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, NewAccount("acct-1", "asha@example.com", base)))

	err := s.CreateAccount(ctx, NewAccount("acct-2", "ASHA@example.com", base))
	assert.True(t, errors.Is(err, storage.ErrConflict), "err = %v, want ErrConflict", err)

	// The losing insert must not leave a partial profile behind.
	_, err = s.GetAccount(ctx, "acct-2")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "err = %v, want ErrNotFound", err)
}

func testConcurrentRegistrations(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	const n = 8

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.CreateAccount(ctx, NewAccount(fmt.Sprintf("acct-%d", i), "race@example.com", base))
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one registration must win")
}

func testNotFound(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()

	_, err := s.GetAccount(ctx, "missing")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "GetAccount err = %v", err)

	_, err = s.GetAccountByEmail(ctx, "missing@example.com")
	assert.True(t, errors.Is(err, storage.ErrNotFound), "GetAccountByEmail err = %v", err)

	_, err = s.UpdateStatus(ctx, "missing", storage.StatusChange{
		From: api.AccountStatusPending, To: api.AccountStatusActive, At: base,
	})
	assert.True(t, errors.Is(err, storage.ErrNotFound), "UpdateStatus err = %v", err)

	err = s.RecordLogin(ctx, "missing", base)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "RecordLogin err = %v", err)
}

func testAccountWithoutProfile(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	acct := NewAccount("admin-1", "admin@example.com", base)
	acct.Profile = nil
	acct.Role = api.RoleSuperAdmin
	acct.Status = api.AccountStatusActive
	acct.IsVerified = true
	require.NoError(t, s.CreateAccount(ctx, acct))

	got, err := s.GetAccount(ctx, "admin-1")
	require.NoError(t, err)
	assert.Nil(t, got.Profile)
	assert.Equal(t, api.RoleSuperAdmin, got.Role)
	assert.True(t, got.IsVerified)
}

func testUpdateStatus(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, NewAccount("acct-1", "asha@example.com", base)))

	at := base.Add(time.Hour)
	got, err := s.UpdateStatus(ctx, "acct-1", storage.StatusChange{
		From: api.AccountStatusPending, To: api.AccountStatusActive, Verify: true, At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, api.AccountStatusActive, got.Status)
	assert.True(t, got.IsVerified)
	assert.True(t, got.UpdatedAt.Equal(at), "UpdatedAt = %v, want %v", got.UpdatedAt, at)
	require.NotNil(t, got.Profile, "updated account must carry its profile")

	got, err = s.UpdateStatus(ctx, "acct-1", storage.StatusChange{
		From: api.AccountStatusActive, To: api.AccountStatusSuspended, At: at,
	})
	require.NoError(t, err)
	assert.Equal(t, api.AccountStatusSuspended, got.Status)
	assert.True(t, got.IsVerified, "suspension must not clear verification")

	_, err = s.UpdateStatus(ctx, "acct-1", storage.StatusChange{
		From: api.AccountStatusSuspended, To: "ARCHIVED", At: at,
	})
	assert.True(t, errors.Is(err, storage.ErrInvalidStatus), "err = %v, want ErrInvalidStatus", err)

	got, err = s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, api.AccountStatusSuspended, got.Status)
}

func testUpdateStatusConditional(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, NewAccount("acct-1", "asha@example.com", base)))

	_, err := s.UpdateStatus(ctx, "acct-1", storage.StatusChange{
		From: api.AccountStatusPending, To: api.AccountStatusRejected, At: base,
	})
	require.NoError(t, err)

	// A second decision racing on stale state must lose.
	_, err = s.UpdateStatus(ctx, "acct-1", storage.StatusChange{
		From: api.AccountStatusPending, To: api.AccountStatusActive, Verify: true, At: base,
	})
	assert.True(t, errors.Is(err, storage.ErrStatusChanged), "err = %v, want ErrStatusChanged", err)

	got, err := s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, api.AccountStatusRejected, got.Status)
	assert.False(t, got.IsVerified)
}

func testRecordLogin(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, NewAccount("acct-1", "asha@example.com", base)))

	at := base.Add(2 * time.Hour)
	require.NoError(t, s.RecordLogin(ctx, "acct-1", at))

	got, err := s.GetAccount(ctx, "acct-1")
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at), "LastLogin = %v, want %v", got.LastLogin, at)
}

func testListByStatus(t *testing.T, s storage.AccountStore) {
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		acct := NewAccount(fmt.Sprintf("acct-%d", i), fmt.Sprintf("m%d@example.com", i), base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, s.CreateAccount(ctx, acct))
	}
	_, err := s.UpdateStatus(ctx, "acct-2", storage.StatusChange{
		From: api.AccountStatusPending, To: api.AccountStatusActive, Verify: true, At: base,
	})
	require.NoError(t, err)

	page, total, err := s.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{Offset: 0, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "acct-4", page[0].ID, "newest first")
	assert.Equal(t, "acct-3", page[1].ID)
	require.NotNil(t, page[0].Profile)

	page, total, err = s.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "acct-1", page[0].ID)
	assert.Equal(t, "acct-0", page[1].ID)

	page, total, err = s.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{Offset: 10, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Empty(t, page)

	page, total, err = s.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{Offset: -5, Limit: 2})
	require.NoError(t, err, "negative offset")
	assert.Equal(t, 4, total)
	require.Len(t, page, 2)
	assert.Equal(t, "acct-4", page[0].ID)

	page, _, err = s.ListByStatus(ctx, api.AccountStatusPending, storage.ListOptions{Offset: math.MaxInt, Limit: 2})
	require.NoError(t, err, "huge offset")
	assert.Empty(t, page)

	page, total, err = s.ListByStatus(ctx, api.AccountStatusSuspended, storage.ListOptions{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, page)
}

func testHealthCheck(t *testing.T, s storage.AccountStore) {
	assert.NoError(t, s.HealthCheck(context.Background()))
}
