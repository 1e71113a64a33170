// Package memory provides an in-memory implementation of storage.AccountStore
// for testing and lightweight deployments. Accounts are stored in memory and
// lost when the process restarts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
)

// Store is an in-memory AccountStore.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*api.Account
	byEmail map[string]string // lowercased email -> id
}

// Ensure Store implements storage.AccountStore at compile time.
var _ storage.AccountStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		byID:    make(map[string]*api.Account),
		byEmail: make(map[string]string),
	}
}

// CreateAccount stores a copy of acct. The lowercased email is the
// uniqueness key.
func (s *Store) CreateAccount(_ context.Context, acct *api.Account) error {
	key := strings.ToLower(acct.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return storage.ErrConflict
	}
	if _, exists := s.byID[acct.ID]; exists {
		return storage.ErrConflict
	}

	s.byID[acct.ID] = storage.CloneAccount(acct)
	s.byEmail[key] = acct.ID
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(_ context.Context, id string) (*api.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.CloneAccount(acct), nil
}

// GetAccountByEmail retrieves an account by email, ignoring case.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (*api.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return storage.CloneAccount(s.byID[id]), nil
}

// UpdateStatus applies a conditional status transition.
func (s *Store) UpdateStatus(_ context.Context, id string, change storage.StatusChange) (*api.Account, error) {
	if !change.To.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidStatus, change.To)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if acct.Status != change.From {
		return nil, storage.ErrStatusChanged
	}

	acct.Status = change.To
	if change.Verify {
		acct.IsVerified = true
	}
	acct.UpdatedAt = change.At
	return storage.CloneAccount(acct), nil
}

// RecordLogin sets the last-login timestamp.
func (s *Store) RecordLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	acct.LastLogin = &at
	acct.UpdatedAt = at
	return nil
}

// ListByStatus returns accounts in the given status, newest first.
func (s *Store) ListByStatus(_ context.Context, status api.AccountStatus, opts storage.ListOptions) ([]*api.Account, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*api.Account
	for _, acct := range s.byID {
		if acct.Status == status {
			matched = append(matched, acct)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	opts = opts.Normalized()
	total := len(matched)
	start := opts.Offset
	if start > total {
		start = total
	}
	end := total
	if opts.Limit > 0 && start+opts.Limit < total {
		end = start + opts.Limit
	}

	page := make([]*api.Account, 0, end-start)
	for _, acct := range matched[start:end] {
		page = append(page, storage.CloneAccount(acct))
	}
	return page, total, nil
}

// HealthCheck always returns nil for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}
