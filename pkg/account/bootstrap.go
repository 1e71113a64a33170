package account

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
)

// AdminSpec describes the administrator to bootstrap.
type AdminSpec struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// EnsureAdmin makes sure a super administrator with the given email
// exists. An existing account with that email is left untouched and
// created is false. The new account starts active and verified.
func (s *Service) EnsureAdmin(ctx context.Context, spec AdminSpec) (created bool, err error) {
	email := api.NormalizeEmail(spec.Email)
	if !api.ValidEmail(email) {
		return false, fmt.Errorf("bootstrap admin: invalid email %q", spec.Email)
	}
	if utf8.RuneCountInString(spec.Password) < api.MinPasswordLength {
		return false, fmt.Errorf("bootstrap admin: password must be at least %d characters", api.MinPasswordLength)
	}

	existing, err := s.store.GetAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != api.RoleSuperAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-super-admin account",
				"account_id", existing.ID, "role", existing.Role)
		}
		return false, nil
	case !errors.Is(err, storage.ErrNotFound):
		return false, fmt.Errorf("bootstrap admin: looking up account: %w", err)
	}

	if apiErr := api.ValidateStatusTransition("", api.AccountStatusActive); apiErr != nil {
		return false, apiErr
	}

	hash, err := s.hasher.Hash(spec.Password)
	if err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}

	first, last := spec.FirstName, spec.LastName
	if first == "" {
		first = "Super"
	}
	if last == "" {
		last = "Admin"
	}

	now := s.now().UTC()
	acct := &api.Account{
		ID:           s.newID(),
		Email:        email,
		PasswordHash: hash,
		Role:         api.RoleSuperAdmin,
		Status:       api.AccountStatusActive,
		IsVerified:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Profile: &api.Profile{
			MembershipNo: api.NewMembershipNo(s.prefix, now),
			FirstName:    first,
			LastName:     last,
		},
	}

	if err := s.store.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// Another instance bootstrapped the same admin concurrently.
			return false, nil
		}
		return false, fmt.Errorf("bootstrap admin: creating account: %w", err)
	}

	s.logger.Info("bootstrap admin created", "account_id", acct.ID, "email", email)
	return true, nil
}
