package storage

import (
	"context"
	"time"

	"github.com/rhuss/memberportal/pkg/api"
)

// AccountStore persists accounts and their member profiles.
// Accounts are never deleted.
type AccountStore interface {
	// CreateAccount inserts an account and, when set, its profile in one
	// atomic step. Returns ErrConflict if the email (compared
	// case-insensitively) or the ID is already taken.
	CreateAccount(ctx context.Context, acct *api.Account) error

	// GetAccount returns the account with the given ID, including its profile.
	GetAccount(ctx context.Context, id string) (*api.Account, error)

	// GetAccountByEmail looks an account up by email, case-insensitively.
	GetAccountByEmail(ctx context.Context, email string) (*api.Account, error)

	// UpdateStatus moves an account from change.From to change.To. The
	// update only applies while the account is still in change.From;
	// otherwise ErrStatusChanged is returned. Returns the updated account.
	UpdateStatus(ctx context.Context, id string, change StatusChange) (*api.Account, error)

	// RecordLogin sets the last-login timestamp.
	RecordLogin(ctx context.Context, id string, at time.Time) error

	// ListByStatus returns accounts in the given status, newest first,
	// together with the total number of matching accounts.
	ListByStatus(ctx context.Context, status api.AccountStatus, opts ListOptions) ([]*api.Account, int, error)

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// StatusChange describes a conditional lifecycle transition.
type StatusChange struct {
	From api.AccountStatus
	To   api.AccountStatus

	// Verify marks the account as verified. It never clears the flag.
	Verify bool

	At time.Time
}

// ListOptions controls pagination for listing operations.
type ListOptions struct {
	Offset int
	Limit  int
}

// Normalized returns opts with a negative offset treated as zero and a
// negative limit treated as no limit.
func (o ListOptions) Normalized() ListOptions {
	return ListOptions{Offset: max(o.Offset, 0), Limit: max(o.Limit, 0)}
}

// CloneAccount returns a deep copy of acct, so callers of an in-process
// store never share mutable state with it.
func CloneAccount(acct *api.Account) *api.Account {
	if acct == nil {
		return nil
	}
	c := *acct
	if acct.LastLogin != nil {
		t := *acct.LastLogin
		c.LastLogin = &t
	}
	if acct.Profile != nil {
		p := *acct.Profile
		c.Profile = &p
	}
	return &c
}
