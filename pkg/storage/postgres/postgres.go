// Package postgres provides a PostgreSQL implementation of storage.AccountStore.
// It uses pgx/v5 for connection pooling. Accounts and member profiles live in
// separate tables and are written together in one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
)

// Store is a PostgreSQL-backed AccountStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements storage.AccountStore at compile time.
var _ storage.AccountStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Verify connectivity.
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

const selectAccount = `
	SELECT a.id, a.email, a.password_hash, a.role, a.status, a.is_verified,
	       a.last_login, a.created_at, a.updated_at,
	       m.membership_no, m.first_name, m.last_name, m.father_name, m.mother_name,
	       m.gotra, m.locality, m.phone, m.occupation, m.education
	FROM accounts a
	LEFT JOIN members m ON m.account_id = a.id`

// CreateAccount inserts the account and its profile in one transaction.
func (s *Store) CreateAccount(ctx context.Context, acct *api.Account) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO accounts (
				id, email, password_hash, role, status, is_verified,
				last_login, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			acct.ID, acct.Email, acct.PasswordHash, string(acct.Role), string(acct.Status),
			acct.IsVerified, acct.LastLogin, acct.CreatedAt, acct.UpdatedAt,
		)
		if err != nil {
			return err
		}

		p := acct.Profile
		if p == nil {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO members (
				account_id, membership_no, first_name, last_name, father_name,
				mother_name, gotra, locality, phone, occupation, education
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`,
			acct.ID, p.MembershipNo, p.FirstName, p.LastName, p.FatherName,
			p.MotherName, p.Gotra, p.Locality, p.Phone, p.Occupation, p.Education,
		)
		return err
	})
	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*api.Account, error) {
	return s.getAccount(ctx, selectAccount+" WHERE a.id = $1", id)
}

// GetAccountByEmail retrieves an account by email, ignoring case.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*api.Account, error) {
	return s.getAccount(ctx, selectAccount+" WHERE lower(a.email) = lower($1)", email)
}

func (s *Store) getAccount(ctx context.Context, query string, arg string) (*api.Account, error) {
	acct, err := scanAccount(s.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return acct, nil
}

// UpdateStatus applies a conditional status transition.
func (s *Store) UpdateStatus(ctx context.Context, id string, change storage.StatusChange) (*api.Account, error) {
	if !change.To.Valid() {
		return nil, fmt.Errorf("%w: %q", storage.ErrInvalidStatus, change.To)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE accounts
		SET status = $3, is_verified = is_verified OR $4, updated_at = $5
		WHERE id = $1 AND status = $2
	`, id, string(change.From), string(change.To), change.Verify, change.At)
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		exists, err := s.exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, storage.ErrNotFound
		}
		return nil, storage.ErrStatusChanged
	}

	return s.GetAccount(ctx, id)
}

// RecordLogin sets the last-login timestamp.
func (s *Store) RecordLogin(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE accounts SET last_login = $2, updated_at = $2 WHERE id = $1",
		id, at,
	)
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByStatus returns accounts in the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status api.AccountStatus, opts storage.ListOptions) ([]*api.Account, int, error) {
	opts = opts.Normalized()
	var total int
	if err := s.pool.QueryRow(ctx,
		"SELECT count(*) FROM accounts WHERE status = $1", string(status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting accounts: %w", err)
	}

	// LIMIT NULL means no limit.
	rows, err := s.pool.Query(ctx, selectAccount+`
		WHERE a.status = $1
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT NULLIF($2::bigint, 0) OFFSET $3
	`, string(status), opts.Limit, opts.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*api.Account, 0)
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning account: %w", err)
		}
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating accounts: %w", err)
	}

	return accounts, total, nil
}

// HealthCheck verifies database connectivity.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)", id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking account: %w", err)
	}
	return exists, nil
}

// scanAccount reads one row produced by selectAccount. Profile columns are
// NULL when the account has no member row.
func scanAccount(row pgx.Row) (*api.Account, error) {
	var (
		acct         api.Account
		role, status string
		membershipNo *string
		p            struct {
			first, last, father, mother, gotra, locality, phone, occupation, education *string
		}
	)

	err := row.Scan(
		&acct.ID, &acct.Email, &acct.PasswordHash, &role, &status, &acct.IsVerified,
		&acct.LastLogin, &acct.CreatedAt, &acct.UpdatedAt,
		&membershipNo, &p.first, &p.last, &p.father, &p.mother,
		&p.gotra, &p.locality, &p.phone, &p.occupation, &p.education,
	)
	if err != nil {
		return nil, err
	}

	acct.Role = api.Role(role)
	acct.Status = api.AccountStatus(status)
	if !acct.Status.Valid() {
		return nil, fmt.Errorf("account %s: %w: %q", acct.ID, storage.ErrInvalidStatus, status)
	}

	if membershipNo != nil {
		acct.Profile = &api.Profile{
			MembershipNo: *membershipNo,
			FirstName:    deref(p.first),
			LastName:     deref(p.last),
			FatherName:   deref(p.father),
			MotherName:   deref(p.mother),
			Gotra:        deref(p.gotra),
			Locality:     deref(p.locality),
			Phone:        deref(p.phone),
			Occupation:   deref(p.occupation),
			Education:    deref(p.education),
		}
	}

	return &acct, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
