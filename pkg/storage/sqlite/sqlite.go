// Package sqlite provides a single-file SQLite implementation of
// storage.AccountStore for small deployments that do not run PostgreSQL.
// It uses the pure-Go modernc.org/sqlite driver through database/sql.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/rhuss/memberportal/pkg/api"
	"github.com/rhuss/memberportal/pkg/storage"
)

//go:embed schema.sql
var schema string

// Store is a SQLite-backed AccountStore.
type Store struct {
	db *sql.DB
}

// Ensure Store implements storage.AccountStore at compile time.
var _ storage.AccountStore = (*Store)(nil)

// Open opens (creating if needed) the database file at path and applies
// the schema. SQLite allows one writer at a time, so the pool is limited
// to a single connection and pragmas are set on it.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}

	return &Store{db: db}, nil
}

// NewFromDB wraps an already-open database. The schema is not applied.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
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
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO accounts (
			id, email, password_hash, role, status, is_verified,
			last_login, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		acct.ID, acct.Email, acct.PasswordHash, string(acct.Role), string(acct.Status),
		acct.IsVerified, unixNanoPtr(acct.LastLogin), acct.CreatedAt.UnixNano(), acct.UpdatedAt.UnixNano(),
	)
	if err != nil {
		return mapInsertError(err)
	}

	if p := acct.Profile; p != nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO members (
				account_id, membership_no, first_name, last_name, father_name,
				mother_name, gotra, locality, phone, occupation, education
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			acct.ID, p.MembershipNo, p.FirstName, p.LastName, p.FatherName,
			p.MotherName, p.Gotra, p.Locality, p.Phone, p.Occupation, p.Education,
		)
		if err != nil {
			return mapInsertError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*api.Account, error) {
	return s.getAccount(ctx, selectAccount+" WHERE a.id = ?", id)
}

// GetAccountByEmail retrieves an account by email. The column collates
// NOCASE, so the comparison ignores ASCII case.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*api.Account, error) {
	return s.getAccount(ctx, selectAccount+" WHERE a.email = ?", email)
}

func (s *Store) getAccount(ctx context.Context, query, arg string) (*api.Account, error) {
	acct, err := scanAccount(s.db.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
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
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts
		SET status = ?, is_verified = (is_verified OR ?), updated_at = ?
		WHERE id = ? AND status = ?
	`, string(change.To), change.Verify, change.At.UnixNano(), id, string(change.From))
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("updating status: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM accounts WHERE id = ?)", id,
		).Scan(&exists); err != nil {
			return nil, fmt.Errorf("checking account: %w", err)
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
	res, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET last_login = ?, updated_at = ? WHERE id = ?",
		at.UnixNano(), at.UnixNano(), id,
	)
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByStatus returns accounts in the given status, newest first.
func (s *Store) ListByStatus(ctx context.Context, status api.AccountStatus, opts storage.ListOptions) ([]*api.Account, int, error) {
	opts = opts.Normalized()
	var total int
	if err := s.db.QueryRowContext(ctx,
		"SELECT count(*) FROM accounts WHERE status = ?", string(status),
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting accounts: %w", err)
	}

	// A negative LIMIT means no limit in SQLite.
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, selectAccount+`
		WHERE a.status = ?
		ORDER BY a.created_at DESC, a.id DESC
		LIMIT ? OFFSET ?
	`, string(status), limit, opts.Offset)
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

// HealthCheck verifies the database answers.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*api.Account, error) {
	var (
		acct                 api.Account
		role, status         string
		lastLogin            sql.NullInt64
		createdAt, updatedAt int64
		membershipNo         sql.NullString
		p                    [9]sql.NullString
	)

	err := row.Scan(
		&acct.ID, &acct.Email, &acct.PasswordHash, &role, &status, &acct.IsVerified,
		&lastLogin, &createdAt, &updatedAt,
		&membershipNo, &p[0], &p[1], &p[2], &p[3], &p[4], &p[5], &p[6], &p[7], &p[8],
	)
	if err != nil {
		return nil, err
	}

	acct.Role = api.Role(role)
	acct.Status = api.AccountStatus(status)
	if !acct.Status.Valid() {
		return nil, fmt.Errorf("account %s: %w: %q", acct.ID, storage.ErrInvalidStatus, status)
	}
	acct.CreatedAt = fromUnixNano(createdAt)
	acct.UpdatedAt = fromUnixNano(updatedAt)
	if lastLogin.Valid {
		t := fromUnixNano(lastLogin.Int64)
		acct.LastLogin = &t
	}

	if membershipNo.Valid {
		acct.Profile = &api.Profile{
			MembershipNo: membershipNo.String,
			FirstName:    p[0].String,
			LastName:     p[1].String,
			FatherName:   p[2].String,
			MotherName:   p[3].String,
			Gotra:        p[4].String,
			Locality:     p[5].String,
			Phone:        p[6].String,
			Occupation:   p[7].String,
			Education:    p[8].String,
		}
	}

	return &acct, nil
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func unixNanoPtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

// mapInsertError turns unique and primary key violations into ErrConflict.
func mapInsertError(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return storage.ErrConflict
		}
	}
	return fmt.Errorf("inserting account: %w", err)
}
