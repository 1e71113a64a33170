// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used in production.
const DefaultCost = 12

// ErrTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int

	// dummy is a hash of a throwaway password at the same cost, compared
	// against when the account does not exist.
	dummy []byte
}

// NewHasher creates a Hasher with the given cost. A zero cost selects
// DefaultCost.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("memberportal-timing-equalizer"), cost)
	if err != nil {
		return nil, fmt.Errorf("generating dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Cost returns the configured bcrypt cost.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns the salted bcrypt hash of password.
func (h *Hasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches hash. Any mismatch or malformed
// hash yields false.
func (h *Hasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyMissing burns the same CPU time as Verify against a real hash and
// always returns false. Call it when the account lookup found nothing.
func (h *Hasher) VerifyMissing(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(password))
	return false
}
