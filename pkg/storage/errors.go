package storage

import "errors"

// Sentinel errors for storage operations.
var (
	// ErrNotFound is returned when an account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrConflict is returned when an account with the given email or ID already exists.
	ErrConflict = errors.New("account already exists")

	// ErrStatusChanged is returned by a conditional status update when the
	// account is no longer in the expected status.
	ErrStatusChanged = errors.New("account status changed")

	// ErrInvalidStatus is returned when a status change targets, or a
	// stored row carries, a status outside the known set.
	ErrInvalidStatus = errors.New("invalid account status")
)
