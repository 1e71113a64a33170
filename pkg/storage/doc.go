// Package storage provides the account store contract shared by the
// storage adapters, together with the sentinel errors they return.
//
// Storage adapters (memory, postgres, sqlite) implement [AccountStore].
// Email uniqueness is enforced by each adapter (a unique index in the
// SQL backends, a lowercased key in memory) and is the only coordination
// point between concurrent registrations.
package storage
