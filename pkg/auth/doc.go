// Package auth provides request authentication and the request gate for
// the member portal.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (no credentials it handles). When every
// authenticator abstains the request carries no credentials at all.
//
// The Gate middleware runs in front of every route. A RoutePolicy decides
// which paths are public, which are API paths, and which need the admin
// role. Verified identities travel to handlers both in the request context
// and, on API paths, as X-User-* headers that the gate always resets.
package auth
