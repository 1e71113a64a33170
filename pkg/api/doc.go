// Package api defines the core domain types for the member portal.
//
// This package provides the account model, the account lifecycle state
// machine, the request payloads accepted at the HTTP boundary together
// with their validation, the error taxonomy, and membership number
// generation.
//
// The package has zero external dependencies (Go standard library only) and
// performs no I/O. All types produce JSON compatible with the portal's
// existing web client, so field names use camelCase on the wire.
//
// Core types:
//   - [Account]: A login credential record with role and lifecycle status
//   - [Profile]: Member details captured at registration
//   - [RegisterRequest], [LoginRequest], [DecisionRequest]: Validated request bodies
//   - [APIError]: Structured error with type, message, and field-level detail
package api
