// Package transport provides the net/http middleware chain and the JSON
// envelope helpers shared by every handler of the member portal.
//
// # Middleware
//
// Middleware wraps an http.Handler with cross-cutting behavior. Built-in
// middleware provides panic recovery, request ID assignment (X-Request-ID),
// structured access logging via log/slog, and browser security headers.
// Chain composes them so the first middleware is the outermost.
//
// # Envelopes
//
// Every JSON response uses one of two envelopes:
//
//	{"success": true,  "message": "...", "data": {...}}
//	{"success": false, "message": "...", "errors": [{"field": "...", "message": "..."}]}
//
// WriteSuccess and WriteAPIError produce them. HTTPStatusFromError maps
// api.APIError types to status codes.
package transport
