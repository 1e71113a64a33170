package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rhuss/memberportal/pkg/api"
)

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Unknown types map to 500.
func HTTPStatusFromError(err *api.APIError) int {
	switch err.Type {
	case api.ErrorTypeValidation:
		return http.StatusBadRequest
	case api.ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case api.ErrorTypeAuthorization, api.ErrorTypeAccountState:
		return http.StatusForbidden
	case api.ErrorTypeNotFound:
		return http.StatusNotFound
	case api.ErrorTypeConflict:
		return http.StatusConflict
	case api.ErrorTypeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse writes the failure envelope with an explicit status code.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	WriteJSON(w, statusCode, api.NewErrorResponse(apiErr))
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}

// WriteSuccess writes the success envelope. Message and data are omitted
// when empty.
func WriteSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	WriteJSON(w, statusCode, api.SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// WriteJSON encodes v as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing JSON response failed", "error", err)
	}
}
