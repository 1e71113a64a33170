package api

import (
	"encoding/json"
	"testing"
)

func TestAPIErrorInterface(t *testing.T) {
	var _ error = &APIError{}
}

func TestAPIErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want string
	}{
		{
			"with fields",
			NewValidationError("Validation failed",
				FieldError{Field: "email", Message: "Invalid email address"},
				FieldError{Field: "gotra", Message: "too short"}),
			"validation_error: Validation failed (fields: email, gotra)",
		},
		{
			"without fields",
			&APIError{Type: ErrorTypeServerError, Message: "internal failure"},
			"server_error: internal failure",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("APIError.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		wantType ErrorType
	}{
		{"validation", NewValidationError("bad"), ErrorTypeValidation},
		{"authentication", NewAuthenticationError("Authentication required"), ErrorTypeAuthentication},
		{"authorization", NewAuthorizationError("Admin access required"), ErrorTypeAuthorization},
		{"account state", NewAccountStateError("pending"), ErrorTypeAccountState},
		{"not found", NewNotFoundError("User not found"), ErrorTypeNotFound},
		{"conflict", NewConflictError("Email already registered"), ErrorTypeConflict},
		{"too many requests", NewTooManyRequestsError("slow down"), ErrorTypeTooManyRequests},
		{"server error", NewServerError("internal failure"), ErrorTypeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", tt.err.Type, tt.wantType)
			}
		})
	}
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponse(NewValidationError("Validation failed",
		FieldError{Field: "email", Message: "Invalid email address"}))

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}

	if got["success"] != false {
		t.Errorf("success = %v, want false", got["success"])
	}
	if got["message"] != "Validation failed" {
		t.Errorf("message = %v, want %q", got["message"], "Validation failed")
	}
	errs, ok := got["errors"].([]any)
	if !ok || len(errs) != 1 {
		t.Fatalf("errors = %v, want one entry", got["errors"])
	}
	if _, hasType := got["type"]; hasType {
		t.Error("error type leaked into the response envelope")
	}
}

func TestErrorResponseOmitsEmptyErrors(t *testing.T) {
	data, _ := json.Marshal(NewErrorResponse(NewAuthenticationError("Authentication required")))
	want := `{"success":false,"message":"Authentication required"}`
	if string(data) != want {
		t.Errorf("JSON = %s, want %s", data, want)
	}
}
