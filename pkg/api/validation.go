package api

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// MinPasswordLength is the minimum accepted password length at registration.
	MinPasswordLength = 8

	// MaxPasswordBytes is the longest password bcrypt accepts.
	MaxPasswordBytes = 72

	minNameLength = 2

	// DefaultPageLimit and MaxPageLimit bound listing page sizes.
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// MaxPage is the highest page number whose offset fits in an int at
	// MaxPageLimit.
	MaxPage = math.MaxInt / MaxPageLimit
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return len(s) <= 254 && emailPattern.MatchString(s)
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// RegisterRequest is the body of a registration request.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	FatherName      string `json:"fatherName,omitempty"`
	MotherName      string `json:"motherName,omitempty"`
	Gotra           string `json:"gotra"`
	Locality        string `json:"locality"`
	Phone           string `json:"phone,omitempty"`
	Occupation      string `json:"occupation,omitempty"`
	Education       string `json:"education,omitempty"`
}

// Validate normalizes the request in place and checks every field. It
// returns a validation APIError listing all invalid fields, or nil.
func (r *RegisterRequest) Validate() *APIError {
	r.Email = NormalizeEmail(r.Email)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.FatherName = strings.TrimSpace(r.FatherName)
	r.MotherName = strings.TrimSpace(r.MotherName)
	r.Gotra = strings.TrimSpace(r.Gotra)
	r.Locality = strings.TrimSpace(r.Locality)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Occupation = strings.TrimSpace(r.Occupation)
	r.Education = strings.TrimSpace(r.Education)

	var fields []FieldError
	if !ValidEmail(r.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "Invalid email address"})
	}
	if utf8.RuneCountInString(r.Password) < MinPasswordLength {
		fields = append(fields, FieldError{Field: "password",
			Message: fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)})
	} else if len(r.Password) > MaxPasswordBytes {
		fields = append(fields, FieldError{Field: "password",
			Message: fmt.Sprintf("Password must be at most %d bytes", MaxPasswordBytes)})
	}
	if r.Password != r.ConfirmPassword {
		fields = append(fields, FieldError{Field: "confirmPassword", Message: "Passwords don't match"})
	}

	required := []struct {
		field, label, value string
	}{
		{"firstName", "First name", r.FirstName},
		{"lastName", "Last name", r.LastName},
		{"gotra", "Gotra", r.Gotra},
		{"locality", "Locality", r.Locality},
	}
	for _, f := range required {
		if utf8.RuneCountInString(f.value) < minNameLength {
			fields = append(fields, FieldError{Field: f.field,
				Message: fmt.Sprintf("%s must be at least %d characters", f.label, minNameLength)})
		}
	}

	if len(fields) > 0 {
		return NewValidationError("Validation failed", fields...)
	}
	return nil
}

// Profile builds the member profile described by the request.
func (r *RegisterRequest) Profile(membershipNo string) *Profile {
	return &Profile{
		MembershipNo: membershipNo,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		FatherName:   r.FatherName,
		MotherName:   r.MotherName,
		Gotra:        r.Gotra,
		Locality:     r.Locality,
		Phone:        r.Phone,
		Occupation:   r.Occupation,
		Education:    r.Education,
	}
}

// LoginRequest is the body of a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate normalizes the email and checks both fields.
func (r *LoginRequest) Validate() *APIError {
	r.Email = NormalizeEmail(r.Email)

	var fields []FieldError
	if !ValidEmail(r.Email) {
		fields = append(fields, FieldError{Field: "email", Message: "Invalid email address"})
	}
	if r.Password == "" {
		fields = append(fields, FieldError{Field: "password", Message: "Password is required"})
	}
	if len(fields) > 0 {
		return NewValidationError("Validation failed", fields...)
	}
	return nil
}

// DecisionAction is an administrator's verdict on a pending account.
type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

// DecisionRequest is the body of an approval decision.
type DecisionRequest struct {
	Action DecisionAction `json:"action"`
	Reason string         `json:"reason,omitempty"`
}

// Validate checks the action is approve or reject.
func (r *DecisionRequest) Validate() *APIError {
	r.Reason = strings.TrimSpace(r.Reason)
	switch r.Action {
	case DecisionApprove, DecisionReject:
		return nil
	}
	return NewValidationError("Invalid action",
		FieldError{Field: "action", Message: `Action must be "approve" or "reject"`})
}

// TargetStatus returns the status an account moves to under this decision.
func (r *DecisionRequest) TargetStatus() AccountStatus {
	if r.Action == DecisionApprove {
		return AccountStatusActive
	}
	return AccountStatusRejected
}

// SuspendRequest is the body of a suspension action.
type SuspendRequest struct {
	Reason string `json:"reason,omitempty"`
}

// ParsePageParams parses page and limit query values. Missing or
// unparsable values fall back to page 1 and DefaultPageLimit. Page is
// capped at MaxPage and limit at MaxPageLimit.
func ParsePageParams(pageStr, limitStr string) (page, limit int) {
	page, limit = 1, DefaultPageLimit
	if n, err := strconv.Atoi(pageStr); err == nil && n > 0 {
		page = min(n, MaxPage)
	}
	if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
		limit = n
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return page, limit
}
