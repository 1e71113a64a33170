package api

import (
	"testing"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// validRegistration returns a RegisterRequest that passes validation.
func validRegistration() *RegisterRequest {
	return &RegisterRequest{
		Email:           "Asha@Example.com ",
		Password:        "s3cret-pass",
		ConfirmPassword: "s3cret-pass",
		FirstName:       "Asha",
		LastName:        "Agarwal",
		Gotra:           "Garg",
		Locality:        "Civil Lines",
	}
}

func fieldNames(err *APIError) map[string]bool {
	m := make(map[string]bool)
	if err == nil {
		return m
	}
	for _, fe := range err.Errors {
		m[fe.Field] = true
	}
	return m
}

// ---------------------------------------------------------------------------
// TestRegisterRequestValidate
// ---------------------------------------------------------------------------

func TestRegisterRequestValidate(t *testing.T) {
	tests := []struct {
		name       string
		modify     func(r *RegisterRequest)
		wantFields []string
	}{
		{
			name:   "valid request accepted",
			modify: func(r *RegisterRequest) {},
		},
		{
			name:       "invalid email rejected",
			modify:     func(r *RegisterRequest) { r.Email = "not-an-email" },
			wantFields: []string{"email"},
		},
		{
			name: "short password rejected",
			modify: func(r *RegisterRequest) {
				r.Password = "short"
				r.ConfirmPassword = "short"
			},
			wantFields: []string{"password"},
		},
		{
			name:       "mismatched confirmation rejected",
			modify:     func(r *RegisterRequest) { r.ConfirmPassword = "different-pass" },
			wantFields: []string{"confirmPassword"},
		},
		{
			name:       "one-letter gotra rejected",
			modify:     func(r *RegisterRequest) { r.Gotra = "G" },
			wantFields: []string{"gotra"},
		},
		{
			name:       "whitespace-only names rejected",
			modify:     func(r *RegisterRequest) { r.FirstName = "   "; r.LastName = " a " },
			wantFields: []string{"firstName", "lastName"},
		},
		{
			name: "every problem reported at once",
			modify: func(r *RegisterRequest) {
				*r = RegisterRequest{}
			},
			wantFields: []string{"email", "password", "firstName", "lastName", "gotra", "locality"},
		},
		{
			name:   "optional fields may be empty",
			modify: func(r *RegisterRequest) { r.Phone = ""; r.Occupation = ""; r.FatherName = "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRegistration()
			tt.modify(req)
			err := req.Validate()

			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error for %v", tt.wantFields)
			}
			if err.Type != ErrorTypeValidation {
				t.Errorf("Type = %q, want %q", err.Type, ErrorTypeValidation)
			}
			got := fieldNames(err)
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("missing field error for %q (got %v)", f, err.Errors)
				}
			}
			if len(got) != len(tt.wantFields) {
				t.Errorf("got %d field errors, want %d: %v", len(got), len(tt.wantFields), err.Errors)
			}
		})
	}
}

func TestRegisterRequestNormalizesEmail(t *testing.T) {
	req := validRegistration()
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if req.Email != "asha@example.com" {
		t.Errorf("Email = %q, want %q", req.Email, "asha@example.com")
	}
}

func TestRegisterRequestConfirmMessage(t *testing.T) {
	req := validRegistration()
	req.ConfirmPassword = "nope-nope-nope"
	err := req.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	if err.Errors[0].Message != "Passwords don't match" {
		t.Errorf("message = %q, want %q", err.Errors[0].Message, "Passwords don't match")
	}
}

func TestRegisterRequestProfile(t *testing.T) {
	req := validRegistration()
	req.Occupation = "Teacher"
	req.Validate()

	p := req.Profile("AGR12345678ABCD")
	if p.MembershipNo != "AGR12345678ABCD" {
		t.Errorf("MembershipNo = %q", p.MembershipNo)
	}
	if p.FirstName != "Asha" || p.Gotra != "Garg" || p.Occupation != "Teacher" {
		t.Errorf("profile fields not copied: %+v", p)
	}
}

// ---------------------------------------------------------------------------
// TestLoginRequestValidate
// ---------------------------------------------------------------------------

func TestLoginRequestValidate(t *testing.T) {
	tests := []struct {
		name       string
		req        LoginRequest
		wantFields []string
	}{
		{"valid", LoginRequest{Email: "a@b.com", Password: "x"}, nil},
		{"uppercase email accepted", LoginRequest{Email: " A@B.COM", Password: "x"}, nil},
		{"missing password", LoginRequest{Email: "a@b.com"}, []string{"password"}},
		{"bad email", LoginRequest{Email: "a@b", Password: "x"}, []string{"email"}},
		{"empty", LoginRequest{}, []string{"email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := req.Validate()
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				if req.Email != NormalizeEmail(tt.req.Email) {
					t.Errorf("Email = %q, want normalized", req.Email)
				}
				return
			}
			got := fieldNames(err)
			for _, f := range tt.wantFields {
				if !got[f] {
					t.Errorf("missing field error for %q", f)
				}
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDecisionRequest
// ---------------------------------------------------------------------------

func TestDecisionRequestValidate(t *testing.T) {
	tests := []struct {
		action     DecisionAction
		wantErr    bool
		wantStatus AccountStatus
	}{
		{DecisionApprove, false, AccountStatusActive},
		{DecisionReject, false, AccountStatusRejected},
		{"suspend", true, ""},
		{"", true, ""},
		{"APPROVE", true, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			req := &DecisionRequest{Action: tt.action}
			err := req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && req.TargetStatus() != tt.wantStatus {
				t.Errorf("TargetStatus() = %q, want %q", req.TargetStatus(), tt.wantStatus)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestParsePageParams
// ---------------------------------------------------------------------------

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		page, limit         string
		wantPage, wantLimit int
	}{
		{"", "", 1, DefaultPageLimit},
		{"3", "25", 3, 25},
		{"0", "-5", 1, DefaultPageLimit},
		{"abc", "xyz", 1, DefaultPageLimit},
		{"2", "1000", 2, MaxPageLimit},
		{"9223372036854775807", "100", MaxPage, MaxPageLimit},
		{"99999999999999999999", "", 1, DefaultPageLimit},
	}

	for _, tt := range tests {
		page, limit := ParsePageParams(tt.page, tt.limit)
		if page != tt.wantPage || limit != tt.wantLimit {
			t.Errorf("ParsePageParams(%q, %q) = (%d, %d), want (%d, %d)",
				tt.page, tt.limit, page, limit, tt.wantPage, tt.wantLimit)
		}
	}
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(2, 10, 21)
	if p.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", p.TotalPages)
	}
	if p.CurrentPage != 2 || p.TotalCount != 21 || p.Limit != 10 {
		t.Errorf("unexpected pagination %+v", p)
	}

	empty := NewPagination(1, 10, 0)
	if empty.TotalPages != 0 {
		t.Errorf("TotalPages for empty listing = %d, want 0", empty.TotalPages)
	}
}
