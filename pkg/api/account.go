package api

import "time"

// Role determines which routes an account may reach.
type Role string

const (
	RoleMember     Role = "MEMBER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)

// IsAdmin reports whether the role grants access to admin-prefixed routes.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleMember, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusPending   AccountStatus = "PENDING"
	AccountStatusActive    AccountStatus = "ACTIVE"
	AccountStatusRejected  AccountStatus = "REJECTED"
	AccountStatusSuspended AccountStatus = "SUSPENDED"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case AccountStatusPending, AccountStatusActive, AccountStatusRejected, AccountStatusSuspended:
		return true
	}
	return false
}

// Account is a login credential record with role and lifecycle status.
// Email is stored lowercased; uniqueness is case-insensitive.
type Account struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         Role          `json:"role"`
	Status       AccountStatus `json:"status"`
	IsVerified   bool          `json:"isVerified"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`

	// Profile is nil for accounts created without member details,
	// such as a bootstrapped administrator.
	Profile *Profile `json:"member,omitempty"`
}

// Profile holds the member details captured at registration.
type Profile struct {
	MembershipNo string `json:"membershipNo"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	FatherName   string `json:"fatherName,omitempty"`
	MotherName   string `json:"motherName,omitempty"`
	Gotra        string `json:"gotra"`
	Locality     string `json:"locality"`
	Phone        string `json:"phone,omitempty"`
	Occupation   string `json:"occupation,omitempty"`
	Education    string `json:"education,omitempty"`
}

// FullName returns the member's first and last name, or an empty string
// when no profile exists.
func (a *Account) FullName() string {
	if a.Profile == nil {
		return ""
	}
	return a.Profile.FirstName + " " + a.Profile.LastName
}

// Pagination describes a page of a listing.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
	TotalCount  int `json:"totalCount"`
	Limit       int `json:"limit"`
}

// NewPagination computes page metadata for a listing of totalCount items.
func NewPagination(page, limit, totalCount int) Pagination {
	totalPages := 0
	if limit > 0 {
		totalPages = (totalCount + limit - 1) / limit
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  totalCount,
		Limit:       limit,
	}
}

// AccountPage is one page of accounts.
type AccountPage struct {
	Members    []*Account `json:"members"`
	Pagination Pagination `json:"pagination"`
}

// SuccessResponse is the envelope written for every successful request.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}
