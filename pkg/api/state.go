package api

import "fmt"

// accountTransitions lists the allowed outgoing transitions per status.
// Rejected and suspended are terminal.
var accountTransitions = map[AccountStatus][]AccountStatus{
	"":                     {AccountStatusPending, AccountStatusActive},
	AccountStatusPending:   {AccountStatusActive, AccountStatusRejected},
	AccountStatusActive:    {AccountStatusSuspended},
	AccountStatusRejected:  {},
	AccountStatusSuspended: {},
}

// ValidateStatusTransition checks whether an account status transition is valid.
// An empty "from" status represents an account that does not exist yet: new
// registrations start pending, bootstrapped administrators start active.
func ValidateStatusTransition(from, to AccountStatus) *APIError {
	allowed, exists := accountTransitions[from]
	if !exists {
		return NewAccountStateError(fmt.Sprintf("invalid transition from %s to %s", from, to))
	}

	for _, s := range allowed {
		if s == to {
			return nil
		}
	}

	return NewAccountStateError(fmt.Sprintf("invalid transition from %s to %s", from, to))
}
