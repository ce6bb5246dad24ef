package authz

import (
	"errors"
	"fmt"
)

var (
	ErrDenied       = errors.New("authz: denied")
	ErrInvalidInput = errors.New("authz: invalid input")
	ErrUnavailable  = errors.New("authz: store unavailable")
)

// DeniedError carries the missing capability or the out-of-scope company that
// caused a denial. It unwraps to ErrDenied so callers can classify it.
type DeniedError struct {
	Capability Capability
	CompanyID  string
}

func (e *DeniedError) Error() string {
	if e.CompanyID != "" {
		return fmt.Sprintf("authz: denied: company %s out of scope", e.CompanyID)
	}
	return fmt.Sprintf("authz: denied: missing capability %s", e.Capability)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }

// Denied constructs a capability denial.
func Denied(capability Capability) error {
	return &DeniedError{Capability: capability}
}

// DeniedScope constructs an out-of-scope denial.
func DeniedScope(capability Capability, companyID string) error {
	return &DeniedError{Capability: capability, CompanyID: companyID}
}
