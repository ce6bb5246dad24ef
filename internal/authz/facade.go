package authz

import (
	"context"
	"fmt"

	"finrep.org/internal/obs"
)

// Action identifies a privileged operation a caller wants to perform.
type Action string

const (
	ActionCreateReport    Action = "report.create"
	ActionSubmitReport    Action = "report.submit"
	ActionApproveReport   Action = "report.approve"
	ActionRejectReport    Action = "report.reject"
	ActionCommentReport   Action = "report.comment"
	ActionManageUsers     Action = "user.manage"
	ActionManageCompanies Action = "company.manage"
	ActionViewAuditLog    Action = "audit.view"
)

// actionCapabilities maps every action to the capability it requires.
var actionCapabilities = map[Action]Capability{
	ActionCreateReport:    CapCreateReport,
	ActionSubmitReport:    CapCreateReport,
	ActionApproveReport:   CapApproveReport,
	ActionRejectReport:    CapApproveReport,
	ActionCommentReport:   CapCommentReport,
	ActionManageUsers:     CapManageUsers,
	ActionManageCompanies: CapManageCompanies,
	ActionViewAuditLog:    CapViewAuditLog,
}

// Resource describes the target of an action. CompanyID, when set, is checked
// against the actor's scope.
type Resource struct {
	Type      string
	ID        string
	CompanyID string
}

// Decision is the outcome of an authorization check. Deny carries the typed
// denial so callers can both log it and return it.
type Decision struct {
	Granted    bool
	Capability Capability
	Deny       *DeniedError
}

// Err returns the denial as an error, or nil when granted.
func (d Decision) Err() error {
	if d.Granted {
		return nil
	}
	return d.Deny
}

// Authorizer is the single entry point for "can actor A perform action X on
// resource R". It composes the static capability table with the scope
// resolver; it is the only authorization surface other packages depend on.
type Authorizer struct {
	scope *ScopeResolver
}

func NewAuthorizer(scope *ScopeResolver) *Authorizer {
	return &Authorizer{scope: scope}
}

// Scope exposes the underlying resolver for company-filtered listings.
func (a *Authorizer) Scope() *ScopeResolver { return a.scope }

// Authorize evaluates the capability and scope requirements of action against
// actor. A non-nil error is returned only for directory failures; a denial is
// a Decision with Granted=false, never a silent downgrade.
func (a *Authorizer) Authorize(ctx context.Context, actor Actor, action Action, res Resource) (Decision, error) {
	capability, ok := actionCapabilities[action]
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown action %q", ErrInvalidInput, action)
	}
	if !actor.Active || !HasCapability(actor.Role, capability) {
		obs.AuthzDenied(string(action))
		return Decision{Capability: capability, Deny: &DeniedError{Capability: capability}}, nil
	}
	if res.CompanyID != "" {
		ok, err := a.scope.CanAccessCompany(ctx, actor, res.CompanyID)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !ok {
			obs.AuthzDenied(string(action))
			return Decision{Capability: capability, Deny: &DeniedError{Capability: capability, CompanyID: res.CompanyID}}, nil
		}
	}
	obs.AuthzGranted(string(action))
	return Decision{Granted: true, Capability: capability}, nil
}
