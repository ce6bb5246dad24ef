package authz

// Role is the closed set of user roles. Roles are immutable per user at a
// point in time; only a ManageUsers-capable action may change one.
type Role string

const (
	RoleDataOfficer Role = "data_officer"
	RoleDirector    Role = "director"
	RoleAdmin       Role = "admin"
	RoleCEO         Role = "ceo"
)

// Roles lists every valid role, in display order.
var Roles = []Role{RoleDataOfficer, RoleDirector, RoleAdmin, RoleCEO}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleDataOfficer, RoleDirector, RoleAdmin, RoleCEO:
		return true
	}
	return false
}

// Capability is an atomic permission granted per role. Capabilities are never
// combined dynamically; the grant set per role is fixed below.
type Capability string

const (
	CapCreateReport     Capability = "report.create"
	CapApproveReport    Capability = "report.approve"
	CapCommentReport    Capability = "report.comment"
	CapManageUsers      Capability = "user.manage"
	CapManageCompanies  Capability = "company.manage"
	CapViewAllCompanies Capability = "company.view_all"
	CapViewAuditLog     Capability = "audit.view"
)

// capabilityTable is the static role→capability grant table. It is fixed at
// definition time; nothing mutates it at runtime.
var capabilityTable = map[Role][]Capability{
	RoleDataOfficer: {
		CapCreateReport,
		CapCommentReport,
	},
	RoleDirector: {
		CapCreateReport,
		CapApproveReport,
		CapCommentReport,
	},
	RoleAdmin: {
		CapCreateReport,
		CapApproveReport,
		CapCommentReport,
		CapManageUsers,
		CapManageCompanies,
		CapViewAllCompanies,
		CapViewAuditLog,
	},
	RoleCEO: {
		CapApproveReport,
		CapCommentReport,
		CapViewAllCompanies,
		CapViewAuditLog,
	},
}

// CapabilitiesFor returns the capability set granted to role. Total for every
// defined role; an undefined role has no grants.
func CapabilitiesFor(role Role) map[Capability]struct{} {
	caps := capabilityTable[role]
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// HasCapability reports whether role is granted capability.
func HasCapability(role Role, capability Capability) bool {
	for _, c := range capabilityTable[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// HasAny reports whether role holds at least one of caps.
func HasAny(role Role, caps ...Capability) bool {
	for _, c := range caps {
		if HasCapability(role, c) {
			return true
		}
	}
	return false
}

// HasAll reports whether role holds every one of caps.
func HasAll(role Role, caps ...Capability) bool {
	for _, c := range caps {
		if !HasCapability(role, c) {
			return false
		}
	}
	return true
}
