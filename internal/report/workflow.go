package report

// transitions lists the legal workflow edges. Draft is initial; Approved and
// Rejected are terminal for the instance.
var transitions = map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
}

// CanTransition reports whether the workflow permits moving from one status
// to another. Capability and scope guards are the facade's job; this is the
// state machine alone.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns the typed error for an illegal edge.
func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
