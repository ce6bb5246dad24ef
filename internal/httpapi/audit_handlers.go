package httpapi

import (
	"net/http"

	"finrep.org/internal/authz"
)

// authorizeAuditView gates the audit endpoints and records refused attempts,
// same as any other privileged action.
func (a *API) authorizeAuditView(w http.ResponseWriter, r *http.Request) (authz.Actor, bool) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return authz.Actor{}, false
	}
	dec, err := a.authz.Authorize(r.Context(), actor, authz.ActionViewAuditLog, authz.Resource{Type: "audit_log"})
	if err != nil {
		handleAuditError(w, r, err)
		return authz.Actor{}, false
	}
	if !dec.Granted {
		if _, recErr := a.auditor.RecordDenied(r.Context(), string(authz.ActionViewAuditLog), "audit_log", "", actor, dec.Deny); recErr != nil {
			handleAuditError(w, r, recErr)
			return authz.Actor{}, false
		}
		handleAuditError(w, r, dec.Err())
		return authz.Actor{}, false
	}
	return actor, true
}

func (a *API) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorizeAuditView(w, r); !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entries, err := a.auditor.Recent(r.Context(), limit)
	if err != nil {
		handleAuditError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleAuditCount(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if _, ok := a.authorizeAuditView(w, r); !ok {
		return
	}
	n, err := a.auditor.Count(r.Context())
	if err != nil {
		handleAuditError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}
