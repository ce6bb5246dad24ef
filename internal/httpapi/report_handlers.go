package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"finrep.org/internal/report"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

type approveRequest struct {
	Reason string `json:"reason"`
}

type commentRequest struct {
	Content string `json:"content"`
}

func (a *API) handleReports(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		reports, err := a.reports.List(r.Context(), actor)
		if err != nil {
			handleReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": reports})
	case http.MethodPost:
		var in report.CreateInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		rep, err := a.reports.Create(r.Context(), actor, in)
		if err != nil {
			handleReportError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/reports/%s", rep.ID))
		writeJSON(w, http.StatusCreated, rep)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleReportResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/reports/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	reportID := parts[0]

	switch len(parts) {
	case 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		rep, err := a.reports.Get(r.Context(), actor, reportID)
		if err != nil {
			handleReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, rep)
	case 2:
		switch parts[1] {
		case "submit":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			rep, err := a.reports.Submit(r.Context(), actor, reportID)
			if err != nil {
				handleReportError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rep)
		case "approve":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			var req approveRequest
			if err := decodeJSONOptional(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			rep, err := a.reports.Approve(r.Context(), actor, reportID, req.Reason)
			if err != nil {
				handleReportError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rep)
		case "reject":
			if r.Method != http.MethodPost {
				methodNotAllowed(w, r, http.MethodPost)
				return
			}
			var req rejectRequest
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			rep, err := a.reports.Reject(r.Context(), actor, reportID, req.Reason)
			if err != nil {
				handleReportError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, rep)
		case "comments":
			a.handleReportComments(w, r, reportID)
		default:
			writeError(w, r, http.StatusNotFound, "resource not found")
		}
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleReportComments(w http.ResponseWriter, r *http.Request, reportID string) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		comments, err := a.reports.ListComments(r.Context(), actor, reportID)
		if err != nil {
			handleReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
	case http.MethodPost:
		var req commentRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.reports.AddComment(r.Context(), actor, reportID, req.Content)
		if err != nil {
			handleReportError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
