package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"finrep.org/internal/authz"
	"finrep.org/internal/org"
)

type createClusterRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type createCompanyRequest struct {
	ClusterID string `json:"cluster_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

type setRoleRequest struct {
	Role authz.Role `json:"role"`
}

func (a *API) handleClusters(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		clusters, err := a.orgs.ListClusters(r.Context())
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
	case http.MethodPost:
		var req createClusterRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.orgs.CreateCluster(r.Context(), actor, req.Name, req.Code)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCompanies(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		companies, err := a.orgs.ListCompanies(r.Context(), actor)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"companies": companies})
	case http.MethodPost:
		var req createCompanyRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.orgs.CreateCompany(r.Context(), actor, req.ClusterID, req.Name, req.Code)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/companies/%s", c.ID))
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleCompanyResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/companies/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "active" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.orgs.SetCompanyActive(r.Context(), actor, parts[0], req.Active); err != nil {
		handleOrgError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": parts[0], "active": req.Active})
}

func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := a.orgs.ListUsers(r.Context(), actor)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var in org.CreateUserInput
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		u, err := a.orgs.CreateUser(r.Context(), actor, in)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/v1/users/%s", u.ID))
		writeJSON(w, http.StatusCreated, u)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	actor, ok := a.actorFrom(w, r)
	if !ok {
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/users/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	userID := parts[0]

	switch parts[1] {
	case "role":
		var req setRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		u, err := a.orgs.SetUserRole(r.Context(), actor, userID, req.Role)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	case "active":
		var req setActiveRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		u, err := a.orgs.SetUserActive(r.Context(), actor, userID, req.Active)
		if err != nil {
			handleOrgError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, u)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
