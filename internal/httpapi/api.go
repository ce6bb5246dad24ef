package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"finrep.org/internal/audit"
	"finrep.org/internal/authn"
	"finrep.org/internal/authz"
	"finrep.org/internal/obs"
	"finrep.org/internal/org"
	"finrep.org/internal/report"
)

const serviceName = "finrep-api"

// ReadyProbe checks the store before the service reports ready.
type ReadyProbe struct {
	Pinger interface {
		Ping(ctx context.Context) error
	}
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Pinger == nil {
		return nil
	}
	return rp.Pinger.Ping(ctx)
}

// API is the HTTP layer over the workflow engine.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	authn   *authn.Service
	authz   *authz.Authorizer
	reports *report.Service
	orgs    *org.Service
	auditor *audit.Recorder
}

// Config wires the API's collaborators.
type Config struct {
	Ready   ReadyProbe
	Version string
	Authn   *authn.Service
	Authz   *authz.Authorizer
	Reports *report.Service
	Orgs    *org.Service
	Auditor *audit.Recorder
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: cfg.Ready,
		version:    cfg.Version,
		authn:      cfg.Authn,
		authz:      cfg.Authz,
		reports:    cfg.Reports,
		orgs:       cfg.Orgs,
		auditor:    cfg.Auditor,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/reports", a.handleReports)
	a.mux.HandleFunc("/v1/reports/", a.handleReportResource)
	a.mux.HandleFunc("/v1/companies", a.handleCompanies)
	a.mux.HandleFunc("/v1/companies/", a.handleCompanyResource)
	a.mux.HandleFunc("/v1/clusters", a.handleClusters)
	a.mux.HandleFunc("/v1/users", a.handleUsers)
	a.mux.HandleFunc("/v1/users/", a.handleUserResource)
	a.mux.HandleFunc("/v1/audit", a.handleAuditRecent)
	a.mux.HandleFunc("/v1/audit/count", a.handleAuditCount)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = WithClientContext(h)
	h = RateLimit(h, 20, 10)
	h = SecurityHeaders(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
