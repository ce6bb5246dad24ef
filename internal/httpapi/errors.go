package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"finrep.org/internal/audit"
	"finrep.org/internal/authz"
	"finrep.org/internal/org"
	"finrep.org/internal/report"
)

const maxBodyBytes = 1 << 20

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"error":      msg,
		"request_id": RequestIDFromContext(r.Context()),
	})
}

// decodeJSON reads a request body into v, rejecting unknown fields and
// trailing garbage. The body is required.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body required")
		}
		return fmt.Errorf("invalid request body: %v", err)
	}
	if dec.More() {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// decodeJSONOptional is decodeJSON for endpoints where an empty body is fine.
func decodeJSONOptional(w http.ResponseWriter, r *http.Request, v any) error {
	err := decodeJSON(w, r, v)
	if err != nil && err.Error() == "request body required" {
		return nil
	}
	return err
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func parsePositiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

func handleReportError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrDenied):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, report.ErrDuplicatePeriod):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, report.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "report not found")
	case errors.Is(err, report.ErrInvalidInput), errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, report.ErrUnavailable), errors.Is(err, authz.ErrUnavailable), errors.Is(err, audit.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleOrgError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrDenied):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, org.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, org.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, org.ErrInvalidInput), errors.Is(err, authz.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, org.ErrUnavailable), errors.Is(err, authz.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleAuditError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, authz.ErrDenied):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, audit.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, audit.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "storage unavailable")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
