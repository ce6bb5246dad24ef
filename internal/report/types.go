package report

import (
	"errors"
	"fmt"
	"time"
)

// Status is a report's position in the review workflow.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

// Terminal reports whether no further transition may leave s. A rejected
// report is not reopened; a corrected report is a fresh draft for the same
// period.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Type distinguishes actual figures from budget figures.
type Type string

const (
	TypeActual Type = "actual"
	TypeBudget Type = "budget"
)

// Valid reports whether t is a defined report type.
func (t Type) Valid() bool { return t == TypeActual || t == TypeBudget }

// Report is one company's financial report for a fiscal period. At most one
// non-rejected report exists per (company, year, month, type).
type Report struct {
	ID              string     `json:"id"`
	CompanyID       string     `json:"company_id"`
	FiscalYear      int        `json:"fiscal_year"`
	FiscalMonth     int        `json:"fiscal_month"`
	Type            Type       `json:"type"`
	Status          Status     `json:"status"`
	CreatedBy       string     `json:"created_by"`
	SubmittedBy     string     `json:"submitted_by,omitempty"`
	ApprovedBy      string     `json:"approved_by,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	SubmittedAt     *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// Comment is free-text discussion attached to a report. Append-only; never
// edited.
type Comment struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrNotFound          = errors.New("report: not found")
	ErrInvalidInput      = errors.New("report: invalid input")
	ErrDuplicatePeriod   = errors.New("report: a report for this period already exists; edit the existing draft instead")
	ErrInvalidTransition = errors.New("report: invalid transition")
	ErrUnavailable       = errors.New("report: store unavailable")
)

// InvalidTransitionError identifies the current and requested states of a
// transition attempted out of order. A caller bug, not a retryable condition.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("report: invalid transition from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }
