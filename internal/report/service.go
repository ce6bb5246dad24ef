package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"finrep.org/internal/audit"
	"finrep.org/internal/authz"
	"finrep.org/internal/ids"
	"finrep.org/internal/obs"
)

// Service runs the report workflow. Every mutation consults the authorization
// facade first, then executes the transition and its audit record in one
// store transaction. Denied attempts are recorded too; nothing is persisted
// for the caller on a denial.
type Service struct {
	store Store
	auth  *authz.Authorizer
	rec   *audit.Recorder
	now   func() time.Time
}

func NewService(store Store, auth *authz.Authorizer, rec *audit.Recorder) (*Service, error) {
	if store == nil {
		return nil, errors.New("report: store is required")
	}
	if auth == nil {
		return nil, errors.New("report: authorizer is required")
	}
	if rec == nil {
		return nil, errors.New("report: audit recorder is required")
	}
	return &Service{store: store, auth: auth, rec: rec, now: func() time.Time { return time.Now().UTC() }}, nil
}

// CreateInput identifies the fiscal period a new draft covers.
type CreateInput struct {
	CompanyID   string `json:"company_id"`
	FiscalYear  int    `json:"fiscal_year"`
	FiscalMonth int    `json:"fiscal_month"`
	Type        Type   `json:"type"`
}

func (in CreateInput) validate() error {
	if strings.TrimSpace(in.CompanyID) == "" {
		return fmt.Errorf("%w: company_id is required", ErrInvalidInput)
	}
	if in.FiscalYear < 1900 || in.FiscalYear > 9999 {
		return fmt.Errorf("%w: fiscal_year %d out of range", ErrInvalidInput, in.FiscalYear)
	}
	if in.FiscalMonth < 1 || in.FiscalMonth > 12 {
		return fmt.Errorf("%w: fiscal_month must be 1-12", ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unsupported report type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

// Create opens a draft for the actor's company and period.
func (s *Service) Create(ctx context.Context, actor authz.Actor, in CreateInput) (Report, error) {
	if err := in.validate(); err != nil {
		return Report{}, err
	}
	res := authz.Resource{Type: "report", CompanyID: in.CompanyID}
	dec, err := s.auth.Authorize(ctx, actor, authz.ActionCreateReport, res)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted {
		s.recordDenied(ctx, string(authz.ActionCreateReport), "report", "", actor, dec.Deny)
		return Report{}, dec.Err()
	}

	now := s.now()
	rep := Report{
		ID:          ids.New(),
		CompanyID:   in.CompanyID,
		FiscalYear:  in.FiscalYear,
		FiscalMonth: in.FiscalMonth,
		Type:        in.Type,
		Status:      StatusDraft,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	details := fmt.Sprintf("period %d-%02d %s", in.FiscalYear, in.FiscalMonth, in.Type)
	entry := audit.NewEntry(ctx, "report.create", "report", rep.ID, actor, details)
	if err := s.store.CreateDraft(ctx, &rep, &entry); err != nil {
		return Report{}, err
	}
	s.rec.Emit(entry)
	return rep, nil
}

// Submit moves a draft into review. The draft's creator may submit it even if
// their scope has since narrowed; anyone else needs company access.
func (s *Service) Submit(ctx context.Context, actor authz.Actor, reportID string) (Report, error) {
	rep, err := s.load(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	dec, err := s.auth.Authorize(ctx, actor, authz.ActionSubmitReport, authz.Resource{Type: "report", ID: rep.ID, CompanyID: rep.CompanyID})
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted && dec.Deny.CompanyID != "" && actor.Active && actor.ID == rep.CreatedBy {
		// Owner override applies only to scope denials; the capability
		// requirement already passed when the denial names a company.
		dec = authz.Decision{Granted: true, Capability: dec.Capability}
	}
	if !dec.Granted {
		s.recordDenied(ctx, string(authz.ActionSubmitReport), "report", rep.ID, actor, dec.Deny)
		return Report{}, dec.Err()
	}
	if err := checkTransition(rep.Status, StatusSubmitted); err != nil {
		return Report{}, err
	}

	now := s.now()
	updated := *rep
	updated.Status = StatusSubmitted
	updated.SubmittedBy = actor.ID
	updated.SubmittedAt = &now
	updated.UpdatedAt = now

	entry := audit.NewEntry(ctx, "report.submit", "report", rep.ID, actor, "")
	if err := s.store.Transition(ctx, &updated, StatusDraft, &entry); err != nil {
		return Report{}, err
	}
	s.rec.Emit(entry)
	obs.ReportTransition(string(StatusSubmitted))
	return updated, nil
}

// Approve finishes review successfully. The optional reason goes into the
// audit details, never onto the report row.
func (s *Service) Approve(ctx context.Context, actor authz.Actor, reportID, reason string) (Report, error) {
	rep, err := s.load(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	dec, err := s.auth.Authorize(ctx, actor, authz.ActionApproveReport, authz.Resource{Type: "report", ID: rep.ID, CompanyID: rep.CompanyID})
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted {
		s.recordDenied(ctx, string(authz.ActionApproveReport), "report", rep.ID, actor, dec.Deny)
		return Report{}, dec.Err()
	}
	if err := checkTransition(rep.Status, StatusApproved); err != nil {
		return Report{}, err
	}

	now := s.now()
	updated := *rep
	updated.Status = StatusApproved
	updated.ApprovedBy = actor.ID
	updated.ApprovedAt = &now
	updated.UpdatedAt = now

	entry := audit.NewEntry(ctx, "report.approve", "report", rep.ID, actor, strings.TrimSpace(reason))
	if err := s.store.Transition(ctx, &updated, StatusSubmitted, &entry); err != nil {
		return Report{}, err
	}
	s.rec.Emit(entry)
	obs.ReportTransition(string(StatusApproved))
	return updated, nil
}

// Reject finishes review unsuccessfully. A non-empty reason is required and
// is stored on the report. Rejection is terminal; resubmission means a new
// draft for the same period.
func (s *Service) Reject(ctx context.Context, actor authz.Actor, reportID, reason string) (Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Report{}, fmt.Errorf("%w: rejection reason is required", ErrInvalidInput)
	}
	rep, err := s.load(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	dec, err := s.auth.Authorize(ctx, actor, authz.ActionRejectReport, authz.Resource{Type: "report", ID: rep.ID, CompanyID: rep.CompanyID})
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted {
		s.recordDenied(ctx, string(authz.ActionRejectReport), "report", rep.ID, actor, dec.Deny)
		return Report{}, dec.Err()
	}
	if err := checkTransition(rep.Status, StatusRejected); err != nil {
		return Report{}, err
	}

	now := s.now()
	updated := *rep
	updated.Status = StatusRejected
	updated.RejectionReason = reason
	updated.UpdatedAt = now

	entry := audit.NewEntry(ctx, "report.reject", "report", rep.ID, actor, reason)
	if err := s.store.Transition(ctx, &updated, StatusSubmitted, &entry); err != nil {
		return Report{}, err
	}
	s.rec.Emit(entry)
	obs.ReportTransition(string(StatusRejected))
	return updated, nil
}

// Get returns one report if it lies within the actor's scope. Out-of-scope
// reports are indistinguishable from missing ones.
func (s *Service) Get(ctx context.Context, actor authz.Actor, reportID string) (Report, error) {
	rep, err := s.load(ctx, reportID)
	if err != nil {
		return Report{}, err
	}
	ok, err := s.auth.Scope().CanAccessCompany(ctx, actor, rep.CompanyID)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return Report{}, ErrNotFound
	}
	return *rep, nil
}

// List returns every report in the actor's scope.
func (s *Service) List(ctx context.Context, actor authz.Actor) ([]Report, error) {
	scope, err := s.auth.Scope().AccessibleCompanyIDs(ctx, actor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(scope) == 0 {
		return []Report{}, nil
	}
	companies := make([]string, 0, len(scope))
	for id := range scope {
		companies = append(companies, id)
	}
	return s.store.ListByCompanies(ctx, companies)
}

// AddComment appends discussion to a report the actor can see.
func (s *Service) AddComment(ctx context.Context, actor authz.Actor, reportID, content string) (Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Comment{}, fmt.Errorf("%w: comment content is required", ErrInvalidInput)
	}
	rep, err := s.load(ctx, reportID)
	if err != nil {
		return Comment{}, err
	}
	dec, err := s.auth.Authorize(ctx, actor, authz.ActionCommentReport, authz.Resource{Type: "report", ID: rep.ID, CompanyID: rep.CompanyID})
	if err != nil {
		return Comment{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !dec.Granted {
		s.recordDenied(ctx, string(authz.ActionCommentReport), "report", rep.ID, actor, dec.Deny)
		return Comment{}, dec.Err()
	}

	c := Comment{
		ID:        ids.New(),
		ReportID:  rep.ID,
		AuthorID:  actor.ID,
		Content:   content,
		CreatedAt: s.now(),
	}
	entry := audit.NewEntry(ctx, "report.comment", "report", rep.ID, actor, "")
	if err := s.store.AddComment(ctx, &c, &entry); err != nil {
		return Comment{}, err
	}
	s.rec.Emit(entry)
	return c, nil
}

// ListComments returns a report's comments, oldest first.
func (s *Service) ListComments(ctx context.Context, actor authz.Actor, reportID string) ([]Comment, error) {
	if _, err := s.Get(ctx, actor, reportID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, reportID)
}

func (s *Service) load(ctx context.Context, reportID string) (*Report, error) {
	reportID = strings.TrimSpace(reportID)
	if reportID == "" {
		return nil, fmt.Errorf("%w: report id is required", ErrInvalidInput)
	}
	return s.store.Find(ctx, reportID)
}

// recordDenied persists the denial trail. The denial itself is what the
// caller gets back; a failed denial record is logged, not substituted.
func (s *Service) recordDenied(ctx context.Context, attempted, entityType, entityID string, actor authz.Actor, deny *authz.DeniedError) {
	if _, err := s.rec.RecordDenied(ctx, attempted, entityType, entityID, actor, deny); err != nil {
		obs.LogRequest(map[string]any{"level": "error", "msg": "denied audit record failed", "error": err.Error()})
	}
}
