package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"finrep.org/internal/audit"
	"finrep.org/internal/report"
)

var _ report.Store = (*Store)(nil)

const reportColumns = `id, company_id, fiscal_year, fiscal_month, report_type, status,
	created_by, submitted_by, approved_by, rejection_reason, created_at, updated_at, submitted_at, approved_at`

// Find loads one report row.
func (s *Store) Find(ctx context.Context, id string) (*report.Report, error) {
	row := s.db.QueryRowContext(ctx, `select `+reportColumns+` from reports where id=$1`, id)
	rep, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, report.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// ListByCompanies returns reports for the given companies, newest period
// first. The caller has already intersected companyIDs with the actor scope.
func (s *Store) ListByCompanies(ctx context.Context, companyIDs []string) ([]report.Report, error) {
	if len(companyIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(companyIDs))
	args := make([]any, len(companyIDs))
	for i, id := range companyIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `select ` + reportColumns + ` from reports
		where company_id in (` + strings.Join(placeholders, ",") + `)
		order by fiscal_year desc, fiscal_month desc, created_at desc`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []report.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rep)
	}
	return result, rows.Err()
}

// CreateDraft inserts the draft and its audit entry in one transaction. The
// partial unique index on non-rejected periods turns a second draft for an
// occupied period into ErrDuplicatePeriod.
func (s *Store) CreateDraft(ctx context.Context, rep *report.Report, entry *audit.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into reports(id, company_id, fiscal_year, fiscal_month, report_type, status, created_by, created_at, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, rep.ID, rep.CompanyID, rep.FiscalYear, rep.FiscalMonth, rep.Type, rep.Status, rep.CreatedBy, rep.CreatedAt, rep.UpdatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok {
			switch pgErr.Code {
			case pgErrUniqueViolation:
				return report.ErrDuplicatePeriod
			case pgErrForeignKeyViolation:
				return fmt.Errorf("%w: company %s", report.ErrNotFound, rep.CompanyID)
			}
		}
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	if err := appendAuditTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	return nil
}

// Transition re-checks the stored status under a row lock, then writes the
// updated report and the audit entry atomically. Two racing transitions on
// the same report serialize here; the loser sees the new status and gets
// InvalidTransitionError while the row stays untouched.
func (s *Store) Transition(ctx context.Context, updated *report.Report, from report.Status, entry *audit.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var current report.Status
	err = tx.QueryRowContext(ctx, `select status from reports where id=$1 for update`, updated.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return report.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	if current != from {
		return &report.InvalidTransitionError{From: current, To: updated.Status}
	}

	_, err = tx.ExecContext(ctx, `
		update reports
		set status=$2, submitted_by=$3, approved_by=$4, rejection_reason=$5,
			updated_at=$6, submitted_at=$7, approved_at=$8
		where id=$1
	`, updated.ID, updated.Status, nullIfEmpty(updated.SubmittedBy), nullIfEmpty(updated.ApprovedBy),
		nullIfEmpty(updated.RejectionReason), updated.UpdatedAt, updated.SubmittedAt, updated.ApprovedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	if err := appendAuditTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	return nil
}

// AddComment appends a comment and its audit entry in one transaction.
func (s *Store) AddComment(ctx context.Context, c *report.Comment, entry *audit.Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		insert into report_comments(id, report_id, author_id, content, created_at)
		values ($1,$2,$3,$4,$5)
	`, c.ID, c.ReportID, c.AuthorID, c.Content, c.CreatedAt)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return report.ErrNotFound
		}
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	if err := appendAuditTx(ctx, tx, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", report.ErrUnavailable, err)
	}
	return nil
}

// ListComments returns a report's comments, oldest first.
func (s *Store) ListComments(ctx context.Context, reportID string) ([]report.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, report_id, author_id, content, created_at
		from report_comments where report_id=$1 order by created_at asc
	`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comments []report.Comment
	for rows.Next() {
		var c report.Comment
		if err := rows.Scan(&c.ID, &c.ReportID, &c.AuthorID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func appendAuditTx(ctx context.Context, tx *sql.Tx, entry *audit.Entry) error {
	if err := appendAudit(ctx, tx, entry); err != nil {
		return fmt.Errorf("%w: audit append: %v", report.ErrUnavailable, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*report.Report, error) {
	var (
		rep             report.Report
		submittedBy     sql.NullString
		approvedBy      sql.NullString
		rejectionReason sql.NullString
		submittedAt     sql.NullTime
		approvedAt      sql.NullTime
	)
	err := row.Scan(&rep.ID, &rep.CompanyID, &rep.FiscalYear, &rep.FiscalMonth, &rep.Type, &rep.Status,
		&rep.CreatedBy, &submittedBy, &approvedBy, &rejectionReason,
		&rep.CreatedAt, &rep.UpdatedAt, &submittedAt, &approvedAt)
	if err != nil {
		return nil, err
	}
	rep.SubmittedBy = fromNull(submittedBy)
	rep.ApprovedBy = fromNull(approvedBy)
	rep.RejectionReason = fromNull(rejectionReason)
	if submittedAt.Valid {
		t := submittedAt.Time
		rep.SubmittedAt = &t
	}
	if approvedAt.Valid {
		t := approvedAt.Time
		rep.ApprovedAt = &t
	}
	return &rep, nil
}
