package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"finrep.org/internal/audit"
	"finrep.org/internal/report"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func testEntry(action string) *audit.Entry {
	return &audit.Entry{
		ID:         "e-1",
		OccurredAt: time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		ActorID:    "u-1",
		ActorEmail: "officer@fin.example",
		Action:     action,
		EntityType: "report",
		EntityID:   "r-1",
	}
}

func testReport() *report.Report {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return &report.Report{
		ID:          "r-1",
		CompanyID:   "co-1",
		FiscalYear:  2026,
		FiscalMonth: 1,
		Type:        report.TypeActual,
		Status:      report.StatusDraft,
		CreatedBy:   "u-1",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestCreateDraftCommitsWithAudit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into reports").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.CreateDraft(context.Background(), testReport(), testEntry("report.create")); err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateDraftDuplicatePeriod(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into reports").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	err := store.CreateDraft(context.Background(), testReport(), testEntry("report.create"))
	if !errors.Is(err, report.ErrDuplicatePeriod) {
		t.Fatalf("expected ErrDuplicatePeriod, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateDraftUnknownCompany(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into reports").
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation})
	mock.ExpectRollback()

	err := store.CreateDraft(context.Background(), testReport(), testEntry("report.create"))
	if !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateDraftAuditFailureAborts(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into reports").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.CreateDraft(context.Background(), testReport(), testEntry("report.create"))
	if !errors.Is(err, report.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionRechecksUnderLock(t *testing.T) {
	store, mock := newMockStore(t)

	updated := testReport()
	updated.Status = report.StatusSubmitted
	updated.SubmittedBy = "u-1"

	mock.ExpectBegin()
	mock.ExpectQuery("select status from reports where id=.* for update").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("draft"))
	mock.ExpectExec("update reports").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Transition(context.Background(), updated, report.StatusDraft, testEntry("report.submit")); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionRaceLoserGetsInvalidTransition(t *testing.T) {
	store, mock := newMockStore(t)

	updated := testReport()
	updated.Status = report.StatusApproved

	// Another transition got there first: the row already reads rejected.
	mock.ExpectBegin()
	mock.ExpectQuery("select status from reports where id=.* for update").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("rejected"))
	mock.ExpectRollback()

	err := store.Transition(context.Background(), updated, report.StatusSubmitted, testEntry("report.approve"))
	if !errors.Is(err, report.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var ite *report.InvalidTransitionError
	if !errors.As(err, &ite) || ite.From != report.StatusRejected {
		t.Fatalf("race loser must see the stored status, got %+v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTransitionMissingReport(t *testing.T) {
	store, mock := newMockStore(t)

	updated := testReport()
	updated.Status = report.StatusSubmitted

	mock.ExpectBegin()
	mock.ExpectQuery("select status from reports where id=.* for update").
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	err := store.Transition(context.Background(), updated, report.StatusDraft, testEntry("report.submit"))
	if !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindMissingReport(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from reports where id=").
		WithArgs("r-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.Find(context.Background(), "r-missing"); !errors.Is(err, report.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByCompaniesEmptyInput(t *testing.T) {
	store, _ := newMockStore(t)
	got, err := store.ListByCompanies(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected no query and no rows, got %v", got)
	}
}
