package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"finrep.org/internal/authz"
	"finrep.org/internal/org"
)

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into users").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})
	mock.ExpectRollback()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &org.User{ID: "u-1", Email: "officer@fin.example", PasswordHash: "x", Role: authz.RoleDataOfficer, Active: true, CreatedAt: now, UpdatedAt: now}
	err := store.CreateUser(context.Background(), u, testEntry("user.create"))
	if !errors.Is(err, org.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateClusterCommitsWithAudit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("insert into clusters").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &authz.Cluster{ID: "cl-1", Name: "West", Code: "WEST", Active: true, CreatedAt: now, UpdatedAt: now}
	if err := store.CreateCluster(context.Background(), c, testEntry("cluster.create")); err != nil {
		t.Fatalf("CreateCluster: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetCompanyActiveMissingRow(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("update companies set active").
		WithArgs("co-missing", false).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.SetCompanyActive(context.Background(), "co-missing", false, testEntry("company.set_active"))
	if !errors.Is(err, org.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateUserAppliesPartialChanges(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cols := []string{"id", "email", "password_hash", "role", "company_id", "cluster_id", "active", "created_at", "updated_at"}

	mock.ExpectBegin()
	mock.ExpectQuery("select .* from users where id=.* for update").
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("u-1", "officer@fin.example", "hash", "data_officer", "co-1", nil, true, now, now))
	mock.ExpectExec("update users set").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("insert into audit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	role := authz.RoleDirector
	u, err := store.UpdateUser(context.Background(), "u-1", org.UserUpdate{Role: &role}, testEntry("user.set_role"))
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Role != authz.RoleDirector {
		t.Fatalf("role not applied: %s", u.Role)
	}
	if u.Email != "officer@fin.example" || u.CompanyID != "co-1" || u.ClusterID != "" {
		t.Fatalf("untouched fields lost: %+v", u)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActiveCompanyIDsInCluster(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select id from companies where active and cluster_id=").
		WithArgs("cl-1").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("co-1").AddRow("co-2"))

	ids, err := store.ActiveCompanyIDsInCluster(context.Background(), "cl-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "co-1" {
		t.Fatalf("unexpected ids: %v", ids)
	}
}

func TestFindUserMissing(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("select .* from users where id=").
		WithArgs("u-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := store.FindUser(context.Background(), "u-missing"); !errors.Is(err, org.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
