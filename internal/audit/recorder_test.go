package audit

import (
	"context"
	"errors"
	"strings"
	"testing"

	"finrep.org/internal/authz"
)

type stubStore struct {
	appendFn func(ctx context.Context, entry *Entry) error
	recentFn func(ctx context.Context, limit int) ([]Entry, error)
	countFn  func(ctx context.Context) (int64, error)
}

func (s *stubStore) Append(ctx context.Context, entry *Entry) error {
	return s.appendFn(ctx, entry)
}

func (s *stubStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return s.recentFn(ctx, limit)
}

func (s *stubStore) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func TestRecordPersistsEntry(t *testing.T) {
	var got *Entry
	rec, err := NewRecorder(&stubStore{
		appendFn: func(_ context.Context, entry *Entry) error {
			got = entry
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	actor := authz.Actor{ID: "u1", Email: "officer@fin.example"}
	entry, err := rec.Record(context.Background(), "report.create", "report", "r1", actor, "period 2026-02 actual")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("entry never reached the store")
	}
	if entry.ID == "" || entry.OccurredAt.IsZero() {
		t.Fatal("entry must carry id and timestamp")
	}
	if entry.ActorEmail != "officer@fin.example" || entry.ActorID != "u1" {
		t.Fatalf("actor snapshot wrong: %+v", entry)
	}
}

func TestRecordRequiresAction(t *testing.T) {
	rec, _ := NewRecorder(&stubStore{appendFn: func(context.Context, *Entry) error { return nil }})
	if _, err := rec.Record(context.Background(), "", "report", "r1", authz.Actor{}, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRecordStoreFailureIsUnavailable(t *testing.T) {
	rec, _ := NewRecorder(&stubStore{
		appendFn: func(context.Context, *Entry) error { return errors.New("connection reset") },
	})
	if _, err := rec.Record(context.Background(), "report.create", "report", "r1", authz.Actor{}, ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRecordDeniedDetails(t *testing.T) {
	var got *Entry
	rec, _ := NewRecorder(&stubStore{
		appendFn: func(_ context.Context, entry *Entry) error {
			got = entry
			return nil
		},
	})
	deny := &authz.DeniedError{Capability: authz.CapApproveReport}
	actor := authz.Actor{ID: "u1", Email: "officer@fin.example", Role: authz.RoleDataOfficer}
	if _, err := rec.RecordDenied(context.Background(), "report.approve", "report", "r1", actor, deny); err != nil {
		t.Fatal(err)
	}
	if got.Action != ActionDenied {
		t.Fatalf("expected %s action, got %s", ActionDenied, got.Action)
	}
	if !strings.Contains(got.Details, "attempted report.approve") {
		t.Fatalf("details must name the attempted action: %q", got.Details)
	}
	if !strings.Contains(got.Details, deny.Error()) {
		t.Fatalf("details must carry the denial cause: %q", got.Details)
	}
}

func TestRecentClampsLimit(t *testing.T) {
	var asked []int
	rec, _ := NewRecorder(&stubStore{
		recentFn: func(_ context.Context, limit int) ([]Entry, error) {
			asked = append(asked, limit)
			return nil, nil
		},
	})
	for _, limit := range []int{0, -5, 500, MaxRecentLimit + 1} {
		if _, err := rec.Recent(context.Background(), limit); err != nil {
			t.Fatal(err)
		}
	}
	for _, got := range asked {
		if got != MaxRecentLimit {
			t.Fatalf("limit %d escaped the clamp", got)
		}
	}
	if _, err := rec.Recent(context.Background(), 10); err != nil {
		t.Fatal(err)
	}
	if asked[len(asked)-1] != 10 {
		t.Fatalf("in-range limit must pass through, got %d", asked[len(asked)-1])
	}
}

func TestCountWrapsStoreError(t *testing.T) {
	rec, _ := NewRecorder(&stubStore{
		countFn: func(context.Context) (int64, error) { return 0, errors.New("down") },
	})
	if _, err := rec.Count(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestClientIPContext(t *testing.T) {
	ctx := WithClientIP(context.Background(), "10.1.2.3")
	entry := NewEntry(ctx, "report.create", "report", "r1", authz.Actor{Email: "a@b.c"}, "")
	if entry.ClientIP != "10.1.2.3" {
		t.Fatalf("client ip not captured: %q", entry.ClientIP)
	}
	if got := ClientIPFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty ip without context value, got %q", got)
	}
}
