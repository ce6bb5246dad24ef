package report

import (
	"errors"
	"testing"
)

func TestTransitionMatrix(t *testing.T) {
	all := []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusRejected}
	legal := map[[2]Status]bool{
		{StatusDraft, StatusSubmitted}:    true,
		{StatusSubmitted, StatusApproved}: true,
		{StatusSubmitted, StatusRejected}: true,
	}
	for _, from := range all {
		for _, to := range all {
			want := legal[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range []Status{StatusApproved, StatusRejected} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
		for _, to := range []Status{StatusDraft, StatusSubmitted, StatusApproved, StatusRejected} {
			if CanTransition(s, to) {
				t.Errorf("terminal %s must not transition to %s", s, to)
			}
		}
	}
	for _, s := range []Status{StatusDraft, StatusSubmitted} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := checkTransition(StatusApproved, StatusSubmitted)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	var ite *InvalidTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("expected typed transition error, got %T", err)
	}
	if ite.From != StatusApproved || ite.To != StatusSubmitted {
		t.Fatalf("unexpected edge: %s -> %s", ite.From, ite.To)
	}
	if checkTransition(StatusDraft, StatusSubmitted) != nil {
		t.Fatal("legal edge rejected")
	}
}
