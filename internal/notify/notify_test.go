package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/zulandar/ratchet/internal/ratchet"
)

type recordingSink struct {
	name   string
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Send(ctx context.Context, ev Event) error {
	s.events = append(s.events, ev)
	return s.err
}

func TestNotifier_FanOut(t *testing.T) {
	a := &recordingSink{name: "a"}
	b := &recordingSink{name: "b"}
	n := NewNotifier(a, b)

	ev := Event{WorkspaceName: "feature-auth", State: ratchet.StateReady}
	n.Notify(context.Background(), ev)

	if len(a.events) != 1 || len(b.events) != 1 {
		t.Fatalf("deliveries = (%d, %d), want (1, 1)", len(a.events), len(b.events))
	}
}

func TestNotifier_SinkFailureDoesNotBlockOthers(t *testing.T) {
	failing := &recordingSink{name: "failing", err: errors.New("boom")}
	ok := &recordingSink{name: "ok"}
	n := NewNotifier(failing, ok)

	n.Notify(context.Background(), Event{WorkspaceName: "w", State: ratchet.StateCIFailed})

	if len(ok.events) != 1 {
		t.Error("healthy sink should still receive the event")
	}
}

func TestEventTitle(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{WorkspaceName: "auth", State: ratchet.StateCIFailed}, "CI failing on auth"},
		{Event{WorkspaceName: "auth", State: ratchet.StateReviewPending}, "Changes requested on auth"},
		{Event{WorkspaceName: "auth", State: ratchet.StateReady}, "auth is ready to merge"},
		{Event{WorkspaceName: "auth", State: ratchet.StateMerged}, "auth merged"},
		{Event{WorkspaceName: "auth", State: ratchet.StateCIRunning}, "auth: CI_RUNNING"},
		{Event{WorkspaceID: "abc123", State: ratchet.StateMerged}, "abc123 merged"},
		{Event{TitleText: "Daily ratchet digest", State: ratchet.StateIdle}, "Daily ratchet digest"},
	}
	for _, tt := range tests {
		if got := tt.ev.Title(); got != tt.want {
			t.Errorf("Title() = %q, want %q", got, tt.want)
		}
	}
}

func TestEventSeverity(t *testing.T) {
	tests := map[ratchet.RatchetState]string{
		ratchet.StateCIFailed:      "error",
		ratchet.StateReviewPending: "warning",
		ratchet.StateReady:         "success",
		ratchet.StateMerged:        "success",
		ratchet.StateIdle:          "info",
		ratchet.StateCIRunning:     "info",
	}
	for state, want := range tests {
		if got := (Event{State: state}).Severity(); got != want {
			t.Errorf("Severity(%s) = %q, want %q", state, got, want)
		}
	}
}

func TestCommandSink_Empty(t *testing.T) {
	s := &CommandSink{}
	if err := s.Send(context.Background(), Event{}); err != nil {
		t.Errorf("empty command should be a no-op, got %v", err)
	}
}

func TestCommandSink_RunsTemplate(t *testing.T) {
	s := &CommandSink{Command: `test "{{.State}}" = "READY"`}
	err := s.Send(context.Background(), Event{WorkspaceName: "w", State: ratchet.StateReady})
	if err != nil {
		t.Errorf("Send: %v", err)
	}

	bad := &CommandSink{Command: `test "{{.State}}" = "READY"`}
	if err := bad.Send(context.Background(), Event{State: ratchet.StateMerged}); err == nil {
		t.Error("expected non-zero exit to surface as error")
	}
}
