// Package notify delivers human-facing ratchet notifications to configured
// sinks. Delivery is best-effort everywhere: a sink failure is logged and
// swallowed, never propagated into the scheduler cycle.
package notify

import (
	"context"
	"log"
	"os/exec"
	"strconv"
	"strings"

	"github.com/zulandar/ratchet/internal/ratchet"
)

// Event is one human-facing notification.
type Event struct {
	WorkspaceID   string
	WorkspaceName string
	State         ratchet.RatchetState
	Detail        string
	PRURL         string
	PRNumber      int
	TitleText     string // overrides the derived headline (digests)
}

// Title renders the event headline.
func (e Event) Title() string {
	if e.TitleText != "" {
		return e.TitleText
	}
	name := e.WorkspaceName
	if name == "" {
		name = e.WorkspaceID
	}
	switch e.State {
	case ratchet.StateCIFailed:
		return "CI failing on " + name
	case ratchet.StateReviewPending:
		return "Changes requested on " + name
	case ratchet.StateReady:
		return name + " is ready to merge"
	case ratchet.StateMerged:
		return name + " merged"
	default:
		return name + ": " + string(e.State)
	}
}

// Severity buckets the event for sink-side styling.
func (e Event) Severity() string {
	switch e.State {
	case ratchet.StateCIFailed:
		return "error"
	case ratchet.StateReviewPending:
		return "warning"
	case ratchet.StateReady, ratchet.StateMerged:
		return "success"
	default:
		return "info"
	}
}

// Color returns the sidebar color hint for the event severity.
func (e Event) Color() string {
	switch e.Severity() {
	case "error":
		return "#e01e5a"
	case "warning":
		return "#ecb22e"
	case "success":
		return "#36a64f"
	default:
		return "#2eb886"
	}
}

// Sink delivers events to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// Notifier fans an event out to every configured sink.
type Notifier struct {
	sinks []Sink
}

// NewNotifier creates a Notifier over the given sinks.
func NewNotifier(sinks ...Sink) *Notifier {
	return &Notifier{sinks: sinks}
}

// Notify delivers the event to all sinks, logging failures.
func (n *Notifier) Notify(ctx context.Context, ev Event) {
	for _, sink := range n.sinks {
		if err := sink.Send(ctx, ev); err != nil {
			log.Printf("notify: %s sink: %v", sink.Name(), err)
		}
	}
}

// CommandSink runs a shell command template for each event, for desktop
// notifications (notify-send, osascript, ...).
type CommandSink struct {
	Command string
}

// Name implements Sink.
func (s *CommandSink) Name() string { return "command" }

// Send replaces placeholders in the command template and runs it.
func (s *CommandSink) Send(ctx context.Context, ev Event) error {
	if s.Command == "" {
		return nil
	}
	r := strings.NewReplacer(
		"{{.Title}}", ev.Title(),
		"{{.Detail}}", ev.Detail,
		"{{.Workspace}}", ev.WorkspaceName,
		"{{.State}}", string(ev.State),
		"{{.PRURL}}", ev.PRURL,
		"{{.PRNumber}}", strconv.Itoa(ev.PRNumber),
	)
	cmd := exec.CommandContext(ctx, "sh", "-c", r.Replace(s.Command))
	if out, err := cmd.CombinedOutput(); err != nil {
		log.Printf("notify: command output: %s", strings.TrimSpace(string(out)))
		return err
	}
	return nil
}
