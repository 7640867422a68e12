package ratchet

import "time"

// NotifyInput carries everything the de-duplication rule needs to decide
// whether a state change warrants pinging a human.
type NotifyInput struct {
	NewState          RatchetState
	LastNotifiedState RatchetState
	LastNotifiedAt    time.Time // zero when no notification has ever fired
	Now               time.Time
	Cooldown          time.Duration
}

// ShouldNotify implements the notification de-duplication rule: positive
// outcomes always fire; a changed state fires; an unresolved failing state
// fires again only once the cooldown has elapsed.
func ShouldNotify(in NotifyInput) bool {
	// Resolution is never suppressed.
	if in.NewState == StateReady || in.NewState == StateMerged {
		return true
	}
	if in.NewState != in.LastNotifiedState {
		return true
	}
	if in.NewState.Failing() {
		if in.LastNotifiedAt.IsZero() {
			return true
		}
		return in.Now.Sub(in.LastNotifiedAt) >= in.Cooldown
	}
	return false
}
