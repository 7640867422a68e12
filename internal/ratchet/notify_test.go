package ratchet

import (
	"testing"
	"time"
)

func TestShouldNotify_PositiveOutcomesAlwaysFire(t *testing.T) {
	now := time.Now()
	for _, state := range []RatchetState{StateReady, StateMerged} {
		in := NotifyInput{
			NewState:          state,
			LastNotifiedState: state,
			LastNotifiedAt:    now.Add(-time.Second),
			Now:               now,
			Cooldown:          time.Hour,
		}
		if !ShouldNotify(in) {
			t.Errorf("state %s: want notify even within cooldown", state)
		}
	}
}

func TestShouldNotify_ChangedState(t *testing.T) {
	in := NotifyInput{
		NewState:          StateCIFailed,
		LastNotifiedState: StateCIRunning,
		Now:               time.Now(),
		Cooldown:          time.Hour,
	}
	if !ShouldNotify(in) {
		t.Error("changed state should notify")
	}
}

func TestShouldNotify_FailingWithinCooldown(t *testing.T) {
	now := time.Now()
	in := NotifyInput{
		NewState:          StateCIFailed,
		LastNotifiedState: StateCIFailed,
		LastNotifiedAt:    now.Add(-10 * time.Minute),
		Now:               now,
		Cooldown:          30 * time.Minute,
	}
	if ShouldNotify(in) {
		t.Error("unresolved failure within cooldown should stay quiet")
	}
}

func TestShouldNotify_FailingAfterCooldown(t *testing.T) {
	now := time.Now()
	in := NotifyInput{
		NewState:          StateCIFailed,
		LastNotifiedState: StateCIFailed,
		LastNotifiedAt:    now.Add(-31 * time.Minute),
		Now:               now,
		Cooldown:          30 * time.Minute,
	}
	if !ShouldNotify(in) {
		t.Error("cooldown elapsed: unresolved failure should re-notify")
	}
}

func TestShouldNotify_StableNonFailingState(t *testing.T) {
	in := NotifyInput{
		NewState:          StateCIRunning,
		LastNotifiedState: StateCIRunning,
		Now:               time.Now(),
		Cooldown:          time.Minute,
	}
	if ShouldNotify(in) {
		t.Error("unchanged non-failing state should not notify")
	}
}

// Exactly one notification across N cycles within the cooldown, then one
// more after it elapses.
func TestShouldNotify_DedupAcrossCycles(t *testing.T) {
	cooldown := 30 * time.Minute
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	fired := 0
	lastState := RatchetState("")
	var lastAt time.Time

	for cycle := 0; cycle < 40; cycle++ {
		now := start.Add(time.Duration(cycle) * time.Minute)
		if ShouldNotify(NotifyInput{
			NewState:          StateCIFailed,
			LastNotifiedState: lastState,
			LastNotifiedAt:    lastAt,
			Now:               now,
			Cooldown:          cooldown,
		}) {
			fired++
			lastState = StateCIFailed
			lastAt = now
		}
	}

	if fired != 2 {
		t.Errorf("notifications fired = %d, want 2 (initial + one post-cooldown)", fired)
	}
}
