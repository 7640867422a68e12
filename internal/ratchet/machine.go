package ratchet

// Actions recorded in the audit log for each transition.
const (
	ActionMergeDetected     = "merge_detected"
	ActionPRClosed          = "pr_closed"
	ActionCIFailureDetected = "ci_failure_detected"
	ActionCIRunning         = "ci_running"
	ActionReviewRequested   = "review_requested"
	ActionReadyForMerge     = "ready_for_merge"
	ActionNoChange          = "no_change"
)

// FixerReason identifies why a fixer session is being dispatched.
type FixerReason string

const (
	FixCIFailure      FixerReason = "ci_failure"
	FixReviewComments FixerReason = "review_comments"
)

// Snapshot is the persisted view of a workspace the machine evaluates
// against.
type Snapshot struct {
	State       RatchetState
	LastCIRunID int64
}

// Signals is one fresh observation of the workspace's PR.
type Signals struct {
	PRState     PRState
	Observation CiObservation
	Review      ReviewDecision
	CIRunID     int64 // run ID associated with a failing observation, 0 otherwise
}

// Decision is the outcome of one evaluation. Evaluate is pure: the same
// (Snapshot, Signals) pair always yields the same Decision, which is what
// lets the scheduler re-run evaluations every tick without side effects
// compounding.
type Decision struct {
	Next          RatchetState
	Action        string
	Detail        string
	DispatchFixer bool
	FixerReason   FixerReason
	ClearSession  bool  // drop the active fixer reference (terminal PR states)
	NoChange      bool  // true no-op: skip the audit row, still touch last-checked
	LastCIRunID   int64 // value to persist for failure dedup
}

// Evaluate combines the persisted snapshot with fresh PR signals and decides
// the next ratchet state. Rules are checked in priority order; the first
// match wins.
func Evaluate(snap Snapshot, sig Signals) Decision {
	state := snap.State
	if !state.Valid() {
		state = StateIdle
	}

	// Rule 1: merge ends progression, even mid-fix.
	if sig.PRState == PRMerged {
		if state == StateMerged {
			return noChange(state, snap.LastCIRunID)
		}
		return Decision{
			Next:         StateMerged,
			Action:       ActionMergeDetected,
			ClearSession: true,
			LastCIRunID:  snap.LastCIRunID,
		}
	}

	// Rule 2: a close without merge re-arms the workspace.
	if sig.PRState == PRClosed {
		if state == StateIdle {
			return noChange(state, snap.LastCIRunID)
		}
		return Decision{
			Next:         StateIdle,
			Action:       ActionPRClosed,
			ClearSession: true,
			LastCIRunID:  snap.LastCIRunID,
		}
	}

	reopened := state == StateMerged

	// Rule 3: a CI failure is actionable when it is new, either a run we
	// have not seen or a failure arriving from a non-failed state.
	if sig.Observation == ObsChecksFailed {
		if sig.CIRunID != snap.LastCIRunID || state != StateCIFailed {
			return Decision{
				Next:          StateCIFailed,
				Action:        ActionCIFailureDetected,
				Detail:        reopenDetail(reopened),
				DispatchFixer: true,
				FixerReason:   FixCIFailure,
				LastCIRunID:   sig.CIRunID,
			}
		}
		return noChange(state, snap.LastCIRunID)
	}

	// Rule 4: wait out running checks.
	if sig.Observation == ObsChecksPending {
		if state == StateCIRunning {
			return noChange(state, snap.LastCIRunID)
		}
		return Decision{
			Next:        StateCIRunning,
			Action:      ActionCIRunning,
			Detail:      reopenDetail(reopened),
			LastCIRunID: snap.LastCIRunID,
		}
	}

	if sig.Observation == ObsChecksPassed {
		// Rule 5: green CI but a blocking review.
		if sig.Review.Blocking() {
			d := Decision{
				Next:          StateReviewPending,
				Action:        ActionReviewRequested,
				Detail:        reopenDetail(reopened),
				DispatchFixer: true,
				FixerReason:   FixReviewComments,
				LastCIRunID:   snap.LastCIRunID,
			}
			// Re-observing an unresolved review keeps fixer eligibility (a
			// dead fixer gets relaunched through the acquisition gate) but is
			// not a new transition.
			d.NoChange = state == StateReviewPending
			if d.NoChange {
				d.Action = ActionNoChange
			}
			return d
		}

		// Rule 6: nothing blocking, ready to merge.
		if state == StateReady {
			return noChange(state, snap.LastCIRunID)
		}
		return Decision{
			Next:        StateReady,
			Action:      ActionReadyForMerge,
			Detail:      reopenDetail(reopened),
			LastCIRunID: snap.LastCIRunID,
		}
	}

	// Rule 7: NOT_FETCHED, NO_CHECKS, CHECKS_UNKNOWN leave nothing to act on.
	return noChange(state, snap.LastCIRunID)
}

func noChange(state RatchetState, runID int64) Decision {
	return Decision{
		Next:        state,
		Action:      ActionNoChange,
		NoChange:    true,
		LastCIRunID: runID,
	}
}

func reopenDetail(reopened bool) string {
	if reopened {
		return "pr reopened after merge"
	}
	return ""
}
