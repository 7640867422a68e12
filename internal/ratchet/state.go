// Package ratchet contains the pure decision core of the PR-progression
// subsystem: domain enums, the check rollup, the state machine, and the
// notification de-duplication rule. Nothing in this package performs I/O.
package ratchet

// RatchetState is the persisted progression phase of a workspace's PR.
type RatchetState string

const (
	StateIdle          RatchetState = "IDLE"
	StateCIRunning     RatchetState = "CI_RUNNING"
	StateCIFailed      RatchetState = "CI_FAILED"
	StateReviewPending RatchetState = "REVIEW_PENDING"
	StateReady         RatchetState = "READY"
	StateMerged        RatchetState = "MERGED"
)

// Valid reports whether s is a known ratchet state.
func (s RatchetState) Valid() bool {
	switch s {
	case StateIdle, StateCIRunning, StateCIFailed, StateReviewPending, StateReady, StateMerged:
		return true
	}
	return false
}

// Terminal reports whether the state ends ratchet progression. A terminal
// workspace is still polled so PR re-opens can be observed.
func (s RatchetState) Terminal() bool {
	return s == StateMerged
}

// Failing reports whether the state represents an unresolved problem a human
// may want to hear about repeatedly (subject to the notification cooldown).
func (s RatchetState) Failing() bool {
	return s == StateCIFailed || s == StateReviewPending
}

// PRState is the last-observed lifecycle state of a workspace's pull request.
type PRState string

const (
	PRNone             PRState = "NONE"
	PRDraft            PRState = "DRAFT"
	PROpen             PRState = "OPEN"
	PRChangesRequested PRState = "CHANGES_REQUESTED"
	PRApproved         PRState = "APPROVED"
	PRMerged           PRState = "MERGED"
	PRClosed           PRState = "CLOSED"
)

// Valid reports whether p is a known PR state.
func (p PRState) Valid() bool {
	switch p {
	case PRNone, PRDraft, PROpen, PRChangesRequested, PRApproved, PRMerged, PRClosed:
		return true
	}
	return false
}

// DisplayPRState folds the review decision into an open PR's snapshot
// state, matching what the code host shows (an open PR with an outstanding
// CHANGES_REQUESTED review surfaces as such).
func DisplayPRState(state PRState, review ReviewDecision) PRState {
	if state != PROpen {
		return state
	}
	switch review {
	case ReviewChangesRequested:
		return PRChangesRequested
	case ReviewApproved:
		return PRApproved
	default:
		return state
	}
}

// CIStatus is the coarse CI summary stored on the workspace's PR snapshot.
type CIStatus string

const (
	CIUnknown CIStatus = "UNKNOWN"
	CIPending CIStatus = "PENDING"
	CISuccess CIStatus = "SUCCESS"
	CIFailure CIStatus = "FAILURE"
)

// CiObservation is the normalized summary of a PR's check-run results.
type CiObservation string

const (
	ObsNotFetched    CiObservation = "NOT_FETCHED"
	ObsNoChecks      CiObservation = "NO_CHECKS"
	ObsChecksPending CiObservation = "CHECKS_PENDING"
	ObsChecksFailed  CiObservation = "CHECKS_FAILED"
	ObsChecksPassed  CiObservation = "CHECKS_PASSED"
	ObsChecksUnknown CiObservation = "CHECKS_UNKNOWN"
)

// CIStatus collapses an observation into the snapshot-level CI status.
func (o CiObservation) CIStatus() CIStatus {
	switch o {
	case ObsChecksPending:
		return CIPending
	case ObsChecksFailed:
		return CIFailure
	case ObsChecksPassed:
		return CISuccess
	default:
		return CIUnknown
	}
}

// ReviewDecision is the fresh review signal for a PR. ReviewNone means no
// decision has been recorded yet.
type ReviewDecision string

const (
	ReviewNone             ReviewDecision = ""
	ReviewApproved         ReviewDecision = "APPROVED"
	ReviewChangesRequested ReviewDecision = "CHANGES_REQUESTED"
	ReviewRequired         ReviewDecision = "REVIEW_REQUIRED"
)

// Blocking reports whether the review decision blocks a merge.
func (r ReviewDecision) Blocking() bool {
	return r == ReviewChangesRequested
}

// EffectiveCIStatus resolves the CI status shown for a workspace when the PR
// snapshot and the ratchet state disagree. The fresher PR snapshot wins
// unless it is UNKNOWN, in which case the ratchet state implies a guess.
func EffectiveCIStatus(snapshot CIStatus, state RatchetState) CIStatus {
	if snapshot != CIUnknown {
		return snapshot
	}
	switch state {
	case StateCIRunning:
		return CIPending
	case StateCIFailed:
		return CIFailure
	case StateReady, StateMerged:
		return CISuccess
	default:
		return CIUnknown
	}
}
