package ratchet

import "testing"

func TestRollupChecks_Empty(t *testing.T) {
	if got := RollupChecks(nil); got != ObsNoChecks {
		t.Errorf("RollupChecks(nil) = %s, want NO_CHECKS", got)
	}
}

func TestRollupChecks_FailureDominates(t *testing.T) {
	checks := []CheckResult{
		{Name: "a", Status: CheckCompleted, Conclusion: ConclusionSuccess},
		{Name: "b", Status: CheckInProgress},
		{Name: "c", Status: CheckCompleted, Conclusion: ConclusionFailure},
		{Name: "d", Status: CheckQueued},
	}
	if got := RollupChecks(checks); got != ObsChecksFailed {
		t.Errorf("rollup = %s, want CHECKS_FAILED", got)
	}
}

func TestRollupChecks_PendingBeatsPassed(t *testing.T) {
	checks := []CheckResult{
		{Name: "a", Status: CheckCompleted, Conclusion: ConclusionSuccess},
		{Name: "b", Status: CheckPending},
	}
	if got := RollupChecks(checks); got != ObsChecksPending {
		t.Errorf("rollup = %s, want CHECKS_PENDING", got)
	}
}

func TestRollupChecks_CompletedWithoutConclusionIsPending(t *testing.T) {
	checks := []CheckResult{{Name: "a", Status: CheckCompleted, Conclusion: ConclusionNone}}
	if got := RollupChecks(checks); got != ObsChecksPending {
		t.Errorf("rollup = %s, want CHECKS_PENDING", got)
	}
}

func TestRollupChecks_NeutralExcluded(t *testing.T) {
	checks := []CheckResult{
		{Name: "skip", Status: CheckCompleted, Conclusion: ConclusionSkipped},
		{Name: "unit", Status: CheckCompleted, Conclusion: ConclusionSuccess},
	}
	if got := RollupChecks(checks); got != ObsChecksPassed {
		t.Errorf("rollup = %s, want CHECKS_PASSED (skipped excluded)", got)
	}
}

func TestRollupChecks_AllNeutral(t *testing.T) {
	checks := []CheckResult{
		{Name: "a", Status: CheckCompleted, Conclusion: ConclusionSkipped},
		{Name: "b", Status: CheckCompleted, Conclusion: ConclusionCancelled},
		{Name: "c", Status: CheckCompleted, Conclusion: ConclusionNeutral},
	}
	if got := RollupChecks(checks); got != ObsNoChecks {
		t.Errorf("rollup = %s, want NO_CHECKS (nothing meaningful ran)", got)
	}
}

func TestRollupChecks_UnknownConclusion(t *testing.T) {
	checks := []CheckResult{
		{Name: "a", Status: CheckCompleted, Conclusion: "STALE"},
		{Name: "b", Status: CheckCompleted, Conclusion: ConclusionSuccess},
	}
	if got := RollupChecks(checks); got != ObsChecksUnknown {
		t.Errorf("rollup = %s, want CHECKS_UNKNOWN", got)
	}
}

// Re-runs of one check name collapse to the highest-priority occurrence;
// failure outranks a later green re-run on the same head commit.
func TestRollupChecks_DedupByName(t *testing.T) {
	checks := []CheckResult{
		{Name: "unit", Status: CheckCompleted, Conclusion: ConclusionFailure, RunID: 1},
		{Name: "unit", Status: CheckCompleted, Conclusion: ConclusionSuccess, RunID: 2},
		{Name: "lint", Status: CheckCompleted, Conclusion: ConclusionSuccess, RunID: 3},
	}
	if got := RollupChecks(checks); got != ObsChecksFailed {
		t.Errorf("rollup = %s, want CHECKS_FAILED (failure wins dedup)", got)
	}
	if got := FailingRunID(checks); got != 1 {
		t.Errorf("FailingRunID = %d, want 1", got)
	}
}

func TestFailingRunID_NoFailure(t *testing.T) {
	checks := []CheckResult{{Name: "a", Status: CheckCompleted, Conclusion: ConclusionSuccess, RunID: 4}}
	if got := FailingRunID(checks); got != 0 {
		t.Errorf("FailingRunID = %d, want 0", got)
	}
}

func TestCiObservationCIStatus(t *testing.T) {
	cases := map[CiObservation]CIStatus{
		ObsChecksPending: CIPending,
		ObsChecksFailed:  CIFailure,
		ObsChecksPassed:  CISuccess,
		ObsNoChecks:      CIUnknown,
		ObsNotFetched:    CIUnknown,
		ObsChecksUnknown: CIUnknown,
	}
	for obs, want := range cases {
		if got := obs.CIStatus(); got != want {
			t.Errorf("%s.CIStatus() = %s, want %s", obs, got, want)
		}
	}
}
