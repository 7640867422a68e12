package ratchet

// CheckStatus is the execution state of a single check run as reported by
// the code host.
type CheckStatus string

const (
	CheckCompleted  CheckStatus = "COMPLETED"
	CheckInProgress CheckStatus = "IN_PROGRESS"
	CheckPending    CheckStatus = "PENDING"
	CheckQueued     CheckStatus = "QUEUED"
)

// CheckConclusion is the outcome of a completed check run. Empty means the
// run has not concluded.
type CheckConclusion string

const (
	ConclusionNone      CheckConclusion = ""
	ConclusionSuccess   CheckConclusion = "SUCCESS"
	ConclusionFailure   CheckConclusion = "FAILURE"
	ConclusionNeutral   CheckConclusion = "NEUTRAL"
	ConclusionSkipped   CheckConclusion = "SKIPPED"
	ConclusionCancelled CheckConclusion = "CANCELLED"
)

// CheckResult is one check run on a PR's head commit.
type CheckResult struct {
	Name       string
	Status     CheckStatus
	Conclusion CheckConclusion
	RunID      int64
}

// check classification buckets, ordered by rollup priority.
const (
	classFailure = iota
	classPending
	classSuccess
	classUnknown
	classNeutral
)

func classify(c CheckResult) int {
	if c.Status != CheckCompleted {
		return classPending
	}
	switch c.Conclusion {
	case ConclusionFailure:
		return classFailure
	case ConclusionNone:
		return classPending
	case ConclusionSuccess:
		return classSuccess
	case ConclusionNeutral, ConclusionSkipped, ConclusionCancelled:
		return classNeutral
	default:
		// Unrecognized conclusion strings from the code host must not wedge
		// evaluation; they land in their own conservative bucket.
		return classUnknown
	}
}

// RollupChecks normalizes a PR's check runs into a single observation.
//
// Re-runs of the same check name are deduplicated first, keeping the
// highest-priority occurrence (failure > pending > success > unknown >
// neutral). Over the deduplicated set, failure dominates everything,
// anything still running forces pending, and skipped/cancelled/neutral
// conclusions count toward neither passed nor failed.
func RollupChecks(checks []CheckResult) CiObservation {
	if len(checks) == 0 {
		return ObsNoChecks
	}

	best := make(map[string]int)
	order := make([]string, 0, len(checks))
	for _, c := range checks {
		cls := classify(c)
		prev, seen := best[c.Name]
		if !seen {
			best[c.Name] = cls
			order = append(order, c.Name)
			continue
		}
		if cls < prev {
			best[c.Name] = cls
		}
	}

	var failed, pending, passed, unknown int
	for _, name := range order {
		switch best[name] {
		case classFailure:
			failed++
		case classPending:
			pending++
		case classSuccess:
			passed++
		case classUnknown:
			unknown++
		}
	}

	switch {
	case failed > 0:
		return ObsChecksFailed
	case pending > 0:
		return ObsChecksPending
	case unknown > 0:
		return ObsChecksUnknown
	case passed > 0:
		return ObsChecksPassed
	default:
		// Every check was skipped/cancelled/neutral; nothing meaningful ran.
		return ObsNoChecks
	}
}

// FailingRunID returns the run ID of the first failing check after
// deduplication, or 0 when no check failed. The state machine uses it to
// distinguish a fresh CI failure from re-observing a stale one.
func FailingRunID(checks []CheckResult) int64 {
	best := make(map[string]CheckResult)
	order := make([]string, 0, len(checks))
	for _, c := range checks {
		prev, seen := best[c.Name]
		if !seen {
			best[c.Name] = c
			order = append(order, c.Name)
			continue
		}
		if classify(c) < classify(prev) {
			best[c.Name] = c
		}
	}
	for _, name := range order {
		if classify(best[name]) == classFailure {
			return best[name].RunID
		}
	}
	return 0
}
