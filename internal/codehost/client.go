// Package codehost talks to the code-hosting API and normalizes its
// heterogeneous signals (check runs, reviews, PR lifecycle) into the
// ratchet core's types.
package codehost

import (
	"context"

	"github.com/zulandar/ratchet/internal/ratchet"
)

// PRRef identifies a pull request.
type PRRef struct {
	Owner  string
	Repo   string
	Number int
}

// PRSignals is one complete fresh observation of a PR, ready for the state
// machine.
type PRSignals struct {
	State       ratchet.PRState
	Checks      []ratchet.CheckResult
	Observation ratchet.CiObservation
	Review      ratchet.ReviewDecision
	CIRunID     int64 // failing run ID, 0 when nothing failed
}

// StatusClient is the collaborator interface the scheduler consumes. A
// fetch error means the workspace is skipped for the cycle.
type StatusClient interface {
	FetchPRSignals(ctx context.Context, ref PRRef) (*PRSignals, error)
}
