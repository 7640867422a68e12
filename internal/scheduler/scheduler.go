// Package scheduler drives the ratchet polling loop: the only component in
// the system with recurring background execution.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/zulandar/ratchet/internal/codehost"
	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/notify"
	"github.com/zulandar/ratchet/internal/ratchet"
	"github.com/zulandar/ratchet/internal/session"
	"github.com/zulandar/ratchet/internal/store"
)

// FixerWorkflow labels sessions dispatched by the ratchet loop.
const FixerWorkflow = "ratchet"

// Config holds the scheduler knobs.
type Config struct {
	Interval             time.Duration
	Concurrency          int
	MaxFixerSessions     int
	NotificationCooldown time.Duration
	SessionIdleTimeout   time.Duration
}

// Launcher starts a fixer process for an acquired session. Satisfied by
// *session.Runner.
type Launcher interface {
	Launch(ctx context.Context, sess *models.AgentSession, workDir, prompt string) error
}

// Notifier delivers human-facing events. Satisfied by *notify.Notifier.
type Notifier interface {
	Notify(ctx context.Context, ev notify.Event)
}

// Scheduler iterates ratchet-eligible workspaces on a fixed interval,
// evaluates each against fresh PR signals, persists transitions, dispatches
// fixers through the acquisition gate, and notifies humans with cooldown
// dedup. It holds no essential state between cycles; everything needed to
// resume after a restart lives in storage.
type Scheduler struct {
	cfg      Config
	store    *store.Store
	client   codehost.StatusClient
	launcher Launcher
	notifier Notifier
	clock    Clock
	out      io.Writer
}

// Opts holds parameters for creating a Scheduler.
type Opts struct {
	Config   Config
	Store    *store.Store
	Client   codehost.StatusClient
	Launcher Launcher
	Notifier Notifier
	Clock    Clock     // defaults to the system clock
	Out      io.Writer // operator output; defaults to io.Discard
}

// New creates a Scheduler.
func New(opts Opts) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("scheduler: store is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("scheduler: status client is required")
	}
	if opts.Launcher == nil {
		return nil, fmt.Errorf("scheduler: launcher is required")
	}
	cfg := opts.Config
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 3
	}
	if cfg.MaxFixerSessions <= 0 {
		cfg.MaxFixerSessions = 1
	}
	clock := opts.Clock
	if clock == nil {
		clock = SystemClock()
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}
	return &Scheduler{
		cfg:      cfg,
		store:    opts.Store,
		client:   opts.Client,
		launcher: opts.Launcher,
		notifier: opts.Notifier,
		clock:    clock,
		out:      out,
	}, nil
}

// Run executes the polling loop until ctx is cancelled. Startup reconciles
// active-session references left behind by a previous process.
func (s *Scheduler) Run(ctx context.Context) error {
	cleared, err := s.store.ReconcileActiveSessions(s.clock.Now())
	if err != nil {
		return fmt.Errorf("scheduler: reconcile: %w", err)
	}
	if cleared > 0 {
		fmt.Fprintf(s.out, "Reconciled %d orphaned fixer session(s)\n", cleared)
	}

	fmt.Fprintf(s.out, "Ratchet scheduler starting (poll every %s, concurrency %d)\n",
		s.cfg.Interval, s.cfg.Concurrency)

	for {
		s.RunCycle(ctx)

		select {
		case <-ctx.Done():
			fmt.Fprintf(s.out, "Ratchet scheduler stopped.\n")
			return nil
		case <-time.After(s.cfg.Interval):
		}
	}
}

// RunCycle evaluates every due workspace once, with bounded concurrency.
// Exported so tests (and one-shot CLI invocations) can drive single cycles
// without the timer.
func (s *Scheduler) RunCycle(ctx context.Context) {
	now := s.clock.Now()
	workspaces, err := s.store.FindRatchetEligible(now, s.cfg.Interval)
	if err != nil {
		log.Printf("scheduler: find eligible: %v", err)
		return
	}
	if len(workspaces) == 0 {
		return
	}

	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup
	for i := range workspaces {
		ws := workspaces[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			s.evaluateWorkspace(ctx, &ws)
		}()
	}
	wg.Wait()
}

// evaluateWorkspace runs the full pipeline for one workspace: fetch →
// evaluate → persist → acquire/spawn → audit → notify. Each phase is
// isolated; a failure in one never aborts the cycle for other workspaces.
func (s *Scheduler) evaluateWorkspace(ctx context.Context, ws *models.Workspace) {
	now := s.clock.Now()

	// Without a PR there is nothing to observe; the poll still counts.
	if ws.PRNumber == 0 {
		if err := s.store.TouchChecked(ws.ID, now); err != nil {
			log.Printf("scheduler: workspace %s: touch: %v", ws.ID, err)
		}
		return
	}

	signals, err := s.client.FetchPRSignals(ctx, codehost.PRRef{
		Owner:  ws.Project.Owner,
		Repo:   ws.Project.Repo,
		Number: ws.PRNumber,
	})
	if err != nil {
		// Skip this cycle; ratchet_last_checked_at stays put so the
		// workspace is retried on the next tick.
		log.Printf("scheduler: workspace %s: fetch pr signals: %v", ws.ID, err)
		return
	}

	snap := ratchet.Snapshot{
		State:       ratchet.RatchetState(ws.RatchetState),
		LastCIRunID: ws.RatchetLastCIRunID,
	}
	sig := ratchet.Signals{
		PRState:     signals.State,
		Observation: signals.Observation,
		Review:      signals.Review,
		CIRunID:     signals.CIRunID,
	}
	decision := ratchet.Evaluate(snap, sig)

	if decision.NoChange {
		if err := s.store.TouchChecked(ws.ID, now); err != nil {
			log.Printf("scheduler: workspace %s: touch: %v", ws.ID, err)
			return
		}
	} else {
		patch := store.StatePatch{
			State:              decision.Next,
			LastCIRunID:        decision.LastCIRunID,
			PRState:            ratchet.DisplayPRState(sig.PRState, sig.Review),
			PRCIStatus:         sig.Observation.CIStatus(),
			ClearActiveSession: decision.ClearSession,
			CheckedAt:          now,
		}
		if err := s.store.ApplyDecision(ws.ID, patch); err != nil {
			// The in-memory decision is discarded; nothing else may assume
			// the transition happened.
			log.Printf("scheduler: workspace %s: persist decision: %v", ws.ID, err)
			return
		}
		fmt.Fprintf(s.out, "Workspace %s: %s -> %s (%s)\n",
			ws.Name, snap.State, decision.Next, decision.Action)
	}

	detail := decision.Detail
	if decision.DispatchFixer {
		outcome := s.dispatchFixer(ctx, ws, decision)
		if detail == "" {
			detail = outcome
		} else {
			detail = detail + "; " + outcome
		}
	}

	if !decision.NoChange {
		s.writeAudit(ws, snap.State, decision, sig, detail, now)
	}

	s.maybeNotify(ctx, ws, decision, now)
}

// dispatchFixer runs the acquisition gate and, when a session was created,
// launches the fixer process. Returns a short outcome string for the audit
// detail.
func (s *Scheduler) dispatchFixer(ctx context.Context, ws *models.Workspace, decision ratchet.Decision) string {
	acq, err := s.store.AcquireFixerSession(store.AcquireOpts{
		WorkspaceID: ws.ID,
		Workflow:    FixerWorkflow,
		Name:        fmt.Sprintf("fix %s #%d", decision.FixerReason, ws.PRNumber),
		Reason:      string(decision.FixerReason),
		MaxSessions: s.cfg.MaxFixerSessions,
		IdleTimeout: s.cfg.SessionIdleTimeout,
		Now:         s.clock.Now(),
	})
	if err != nil {
		log.Printf("scheduler: workspace %s: acquire fixer: %v", ws.ID, err)
		return "fixer acquisition failed"
	}

	switch acq.Outcome {
	case store.OutcomeExisting:
		return fmt.Sprintf("fixer already running (session %s)", acq.Session.ID)
	case store.OutcomeLimitReached:
		return "fixer skipped: session limit reached"
	case store.OutcomeCreated:
		prompt, err := session.BuildFixerPrompt(decision.FixerReason, session.PromptData{
			PRNumber: ws.PRNumber,
			PRURL:    ws.PRURL,
			Branch:   ws.Branch,
			Detail:   decision.Detail,
		})
		if err != nil {
			log.Printf("scheduler: workspace %s: build prompt: %v", ws.ID, err)
			s.failAcquired(acq.Session.ID)
			return "fixer prompt failed"
		}
		if err := s.launcher.Launch(ctx, acq.Session, ws.Path, prompt); err != nil {
			log.Printf("scheduler: workspace %s: launch fixer: %v", ws.ID, err)
			return "fixer launch failed"
		}
		fmt.Fprintf(s.out, "Workspace %s: fixer session %s dispatched (%s)\n",
			ws.Name, acq.Session.ID, decision.FixerReason)
		return fmt.Sprintf("fixer dispatched (session %s)", acq.Session.ID)
	default:
		return ""
	}
}

// failAcquired releases a session that was acquired but could never launch.
func (s *Scheduler) failAcquired(sessionID string) {
	if err := s.store.FinishSession(sessionID, models.SessionFailed, s.clock.Now()); err != nil {
		log.Printf("scheduler: release unlaunched session %s: %v", sessionID, err)
	}
}

// writeAudit appends the transition record. Audit failures are logged and
// swallowed; they must never abort the evaluation.
func (s *Scheduler) writeAudit(ws *models.Workspace, prev ratchet.RatchetState, decision ratchet.Decision, sig ratchet.Signals, detail string, now time.Time) {
	err := s.store.AppendAuditLog(store.AuditEntry{
		WorkspaceID:   ws.ID,
		PRNumber:      ws.PRNumber,
		PreviousState: prev,
		NewState:      decision.Next,
		Action:        decision.Action,
		ActionDetail:  detail,
		Snapshot: &store.PRSnapshot{
			URL:         ws.PRURL,
			Number:      ws.PRNumber,
			State:       sig.PRState,
			Observation: sig.Observation,
			Review:      sig.Review,
			CIRunID:     sig.CIRunID,
		},
		Timestamp: now,
	})
	if err != nil {
		log.Printf("scheduler: workspace %s: audit write: %v", ws.ID, err)
	}
}

// maybeNotify applies the de-duplication rule and fires the sinks when it
// passes. The transition is already durable by the time this runs, so
// notification failures never block state persistence.
func (s *Scheduler) maybeNotify(ctx context.Context, ws *models.Workspace, decision ratchet.Decision, now time.Time) {
	if s.notifier == nil {
		return
	}
	// No-op cycles only re-notify for still-failing states (cooldown
	// repeats); everything else requires an actual transition.
	if decision.NoChange && !decision.Next.Failing() {
		return
	}

	var lastAt time.Time
	if ws.RatchetLastNotifiedAt != nil {
		lastAt = *ws.RatchetLastNotifiedAt
	}
	should := ratchet.ShouldNotify(ratchet.NotifyInput{
		NewState:          decision.Next,
		LastNotifiedState: ratchet.RatchetState(ws.RatchetLastNotifiedState),
		LastNotifiedAt:    lastAt,
		Now:               now,
		Cooldown:          s.cfg.NotificationCooldown,
	})
	if !should {
		return
	}

	detail := decision.Detail
	if detail == "" {
		detail = decision.Action
	}
	s.notifier.Notify(ctx, notify.Event{
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		State:         decision.Next,
		Detail:        detail,
		PRURL:         ws.PRURL,
		PRNumber:      ws.PRNumber,
	})

	if err := s.store.MarkNotified(ws.ID, decision.Next, detail, now); err != nil {
		log.Printf("scheduler: workspace %s: mark notified: %v", ws.ID, err)
	}
}
