package store

import (
	"fmt"
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AcquireOutcome tags the result of a fixer-session acquisition attempt.
type AcquireOutcome string

const (
	// OutcomeExisting means a session with the requested workflow is already
	// running for the workspace; no new session was created.
	OutcomeExisting AcquireOutcome = "existing"
	// OutcomeLimitReached means the workspace is at its concurrent-session
	// cap. This is an expected result, not an error.
	OutcomeLimitReached AcquireOutcome = "limit_reached"
	// OutcomeCreated means a new session record was created and the
	// workspace's active-session slot now references it.
	OutcomeCreated AcquireOutcome = "created"
)

// Acquisition is the tagged result of AcquireFixerSession. Session is set
// for existing and created outcomes.
type Acquisition struct {
	Outcome AcquireOutcome
	Session *models.AgentSession
}

// AcquireOpts holds parameters for acquiring a fixer session.
type AcquireOpts struct {
	WorkspaceID string
	Workflow    string // e.g. "ratchet"
	Name        string // session display name
	Reason      string // what the fixer is for
	MaxSessions int    // per-workspace concurrent session cap
	IdleTimeout time.Duration
	Now         time.Time
}

// AcquireFixerSession enforces at-most-N concurrent sessions per workspace
// as a single atomic decision. It expires sessions with stale heartbeats,
// returns any running session with the same workflow, refuses at capacity,
// and otherwise creates the session and points the workspace's
// ratchet_active_session_id at it, all in one transaction so two racing
// evaluations of the same workspace cannot both create.
//
// MySQL gets a FOR UPDATE SKIP LOCKED row lock on the workspace; SQLite
// serializes writing transactions on its own, so the clause is skipped
// there.
func (s *Store) AcquireFixerSession(opts AcquireOpts) (*Acquisition, error) {
	if opts.WorkspaceID == "" {
		return nil, fmt.Errorf("store: workspaceID is required")
	}
	if opts.Workflow == "" {
		return nil, fmt.Errorf("store: workflow is required")
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	var acq Acquisition

	err := s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize racing acquisitions on the workspace row.
		wsQuery := tx.Where("id = ?", opts.WorkspaceID)
		if tx.Dialector.Name() == "mysql" {
			wsQuery = wsQuery.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		var ws models.Workspace
		if err := wsQuery.First(&ws).Error; err != nil {
			return fmt.Errorf("lock workspace %s: %w", opts.WorkspaceID, err)
		}

		// Expire sessions whose heartbeat went stale; a dead fixer must not
		// hold the slot forever.
		if opts.IdleTimeout > 0 {
			cutoff := opts.Now.Add(-opts.IdleTimeout)
			if err := tx.Model(&models.AgentSession{}).
				Where("workspace_id = ? AND status = ? AND last_heartbeat < ?",
					opts.WorkspaceID, models.SessionRunning, cutoff).
				Updates(map[string]interface{}{
					"status":       models.SessionExpired,
					"completed_at": opts.Now,
				}).Error; err != nil {
				return fmt.Errorf("expire stale sessions: %w", err)
			}
		}

		// An in-flight session with the same workflow wins: the scheduler
		// double-fired before the previous fixer finished.
		var existing models.AgentSession
		result := tx.Where("workspace_id = ? AND workflow = ? AND status = ?",
			opts.WorkspaceID, opts.Workflow, models.SessionRunning).
			Order("started_at ASC").
			First(&existing)
		if result.Error == nil {
			acq = Acquisition{Outcome: OutcomeExisting, Session: &existing}
			return nil
		}
		if result.Error != gorm.ErrRecordNotFound {
			return fmt.Errorf("check existing session: %w", result.Error)
		}

		// Capacity check counts running sessions of any kind.
		var running int64
		if err := tx.Model(&models.AgentSession{}).
			Where("workspace_id = ? AND status = ?", opts.WorkspaceID, models.SessionRunning).
			Count(&running).Error; err != nil {
			return fmt.Errorf("count running sessions: %w", err)
		}
		if running >= int64(opts.MaxSessions) {
			acq = Acquisition{Outcome: OutcomeLimitReached}
			return nil
		}

		session := models.AgentSession{
			ID:            models.NewID(),
			WorkspaceID:   opts.WorkspaceID,
			Workflow:      opts.Workflow,
			Name:          opts.Name,
			Status:        models.SessionRunning,
			Reason:        opts.Reason,
			LastHeartbeat: opts.Now,
			StartedAt:     opts.Now,
		}
		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("create session: %w", err)
		}

		if err := tx.Model(&models.Workspace{}).Where("id = ?", opts.WorkspaceID).
			Update("ratchet_active_session_id", session.ID).Error; err != nil {
			return fmt.Errorf("set active session: %w", err)
		}

		acq = Acquisition{Outcome: OutcomeCreated, Session: &session}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: acquire fixer session: %w", err)
	}
	return &acq, nil
}
