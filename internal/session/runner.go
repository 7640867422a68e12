package session

import (
	"context"
	"log"
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/store"
)

// DefaultHeartbeatInterval is the interval between session heartbeat updates.
const DefaultHeartbeatInterval = 30 * time.Second

// Runner supervises spawned fixer processes: it records the PID, heartbeats
// the session row while the process lives, and marks the session terminal on
// exit (which also frees the workspace's active-session slot).
type Runner struct {
	Store             *store.Store
	Spawner           Spawner
	HeartbeatInterval time.Duration
}

// Launch spawns the fixer process for an acquired session and supervises it
// in the background. Launch itself returns once the process has started;
// failures to even start are reported synchronously and the session is
// marked failed.
func (r *Runner) Launch(ctx context.Context, session *models.AgentSession, workDir, prompt string) error {
	proc, err := r.Spawner.Spawn(ctx, workDir, prompt)
	if err != nil {
		if ferr := r.Store.FinishSession(session.ID, models.SessionFailed, time.Now()); ferr != nil {
			log.Printf("session %s: mark failed: %v", session.ID, ferr)
		}
		return err
	}

	if err := r.Store.SetSessionPID(session.ID, proc.PID()); err != nil {
		log.Printf("session %s: record pid: %v", session.ID, err)
	}

	go r.supervise(ctx, session.ID, proc)
	return nil
}

func (r *Runner) supervise(ctx context.Context, sessionID string, proc Process) {
	interval := r.HeartbeatInterval
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Drain output; the transcript is not persisted, the agent's work
	// product is the pushed branch.
	go func() {
		for range proc.Recv() {
		}
	}()

	for {
		select {
		case <-ctx.Done():
			proc.Stop()
			<-proc.Done()
			r.finish(sessionID, models.SessionExpired)
			return
		case <-ticker.C:
			if err := r.Store.HeartbeatSession(sessionID, time.Now()); err != nil {
				log.Printf("session %s: heartbeat: %v", sessionID, err)
			}
		case <-proc.Done():
			status := models.SessionCompleted
			if proc.ExitErr() != nil {
				status = models.SessionFailed
				log.Printf("session %s: exited with error: %v", sessionID, proc.ExitErr())
			}
			r.finish(sessionID, status)
			return
		}
	}
}

func (r *Runner) finish(sessionID, status string) {
	if err := r.Store.FinishSession(sessionID, status, time.Now()); err != nil {
		log.Printf("session %s: finish: %v", sessionID, err)
	}
}
