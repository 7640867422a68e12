package store

import (
	"testing"
	"time"

	"github.com/zulandar/ratchet/internal/models"
)

func TestFinishSession_ClearsSlot(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	acq, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := st.FinishSession(acq.Session.ID, models.SessionCompleted, now); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	var reloaded models.AgentSession
	db.Where("id = ?", acq.Session.ID).First(&reloaded)
	if reloaded.Status != models.SessionCompleted {
		t.Errorf("status = %q, want completed", reloaded.Status)
	}
	if reloaded.CompletedAt == nil {
		t.Error("CompletedAt not set")
	}

	got, _ := st.GetWorkspace(ws.ID)
	if got.RatchetActiveSessionID != nil {
		t.Error("workspace slot should be cleared")
	}
}

func TestFinishSession_LeavesForeignSlot(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	other := "someone-else"
	ws := seedWorkspace(t, db, func(ws *models.Workspace) {
		ws.RatchetActiveSessionID = &other
	})
	now := time.Now()

	sess := models.AgentSession{
		ID:          models.NewID(),
		WorkspaceID: ws.ID,
		Workflow:    "ratchet",
		Status:      models.SessionRunning,
		StartedAt:   now,
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := st.FinishSession(sess.ID, models.SessionFailed, now); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	got, _ := st.GetWorkspace(ws.ID)
	if got.RatchetActiveSessionID == nil || *got.RatchetActiveSessionID != other {
		t.Error("slot referencing a different session must not be touched")
	}
}

func TestHeartbeatSession(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	started := time.Now().Add(-time.Hour)

	sess := models.AgentSession{
		ID:            models.NewID(),
		WorkspaceID:   ws.ID,
		Workflow:      "ratchet",
		Status:        models.SessionRunning,
		LastHeartbeat: started,
		StartedAt:     started,
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	now := time.Now()
	if err := st.HeartbeatSession(sess.ID, now); err != nil {
		t.Fatalf("HeartbeatSession: %v", err)
	}

	var reloaded models.AgentSession
	db.Where("id = ?", sess.ID).First(&reloaded)
	if !reloaded.LastHeartbeat.After(started) {
		t.Error("heartbeat not advanced")
	}
}

func TestHeartbeatSession_NotRunning(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)

	sess := models.AgentSession{
		ID:          models.NewID(),
		WorkspaceID: ws.ID,
		Workflow:    "ratchet",
		Status:      models.SessionCompleted,
		StartedAt:   time.Now(),
	}
	if err := db.Create(&sess).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	if err := st.HeartbeatSession(sess.ID, time.Now()); err == nil {
		t.Error("expected error heartbeating a completed session")
	}
}

func TestReconcileActiveSessions(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	now := time.Now()

	// Workspace A: slot points at a session that is no longer running.
	deadID := models.NewID()
	wsA := seedWorkspace(t, db, func(ws *models.Workspace) {
		ws.Name = "ws-dead-session"
		ws.RatchetActiveSessionID = &deadID
	})
	dead := models.AgentSession{
		ID: deadID, WorkspaceID: wsA.ID, Workflow: "ratchet",
		Status: models.SessionRunning, StartedAt: now.Add(-time.Hour),
	}
	if err := db.Create(&dead).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	// Workspace B: slot points at a vanished session row.
	ghostID := models.NewID()
	wsB := seedWorkspace(t, db, func(ws *models.Workspace) {
		ws.Name = "ws-ghost-session"
		ws.RatchetActiveSessionID = &ghostID
	})

	// Workspace C: healthy slot, untouched.
	liveID := models.NewID()
	wsC := seedWorkspace(t, db, func(ws *models.Workspace) {
		ws.Name = "ws-live-session"
		ws.RatchetActiveSessionID = &liveID
	})
	live := models.AgentSession{
		ID: liveID, WorkspaceID: wsC.ID, Workflow: "ratchet",
		Status: models.SessionRunning, LastHeartbeat: now, StartedAt: now,
	}
	if err := db.Create(&live).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}
	// Reconcile treats any running session as live; kill one first to make
	// it orphaned.
	db.Model(&models.AgentSession{}).Where("id = ?", deadID).Update("status", models.SessionFailed)

	cleared, err := st.ReconcileActiveSessions(now)
	if err != nil {
		t.Fatalf("ReconcileActiveSessions: %v", err)
	}
	if cleared != 2 {
		t.Errorf("cleared = %d, want 2", cleared)
	}

	gotA, _ := st.GetWorkspace(wsA.ID)
	if gotA.RatchetActiveSessionID != nil {
		t.Error("workspace A slot should be cleared")
	}
	gotB, _ := st.GetWorkspace(wsB.ID)
	if gotB.RatchetActiveSessionID != nil {
		t.Error("workspace B slot should be cleared")
	}
	gotC, _ := st.GetWorkspace(wsC.ID)
	if gotC.RatchetActiveSessionID == nil {
		t.Error("workspace C slot should survive")
	}
}

func TestFindSessionsByWorkspace(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	for i, status := range []string{models.SessionCompleted, models.SessionRunning, models.SessionFailed} {
		sess := models.AgentSession{
			ID:          models.NewID(),
			WorkspaceID: ws.ID,
			Workflow:    "ratchet",
			Status:      status,
			StartedAt:   now.Add(time.Duration(i) * time.Minute),
		}
		if err := db.Create(&sess).Error; err != nil {
			t.Fatalf("create session: %v", err)
		}
	}

	all, err := st.FindSessionsByWorkspace(ws.ID, SessionFilters{})
	if err != nil {
		t.Fatalf("FindSessionsByWorkspace: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("sessions = %d, want 3", len(all))
	}
	if all[0].StartedAt.Before(all[2].StartedAt) {
		t.Error("want newest first")
	}

	running, err := st.FindSessionsByWorkspace(ws.ID, SessionFilters{Status: models.SessionRunning})
	if err != nil {
		t.Fatalf("filtered find: %v", err)
	}
	if len(running) != 1 {
		t.Errorf("running sessions = %d, want 1", len(running))
	}
}
