package store

import (
	"testing"
	"time"

	"github.com/zulandar/ratchet/internal/models"
)

func TestAcquireFixerSession_Created(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	acq, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID,
		Workflow:    "ratchet",
		Name:        "fix ci_failure #101",
		Reason:      "ci_failure",
		MaxSessions: 1,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("AcquireFixerSession: %v", err)
	}
	if acq.Outcome != OutcomeCreated {
		t.Fatalf("Outcome = %s, want created", acq.Outcome)
	}
	if acq.Session == nil || acq.Session.Status != models.SessionRunning {
		t.Fatalf("Session = %+v", acq.Session)
	}

	got, _ := st.GetWorkspace(ws.ID)
	if got.RatchetActiveSessionID == nil || *got.RatchetActiveSessionID != acq.Session.ID {
		t.Error("workspace active-session slot should point at the new session")
	}
}

// Scenario: two acquisitions in succession with maxFixerSessions=1. The
// second must return the session the first created, never a duplicate.
func TestAcquireFixerSession_SecondCallReturnsExisting(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	first, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	second, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	if second.Outcome != OutcomeExisting {
		t.Fatalf("second Outcome = %s, want existing", second.Outcome)
	}
	if second.Session.ID != first.Session.ID {
		t.Errorf("second call returned session %s, want %s", second.Session.ID, first.Session.ID)
	}

	var count int64
	db.Model(&models.AgentSession{}).Where("workspace_id = ?", ws.ID).Count(&count)
	if count != 1 {
		t.Errorf("session rows = %d, want 1", count)
	}
}

func TestAcquireFixerSession_LimitReached(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	// A running session under a different workflow occupies the cap without
	// matching the "existing" check.
	other := models.AgentSession{
		ID:            models.NewID(),
		WorkspaceID:   ws.ID,
		Workflow:      "manual",
		Status:        models.SessionRunning,
		LastHeartbeat: now,
		StartedAt:     now,
	}
	if err := db.Create(&other).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	acq, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("AcquireFixerSession: %v", err)
	}
	if acq.Outcome != OutcomeLimitReached {
		t.Errorf("Outcome = %s, want limit_reached", acq.Outcome)
	}
	if acq.Session != nil {
		t.Error("limit_reached must not carry a session")
	}
}

func TestAcquireFixerSession_ExpiresStaleHeartbeat(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	stale := models.AgentSession{
		ID:            models.NewID(),
		WorkspaceID:   ws.ID,
		Workflow:      "ratchet",
		Status:        models.SessionRunning,
		LastHeartbeat: now.Add(-time.Hour),
		StartedAt:     now.Add(-2 * time.Hour),
	}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	acq, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID,
		Workflow:    "ratchet",
		MaxSessions: 1,
		IdleTimeout: 15 * time.Minute,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("AcquireFixerSession: %v", err)
	}
	if acq.Outcome != OutcomeCreated {
		t.Fatalf("Outcome = %s, want created (stale session expired)", acq.Outcome)
	}

	var reloaded models.AgentSession
	db.Where("id = ?", stale.ID).First(&reloaded)
	if reloaded.Status != models.SessionExpired {
		t.Errorf("stale session status = %q, want expired", reloaded.Status)
	}
	if reloaded.CompletedAt == nil {
		t.Error("expired session should have a completion time")
	}
}

func TestAcquireFixerSession_FreshHeartbeatSurvives(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	live := models.AgentSession{
		ID:            models.NewID(),
		WorkspaceID:   ws.ID,
		Workflow:      "ratchet",
		Status:        models.SessionRunning,
		LastHeartbeat: now.Add(-time.Minute),
		StartedAt:     now.Add(-10 * time.Minute),
	}
	if err := db.Create(&live).Error; err != nil {
		t.Fatalf("create session: %v", err)
	}

	acq, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID,
		Workflow:    "ratchet",
		MaxSessions: 1,
		IdleTimeout: 15 * time.Minute,
		Now:         now,
	})
	if err != nil {
		t.Fatalf("AcquireFixerSession: %v", err)
	}
	if acq.Outcome != OutcomeExisting || acq.Session.ID != live.ID {
		t.Errorf("acq = %+v, want existing %s", acq, live.ID)
	}
}

func TestAcquireFixerSession_Validation(t *testing.T) {
	st := New(openTestDB(t))
	if _, err := st.AcquireFixerSession(AcquireOpts{Workflow: "ratchet"}); err == nil {
		t.Error("expected error for missing workspace ID")
	}
	if _, err := st.AcquireFixerSession(AcquireOpts{WorkspaceID: "w"}); err == nil {
		t.Error("expected error for missing workflow")
	}
}

// Terminal property: acquiring again after the session finishes creates a
// fresh one; until then every call returns existing.
func TestAcquireFixerSession_SlotRecycles(t *testing.T) {
	db := openTestDB(t)
	st := New(db)
	ws := seedWorkspace(t, db, nil)
	now := time.Now()

	first, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now,
	})
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := st.FinishSession(first.Session.ID, models.SessionCompleted, now); err != nil {
		t.Fatalf("FinishSession: %v", err)
	}

	second, err := st.AcquireFixerSession(AcquireOpts{
		WorkspaceID: ws.ID, Workflow: "ratchet", MaxSessions: 1, Now: now.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if second.Outcome != OutcomeCreated {
		t.Errorf("Outcome = %s, want created after finish", second.Outcome)
	}
	if second.Session.ID == first.Session.ID {
		t.Error("reacquire returned the finished session")
	}
}
