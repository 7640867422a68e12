package store

import (
	"fmt"
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"gorm.io/gorm"
)

// SessionFilters narrows FindSessionsByWorkspace.
type SessionFilters struct {
	Workflow string
	Status   string
}

// FindSessionsByWorkspace returns a workspace's sessions, newest first.
func (s *Store) FindSessionsByWorkspace(workspaceID string, filters SessionFilters) ([]models.AgentSession, error) {
	q := s.db.Where("workspace_id = ?", workspaceID)
	if filters.Workflow != "" {
		q = q.Where("workflow = ?", filters.Workflow)
	}
	if filters.Status != "" {
		q = q.Where("status = ?", filters.Status)
	}

	var sessions []models.AgentSession
	if err := q.Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("store: find sessions for %s: %w", workspaceID, err)
	}
	return sessions, nil
}

// HeartbeatSession refreshes a running session's heartbeat.
func (s *Store) HeartbeatSession(sessionID string, now time.Time) error {
	result := s.db.Model(&models.AgentSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionRunning).
		Update("last_heartbeat", now)
	if result.Error != nil {
		return fmt.Errorf("store: heartbeat session %s: %w", sessionID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: session %s not found or not running", sessionID)
	}
	return nil
}

// FinishSession marks a session terminal and, when the owning workspace's
// active-session slot still references it, clears the slot so acquisition
// re-arms for the next cycle.
func (s *Store) FinishSession(sessionID, status string, now time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var session models.AgentSession
		if err := tx.Where("id = ?", sessionID).First(&session).Error; err != nil {
			return fmt.Errorf("load session %s: %w", sessionID, err)
		}

		if err := tx.Model(&models.AgentSession{}).Where("id = ?", sessionID).
			Updates(map[string]interface{}{
				"status":       status,
				"completed_at": now,
			}).Error; err != nil {
			return fmt.Errorf("finish session %s: %w", sessionID, err)
		}

		return tx.Model(&models.Workspace{}).
			Where("id = ? AND ratchet_active_session_id = ?", session.WorkspaceID, sessionID).
			Update("ratchet_active_session_id", nil).Error
	})
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

// SetSessionPID records the spawned subprocess PID on the session.
func (s *Store) SetSessionPID(sessionID string, pid int) error {
	err := s.db.Model(&models.AgentSession{}).
		Where("id = ?", sessionID).
		Update("pid", pid).Error
	if err != nil {
		return fmt.Errorf("store: set pid for session %s: %w", sessionID, err)
	}
	return nil
}

// ReconcileActiveSessions runs at scheduler startup: any workspace whose
// active-session reference points at a session that is no longer running
// gets the slot cleared. The daemon holds no in-memory state, so a crash
// mid-fix leaves exactly this inconsistency behind.
func (s *Store) ReconcileActiveSessions(now time.Time) (int, error) {
	var workspaces []models.Workspace
	if err := s.db.Where("ratchet_active_session_id IS NOT NULL").Find(&workspaces).Error; err != nil {
		return 0, fmt.Errorf("store: reconcile: find workspaces: %w", err)
	}

	cleared := 0
	for _, ws := range workspaces {
		var session models.AgentSession
		err := s.db.Where("id = ?", *ws.RatchetActiveSessionID).First(&session).Error
		stillRunning := err == nil && session.Running()
		if stillRunning {
			continue
		}

		// The referenced session died with the previous process (or the row
		// vanished); mark it terminal and free the slot.
		if err == nil {
			if ferr := s.FinishSession(session.ID, models.SessionExpired, now); ferr != nil {
				return cleared, ferr
			}
		} else {
			if uerr := s.db.Model(&models.Workspace{}).Where("id = ?", ws.ID).
				Update("ratchet_active_session_id", nil).Error; uerr != nil {
				return cleared, fmt.Errorf("store: reconcile workspace %s: %w", ws.ID, uerr)
			}
		}
		cleared++
	}
	return cleared, nil
}
