package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/ratchet"
)

// PRSnapshot is the serialized view of a PR at decision time, stored on
// audit rows for debugging.
type PRSnapshot struct {
	URL         string                `json:"url,omitempty"`
	Number      int                   `json:"number,omitempty"`
	State       ratchet.PRState       `json:"state"`
	Observation ratchet.CiObservation `json:"observation"`
	Review      ratchet.ReviewDecision `json:"review,omitempty"`
	CIRunID     int64                 `json:"ci_run_id,omitempty"`
}

// AuditEntry is one scheduler decision to append.
type AuditEntry struct {
	WorkspaceID   string
	PRNumber      int // 0 when the workspace has no PR
	PreviousState ratchet.RatchetState
	NewState      ratchet.RatchetState
	Action        string
	ActionDetail  string
	Snapshot      *PRSnapshot
	Timestamp     time.Time
}

// AppendAuditLog inserts one immutable audit row. Rows are never updated or
// deleted afterward.
func (s *Store) AppendAuditLog(entry AuditEntry) error {
	if entry.WorkspaceID == "" {
		return fmt.Errorf("store: audit entry needs a workspace")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	row := models.RatchetAuditLog{
		WorkspaceID:   entry.WorkspaceID,
		PreviousState: string(entry.PreviousState),
		NewState:      string(entry.NewState),
		Action:        entry.Action,
		ActionDetail:  entry.ActionDetail,
		CreatedAt:     entry.Timestamp,
	}
	if entry.PRNumber != 0 {
		n := entry.PRNumber
		row.PRNumber = &n
	}
	if entry.Snapshot != nil {
		data, err := json.Marshal(entry.Snapshot)
		if err != nil {
			return fmt.Errorf("store: marshal pr snapshot: %w", err)
		}
		row.PRSnapshot = string(data)
	}

	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("store: append audit log: %w", err)
	}
	return nil
}

// RecentAudit returns the newest audit rows for a workspace.
func (s *Store) RecentAudit(workspaceID string, limit int) ([]models.RatchetAuditLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.RatchetAuditLog
	err := s.db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: recent audit for %s: %w", workspaceID, err)
	}
	return rows, nil
}

// AuditActivity holds per-workspace transition counts over a period, used
// by the digest.
type AuditActivity struct {
	WorkspaceID string
	Action      string
	Count       int
}

// AuditActivitySince aggregates audit rows newer than since, grouped by
// workspace and action.
func (s *Store) AuditActivitySince(since time.Time) ([]AuditActivity, error) {
	var rows []AuditActivity
	err := s.db.Model(&models.RatchetAuditLog{}).
		Select("workspace_id, action, count(*) as count").
		Where("created_at >= ?", since).
		Group("workspace_id, action").
		Order("workspace_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: audit activity: %w", err)
	}
	return rows, nil
}
