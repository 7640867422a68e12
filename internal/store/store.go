// Package store is the GORM-backed persistence layer for the ratchet
// scheduler: eligibility queries, decision persistence, fixer-session
// acquisition, and the append-only audit log.
package store

import (
	"fmt"
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/ratchet"
	"gorm.io/gorm"
)

// Store wraps a GORM connection with ratchet-specific queries.
type Store struct {
	db *gorm.DB
}

// New creates a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection for read-only collaborators
// (dashboard queries, CLI listings).
func (s *Store) DB() *gorm.DB {
	return s.db
}

// FindRatchetEligible returns workspaces due for evaluation: ratcheting
// enabled and last checked at least interval ago (or never). Workspaces in
// MERGED are included so PR re-opens can be observed; their evaluation is a
// no-op otherwise.
func (s *Store) FindRatchetEligible(now time.Time, interval time.Duration) ([]models.Workspace, error) {
	cutoff := now.Add(-interval)
	var workspaces []models.Workspace
	err := s.db.
		Preload("Project").
		Where("ratchet_enabled = ?", true).
		Where("ratchet_last_checked_at IS NULL OR ratchet_last_checked_at <= ?", cutoff).
		Order("ratchet_last_checked_at ASC").
		Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("store: find eligible workspaces: %w", err)
	}
	return workspaces, nil
}

// StatePatch is the durable result of one evaluation.
type StatePatch struct {
	State              ratchet.RatchetState
	LastCIRunID        int64
	PRState            ratchet.PRState
	PRCIStatus         ratchet.CIStatus
	ClearActiveSession bool
	CheckedAt          time.Time
}

// ApplyDecision persists a state transition and the fresh PR snapshot in one
// update. The caller must only invoke this for decisions that durably
// committed nowhere else; a failed write here means the transition did not
// happen.
func (s *Store) ApplyDecision(workspaceID string, patch StatePatch) error {
	updates := map[string]interface{}{
		"ratchet_state":           string(patch.State),
		"ratchet_last_ci_run_id":  patch.LastCIRunID,
		"ratchet_last_checked_at": patch.CheckedAt,
		"pr_state":                string(patch.PRState),
		"pr_ci_status":            string(patch.PRCIStatus),
	}
	if patch.ClearActiveSession {
		updates["ratchet_active_session_id"] = nil
	}

	result := s.db.Model(&models.Workspace{}).Where("id = ?", workspaceID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("store: apply decision for %s: %w", workspaceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: workspace %s not found", workspaceID)
	}
	return nil
}

// TouchChecked advances only the last-checked timestamp (used for true
// no-op evaluations, which must still count as a completed poll).
func (s *Store) TouchChecked(workspaceID string, now time.Time) error {
	result := s.db.Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Update("ratchet_last_checked_at", now)
	if result.Error != nil {
		return fmt.Errorf("store: touch checked for %s: %w", workspaceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: workspace %s", ErrNotFound, workspaceID)
	}
	return nil
}

// MarkNotified records that a notification actually fired: it advances the
// workspace's dedup columns and appends a NotificationRecord.
func (s *Store) MarkNotified(workspaceID string, state ratchet.RatchetState, detail string, now time.Time) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Workspace{}).Where("id = ?", workspaceID).Updates(map[string]interface{}{
			"ratchet_last_notified_state": string(state),
			"ratchet_last_notified_at":    now,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&models.NotificationRecord{
			WorkspaceID: workspaceID,
			State:       string(state),
			Detail:      detail,
			CreatedAt:   now,
		}).Error
	})
	if err != nil {
		return fmt.Errorf("store: mark notified for %s: %w", workspaceID, err)
	}
	return nil
}

// GetWorkspace fetches a single workspace by ID.
func (s *Store) GetWorkspace(id string) (*models.Workspace, error) {
	var ws models.Workspace
	if err := s.db.Where("id = ?", id).First(&ws).Error; err != nil {
		return nil, fmt.Errorf("store: get workspace %s: %w", id, err)
	}
	return &ws, nil
}
