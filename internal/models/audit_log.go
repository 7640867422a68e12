package models

import "time"

// RatchetAuditLog is one append-only record of a scheduler decision. Rows
// are never updated or deleted; the table is the historical truth for state
// transitions, while the workspace row only reflects "now".
type RatchetAuditLog struct {
	ID            uint   `gorm:"primaryKey;autoIncrement"`
	WorkspaceID   string `gorm:"size:32;not null;index:idx_workspace_time"`
	PRNumber      *int
	PreviousState string    `gorm:"size:16"`
	NewState      string    `gorm:"size:16"`
	Action        string    `gorm:"size:32;index"`
	ActionDetail  string    `gorm:"type:text"`
	PRSnapshot    string    `gorm:"type:json"`
	CreatedAt     time.Time `gorm:"index:idx_workspace_time"`
}
