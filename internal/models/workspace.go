package models

import "time"

// Workspace is an isolated git worktree tied to a project, with at most one
// active PR. The ratchet_* columns are the scheduler's durable state: the
// state machine is the only writer of ratchet_state, and
// ratchet_active_session_id acts as the per-workspace fixer mutex.
type Workspace struct {
	ID        string `gorm:"primaryKey;size:32"`
	ProjectID string `gorm:"size:32;index;not null"`
	Name      string `gorm:"size:128;not null"`
	Branch    string `gorm:"size:128"`
	Path      string `gorm:"type:text"`
	Lifecycle string `gorm:"size:16;default:NEW"`

	RatchetEnabled           bool   `gorm:"default:false;index"`
	RatchetState             string `gorm:"size:16;default:IDLE"`
	RatchetLastCheckedAt     *time.Time
	RatchetActiveSessionID   *string `gorm:"size:64"`
	RatchetLastCIRunID       int64
	RatchetLastNotifiedState string `gorm:"size:16"`
	RatchetLastNotifiedAt    *time.Time

	PRURL      string `gorm:"type:text"`
	PRNumber   int
	PRState    string `gorm:"size:24;default:NONE"`
	PRCIStatus string `gorm:"column:pr_ci_status;size:16;default:UNKNOWN"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Project  Project        `gorm:"foreignKey:ProjectID"`
	Sessions []AgentSession `gorm:"foreignKey:WorkspaceID"`
	Audit    []RatchetAuditLog `gorm:"foreignKey:WorkspaceID"`
}
