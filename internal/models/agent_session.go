package models

import "time"

// Session status values.
const (
	SessionRunning   = "running"
	SessionCompleted = "completed"
	SessionFailed    = "failed"
	SessionExpired   = "expired"
)

// AgentSession tracks one coding-agent subprocess dispatched into a
// workspace. Fixer sessions carry workflow "ratchet"; the acquisition
// transaction counts running rows here to enforce the per-workspace cap.
type AgentSession struct {
	ID            string    `gorm:"primaryKey;size:64"`
	WorkspaceID   string    `gorm:"size:32;not null;index:idx_workspace_status"`
	Workflow      string    `gorm:"size:32;index"`
	Name          string    `gorm:"size:128"`
	Status        string    `gorm:"size:16;default:running;index:idx_workspace_status"`
	Reason        string    `gorm:"size:32"`
	PID           int       `gorm:"column:pid"`
	LastHeartbeat time.Time `gorm:"index"`
	StartedAt     time.Time
	CompletedAt   *time.Time

	Workspace Workspace `gorm:"foreignKey:WorkspaceID"`
}

// Running reports whether the session is still believed to be in flight.
func (s *AgentSession) Running() bool {
	return s.Status == SessionRunning
}
