package models

import "time"

// NotificationRecord logs one human-facing notification that actually fired.
// Cooldown decisions read the workspace's ratchet_last_notified_* columns;
// these rows exist for digests and debugging.
type NotificationRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	WorkspaceID string    `gorm:"size:32;not null;index"`
	State       string    `gorm:"size:16"`
	Detail      string    `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index"`
}
