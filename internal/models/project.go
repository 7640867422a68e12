package models

import "time"

// Project is a repository configuration that workspaces belong to.
type Project struct {
	ID            string `gorm:"primaryKey;size:32"`
	Name          string `gorm:"size:64;uniqueIndex;not null"`
	Owner         string `gorm:"size:64;not null"`
	Repo          string `gorm:"size:128;not null"`
	Path          string `gorm:"type:text"`
	DefaultBranch string `gorm:"size:128;default:main"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Workspaces []Workspace `gorm:"foreignKey:ProjectID"`
}
