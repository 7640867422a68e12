package db

import (
	"fmt"

	"github.com/zulandar/ratchet/internal/config"
	"github.com/zulandar/ratchet/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Project{},
		&models.Workspace{},
		&models.AgentSession{},
		&models.RatchetAuditLog{},
		&models.NotificationRecord{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedProjects upserts Project rows from configuration, keyed by name.
func SeedProjects(db *gorm.DB, projects []config.ProjectConfig) error {
	for _, pc := range projects {
		project := models.Project{
			ID:            models.NewID(),
			Name:          pc.Name,
			Owner:         pc.Owner,
			Repo:          pc.Repo,
			Path:          pc.Path,
			DefaultBranch: pc.DefaultBranch,
		}

		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"owner", "repo", "path", "default_branch"}),
		}).Create(&project)
		if result.Error != nil {
			return fmt.Errorf("db: seed project %q: %w", pc.Name, result.Error)
		}
	}
	return nil
}
