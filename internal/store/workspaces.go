package store

import (
	"errors"
	"fmt"

	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/ratchet"
	"gorm.io/gorm"
)

// ErrNotFound is returned by lookups when no row matches.
var ErrNotFound = errors.New("store: not found")

// FindProjectByName returns the project with the given name.
func (s *Store) FindProjectByName(name string) (*models.Project, error) {
	var project models.Project
	err := s.db.Where("name = ?", name).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: project %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find project %q: %w", name, err)
	}
	return &project, nil
}

// FindWorkspaceByName returns the workspace with the given name, with its
// project preloaded. Workspace names are unique per deployment.
func (s *Store) FindWorkspaceByName(name string) (*models.Workspace, error) {
	var ws models.Workspace
	err := s.db.Preload("Project").Where("name = ?", name).First(&ws).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: workspace %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("store: find workspace %q: %w", name, err)
	}
	return &ws, nil
}

// CreateWorkspaceOpts holds parameters for registering a workspace.
type CreateWorkspaceOpts struct {
	ProjectID string
	Name      string
	Branch    string
	Path      string
	Enabled   bool
}

// CreateWorkspace registers a new workspace. Registration does not touch the
// filesystem; the worktree at Path is expected to already exist.
func (s *Store) CreateWorkspace(opts CreateWorkspaceOpts) (*models.Workspace, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("store: workspace name is required")
	}
	ws := models.Workspace{
		ID:             models.NewID(),
		ProjectID:      opts.ProjectID,
		Name:           opts.Name,
		Branch:         opts.Branch,
		Path:           opts.Path,
		Lifecycle:      string(ratchet.LifecycleReady),
		RatchetEnabled: opts.Enabled,
		RatchetState:   "IDLE",
		PRState:        "NONE",
		PRCIStatus:     "UNKNOWN",
	}
	if err := s.db.Create(&ws).Error; err != nil {
		return nil, fmt.Errorf("store: create workspace %q: %w", opts.Name, err)
	}
	return &ws, nil
}

// ListAllWorkspaces returns every workspace with projects preloaded, newest
// first.
func (s *Store) ListAllWorkspaces() ([]models.Workspace, error) {
	var workspaces []models.Workspace
	err := s.db.Preload("Project").Order("created_at DESC").Find(&workspaces).Error
	if err != nil {
		return nil, fmt.Errorf("store: list workspaces: %w", err)
	}
	return workspaces, nil
}

// SetRatchetEnabled flips the eligibility flag for a workspace.
func (s *Store) SetRatchetEnabled(workspaceID string, enabled bool) error {
	result := s.db.Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Update("ratchet_enabled", enabled)
	if result.Error != nil {
		return fmt.Errorf("store: set ratchet enabled for %s: %w", workspaceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: workspace %s", ErrNotFound, workspaceID)
	}
	return nil
}

// AttachPR points a workspace at a pull request and resets the ratchet
// tracking columns so the next evaluation starts from a clean IDLE slate.
func (s *Store) AttachPR(workspaceID, prURL string, prNumber int) error {
	if prNumber <= 0 {
		return fmt.Errorf("store: pr number must be positive")
	}
	result := s.db.Model(&models.Workspace{}).
		Where("id = ?", workspaceID).
		Updates(map[string]interface{}{
			"pr_url":                      prURL,
			"pr_number":                   prNumber,
			"pr_state":                    "OPEN",
			"pr_ci_status":                "UNKNOWN",
			"ratchet_state":               "IDLE",
			"ratchet_last_ci_run_id":      0,
			"ratchet_last_checked_at":     nil,
			"ratchet_last_notified_state": "",
			"ratchet_last_notified_at":    nil,
		})
	if result.Error != nil {
		return fmt.Errorf("store: attach pr to %s: %w", workspaceID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: workspace %s", ErrNotFound, workspaceID)
	}
	return nil
}
