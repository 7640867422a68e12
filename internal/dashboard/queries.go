package dashboard

import (
	"time"

	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/ratchet"
	"gorm.io/gorm"
)

// WorkspaceRow holds workspace data for the status API.
type WorkspaceRow struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Project          string     `json:"project"`
	Branch           string     `json:"branch"`
	RatchetEnabled   bool       `json:"ratchet_enabled"`
	RatchetState     string     `json:"ratchet_state"`
	ActiveSessionID  string     `json:"active_session_id,omitempty"`
	PRURL            string     `json:"pr_url,omitempty"`
	PRNumber         int        `json:"pr_number,omitempty"`
	PRState          string     `json:"pr_state"`
	CIStatus         string     `json:"ci_status"`
	KanbanColumn     string     `json:"kanban_column,omitempty"`
	LastCheckedAt    *time.Time `json:"last_checked_at,omitempty"`
	LastNotifiedAt   *time.Time `json:"last_notified_at,omitempty"`
}

// ListWorkspaces returns all workspaces with derived display fields.
func ListWorkspaces(db *gorm.DB) ([]WorkspaceRow, error) {
	var workspaces []models.Workspace
	if err := db.Preload("Project").Order("name ASC").Find(&workspaces).Error; err != nil {
		return nil, err
	}

	// One grouped query for session history instead of a count per workspace.
	var sessionCounts []struct {
		WorkspaceID string
		N           int64
	}
	err := db.Model(&models.AgentSession{}).
		Select("workspace_id, count(*) as n").
		Group("workspace_id").
		Scan(&sessionCounts).Error
	if err != nil {
		return nil, err
	}
	hadSessions := make(map[string]bool, len(sessionCounts))
	for _, c := range sessionCounts {
		hadSessions[c.WorkspaceID] = c.N > 0
	}

	rows := make([]WorkspaceRow, 0, len(workspaces))
	for _, ws := range workspaces {
		row := WorkspaceRow{
			ID:             ws.ID,
			Name:           ws.Name,
			Project:        ws.Project.Name,
			Branch:         ws.Branch,
			RatchetEnabled: ws.RatchetEnabled,
			RatchetState:   ws.RatchetState,
			PRURL:          ws.PRURL,
			PRNumber:       ws.PRNumber,
			PRState:        ws.PRState,
			LastCheckedAt:  ws.RatchetLastCheckedAt,
			LastNotifiedAt: ws.RatchetLastNotifiedAt,
		}
		if ws.RatchetActiveSessionID != nil {
			row.ActiveSessionID = *ws.RatchetActiveSessionID
		}

		row.CIStatus = string(ratchet.EffectiveCIStatus(
			ratchet.CIStatus(ws.PRCIStatus), ratchet.RatchetState(ws.RatchetState)))

		working := ws.RatchetActiveSessionID != nil
		if col, visible := ratchet.ComputeKanbanColumn(
			ratchet.Lifecycle(ws.Lifecycle), working,
			ratchet.PRState(ws.PRState), hadSessions[ws.ID]); visible {
			row.KanbanColumn = string(col)
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// AuditRow holds one audit log entry for the status API.
type AuditRow struct {
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Action        string    `json:"action"`
	ActionDetail  string    `json:"action_detail,omitempty"`
	PRNumber      *int      `json:"pr_number,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// WorkspaceAudit returns the newest audit rows for one workspace.
func WorkspaceAudit(db *gorm.DB, workspaceID string, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []models.RatchetAuditLog
	err := db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	rows := make([]AuditRow, len(entries))
	for i, e := range entries {
		rows[i] = AuditRow{
			PreviousState: e.PreviousState,
			NewState:      e.NewState,
			Action:        e.Action,
			ActionDetail:  e.ActionDetail,
			PRNumber:      e.PRNumber,
			Timestamp:     e.CreatedAt,
		}
	}
	return rows, nil
}
