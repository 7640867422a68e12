package ratchet

// Lifecycle is the provisioning state of a workspace worktree, independent
// of PR progression.
type Lifecycle string

const (
	LifecycleNew          Lifecycle = "NEW"
	LifecycleProvisioning Lifecycle = "PROVISIONING"
	LifecycleReady        Lifecycle = "READY"
	LifecycleArchived     Lifecycle = "ARCHIVED"
)

// KanbanColumn is a derived, non-authoritative grouping consumed by display
// layers.
type KanbanColumn string

const (
	ColumnWorking KanbanColumn = "WORKING"
	ColumnWaiting KanbanColumn = "WAITING"
	ColumnDone    KanbanColumn = "DONE"
)

// ComputeKanbanColumn derives the display column for a workspace. The second
// return value is false when the workspace should be hidden (ready, idle,
// and never touched by a session).
func ComputeKanbanColumn(lifecycle Lifecycle, working bool, pr PRState, hasHadSessions bool) (KanbanColumn, bool) {
	if lifecycle != LifecycleReady || working {
		return ColumnWorking, true
	}
	if pr == PRMerged {
		return ColumnDone, true
	}
	if !hasHadSessions {
		return "", false
	}
	return ColumnWaiting, true
}
