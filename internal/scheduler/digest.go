package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/ratchet/internal/models"
	"github.com/zulandar/ratchet/internal/notify"
	"github.com/zulandar/ratchet/internal/store"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// RunDigest fires an activity digest through the notifier on the given cron
// schedule until ctx is cancelled. Digests with no activity are suppressed.
func (s *Scheduler) RunDigest(ctx context.Context, expr string) error {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return fmt.Errorf("scheduler: parse digest cron %q: %w", expr, err)
	}

	for {
		next := sched.Next(s.clock.Now())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}

		ev, err := BuildDigest(s.store, s.clock.Now().Add(-24*time.Hour))
		if err != nil {
			log.Printf("scheduler: build digest: %v", err)
			continue
		}
		if ev == nil || s.notifier == nil {
			continue
		}
		s.notifier.Notify(ctx, *ev)
	}
}

// BuildDigest aggregates audit activity since the given time into one
// notification event. Returns nil when there was no activity.
func BuildDigest(st *store.Store, since time.Time) (*notify.Event, error) {
	activity, err := st.AuditActivitySince(since)
	if err != nil {
		return nil, err
	}
	if len(activity) == 0 {
		return nil, nil
	}

	// Resolve workspace names for readable lines.
	names := make(map[string]string)
	var workspaces []models.Workspace
	if err := st.DB().Select("id", "name").Find(&workspaces).Error; err != nil {
		return nil, fmt.Errorf("scheduler: digest workspace names: %w", err)
	}
	for _, ws := range workspaces {
		names[ws.ID] = ws.Name
	}

	perWorkspace := make(map[string][]string)
	for _, a := range activity {
		perWorkspace[a.WorkspaceID] = append(perWorkspace[a.WorkspaceID],
			fmt.Sprintf("%s x%d", a.Action, a.Count))
	}

	ids := make([]string, 0, len(perWorkspace))
	for id := range perWorkspace {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var lines []string
	for _, id := range ids {
		name := names[id]
		if name == "" {
			name = id
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, strings.Join(perWorkspace[id], ", ")))
	}

	return &notify.Event{
		TitleText: fmt.Sprintf("Ratchet digest: %d workspace(s) active", len(ids)),
		Detail:    strings.Join(lines, "\n"),
	}, nil
}
