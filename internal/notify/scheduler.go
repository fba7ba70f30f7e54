package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/Xamyrz/task-bot-discord/internal/task"
)

// DefaultInterval matches the historical production tick period.
const DefaultInterval = 45 * time.Second

const day = 24 * time.Hour

// Delivery renders and sends a task's current state to one user.
type Delivery interface {
	DeliverTaskView(ctx context.Context, userID string, t *task.Task) error
}

// RoleResolver expands a role into its current member ids. Expansion
// happens at notification time, never at creation: membership is
// deliberately live.
type RoleResolver interface {
	ResolveRoleMembers(ctx context.Context, serverID, roleID string) ([]string, error)
}

// Scheduler is the reminder reconciliation loop. Each tick scans
// incomplete tasks approaching their deadline and fires each of the
// 7-day and 1-day thresholds exactly once per task; the notified
// flags in the store are what make re-fires impossible across ticks
// and restarts.
type Scheduler struct {
	repo     task.Repository
	delivery Delivery
	roles    RoleResolver
	interval time.Duration
	clock    func() time.Time
}

func NewScheduler(repo task.Repository, delivery Delivery, roles RoleResolver, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		repo:     repo,
		delivery: delivery,
		roles:    roles,
		interval: interval,
		clock:    time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (s *Scheduler) WithClock(clock func() time.Time) *Scheduler {
	s.clock = clock
	return s
}

// Start runs the startup reconciliation once, then ticks until the
// context ends. Ticks run sequentially in this goroutine; a tick that
// outlives the interval simply defers the next one.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.ReconcileStartup(ctx); err != nil {
		slog.Error("startup reconciliation failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	slog.Info("notification scheduler started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("notification scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Tick(ctx); err != nil {
				slog.Error("scheduler tick failed", "error", err)
			}
		}
	}
}

// Tick is one reconciliation pass. Safe to invoke repeatedly: a
// threshold that already fired is skipped via its notified flag, and
// a failure on one task never aborts the rest of the pass.
func (s *Scheduler) Tick(ctx context.Context) error {
	now := s.clock().UTC()
	tasks, err := s.repo.FindDueWithin(ctx, now.Add(7*day))
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Complete || !t.HasDeadline() {
			continue
		}
		if !t.Notified1Day && thresholdDue(t, now, day) {
			s.fire(ctx, t, task.Threshold1Day, now)
		}
		if !t.Notified7Day && thresholdDue(t, now, 7*day) {
			s.fire(ctx, t, task.Threshold7Day, now)
		}
	}
	return nil
}

// thresholdDue holds once the lead-time mark has been crossed AND the
// task is old enough to have had that much lead time at all; a task
// created three days before its deadline never gets a 7-day reminder.
func thresholdDue(t *task.Task, now time.Time, lead time.Duration) bool {
	return !t.Deadline.After(now.Add(lead)) && !t.Deadline.Before(t.DateCreated.Add(lead))
}

// fire marks the threshold notified and delivers. The flag write goes
// first: if it fails, nothing is delivered and the whole threshold is
// retried next tick; if it succeeds, a delivery failure can at worst
// lose a reminder, never duplicate one.
func (s *Scheduler) fire(ctx context.Context, t *task.Task, threshold task.Threshold, now time.Time) {
	if err := s.repo.SetNotified(ctx, t.ServerID, t.Name, threshold, now); err != nil {
		slog.Error("failed to persist notified flag",
			"server_id", t.ServerID, "task_name", t.Name, "threshold", int(threshold), "error", err)
		return
	}
	switch threshold {
	case task.Threshold1Day:
		t.Notified1Day = true
	case task.Threshold7Day:
		t.Notified7Day = true
	}
	t.LastNotified = &now
	slog.Info("reminder threshold fired",
		"server_id", t.ServerID, "task_name", t.Name, "threshold", int(threshold))
	s.deliver(ctx, t)
}

// deliver sends the task view to every currently resolved assignee.
// One user's delivery failure never blocks the rest.
func (s *Scheduler) deliver(ctx context.Context, t *task.Task) {
	users, err := s.assignees(ctx, t)
	if err != nil {
		slog.Error("failed to resolve assignees", "task_name", t.Name, "error", err)
		return
	}
	for _, userID := range users {
		if err := s.delivery.DeliverTaskView(ctx, userID, t); err != nil {
			slog.Error("failed to deliver task view", "task_name", t.Name, "user_id", userID, "error", err)
		}
	}
}

// assignees merges directly assigned users with live role expansion,
// deduplicated.
func (s *Scheduler) assignees(ctx context.Context, t *task.Task) ([]string, error) {
	users, err := s.repo.AssignedUsers(ctx, t.ServerID, t.Name)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(users))
	merged := make([]string, 0, len(users))
	for _, id := range users {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, id)
	}
	for _, roleID := range t.RoleIDs {
		members, err := s.roles.ResolveRoleMembers(ctx, t.ServerID, roleID)
		if err != nil {
			slog.Warn("failed to expand role", "task_name", t.Name, "role_id", roleID, "error", err)
			continue
		}
		for _, id := range members {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			merged = append(merged, id)
		}
	}
	t.UserIDs = merged
	return merged, nil
}

// ReconcileStartup redelivers the current state of every incomplete
// task to its assignees, without touching notified flags, so anyone
// who missed changes while the process was down catches up.
func (s *Scheduler) ReconcileStartup(ctx context.Context) error {
	tasks, err := s.repo.FindIncomplete(ctx)
	if err != nil {
		return err
	}
	p := pool.New().WithMaxGoroutines(4)
	for _, t := range tasks {
		t := t
		p.Go(func() {
			s.deliver(ctx, t)
		})
	}
	p.Wait()
	slog.Info("startup reconciliation complete", "tasks", len(tasks))
	return nil
}
