package task

import (
	"context"
	"time"
)

// Manager owns the task persistence round-trip and the completion
// state machine.
type Manager struct {
	repo  Repository
	clock func() time.Time
}

func NewManager(repo Repository) *Manager {
	return &Manager{
		repo:  repo,
		clock: time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.clock = clock
	return m
}

// Load fetches a task together with its assigned users from the
// secondary index.
func (m *Manager) Load(ctx context.Context, serverID, name string) (*Task, error) {
	t, err := m.repo.FindByName(ctx, serverID, name)
	if err != nil {
		return nil, err
	}
	users, err := m.repo.AssignedUsers(ctx, serverID, name)
	if err != nil {
		return nil, err
	}
	t.UserIDs = users
	return t, nil
}

// Save persists the task document and folds its user assignments into
// the additive index.
func (m *Manager) Save(ctx context.Context, t *Task) error {
	if err := m.repo.Upsert(ctx, t); err != nil {
		return err
	}
	if len(t.UserIDs) == 0 {
		return nil
	}
	return m.repo.AddUserAssignments(ctx, t.ServerID, t.Name, t.UserIDs)
}

// IsComplete reports the derived completion state: a task whose
// deadline has passed reads as complete even before anyone marks it.
// With persist set, the first such observation is written back using a
// completion-scoped patch. The derived transition never runs in
// reverse; only an explicit SetCompletion reopens a task.
func (m *Manager) IsComplete(ctx context.Context, t *Task, persist bool) (bool, error) {
	if t.Complete {
		return true, nil
	}
	if !t.HasDeadline() {
		return false, nil
	}
	if m.clock().UTC().After(t.Deadline) {
		t.Complete = true
		if persist {
			if err := m.repo.SetCompletion(ctx, t.ServerID, t.Name, true); err != nil {
				return true, err
			}
		}
	}
	return t.Complete, nil
}

// SetCompletion applies an external completion signal. Re-applying the
// current state is a no-op re-persist, not an error, and a manual
// signal may reopen a task whose deadline has already passed.
func (m *Manager) SetCompletion(ctx context.Context, t *Task, complete bool) error {
	t.Complete = complete
	return m.repo.SetCompletion(ctx, t.ServerID, t.Name, complete)
}

// Assign merges users and roles into the task additively and persists
// both the document and the index.
func (m *Manager) Assign(ctx context.Context, t *Task, userIDs, roleIDs []string) error {
	t.AddUsers(userIDs)
	t.AddRoles(roleIDs)
	return m.Save(ctx, t)
}
