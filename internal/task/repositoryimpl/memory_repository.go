package repositoryimpl

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

// MemoryRepository is the in-process store used for local development
// and tests, mirroring the upsert semantics of the Mongo
// implementation.
type MemoryRepository struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task
	// assignments maps server/user to the set of task names assigned
	// to that user.
	assignments map[string]map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		tasks:       make(map[string]*task.Task),
		assignments: make(map[string]map[string]struct{}),
	}
}

func taskKey(serverID, name string) string {
	return serverID + "/" + name
}

func userKey(serverID, userID string) string {
	return serverID + "/" + userID
}

func cloneTask(t *task.Task) *task.Task {
	c := *t
	c.RoleIDs = append([]string(nil), t.RoleIDs...)
	c.UserIDs = append([]string(nil), t.UserIDs...)
	if t.LastNotified != nil {
		at := *t.LastNotified
		c.LastNotified = &at
	}
	return &c
}

func (r *MemoryRepository) FindByName(ctx context.Context, serverID, name string) (*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[taskKey(serverID, name)]
	if !ok {
		return nil, cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	return cloneTask(t), nil
}

func (r *MemoryRepository) NameExists(ctx context.Context, serverID, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tasks[taskKey(serverID, name)]
	return ok, nil
}

func (r *MemoryRepository) FindIncomplete(ctx context.Context) ([]*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*task.Task
	for _, t := range r.tasks {
		if t.Complete {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sortTasks(out)
	return out, nil
}

func (r *MemoryRepository) FindDueWithin(ctx context.Context, until time.Time) ([]*task.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*task.Task
	for _, t := range r.tasks {
		if t.Complete || !t.HasDeadline() || t.Deadline.After(until) {
			continue
		}
		out = append(out, cloneTask(t))
	}
	sortTasks(out)
	return out, nil
}

func (r *MemoryRepository) Upsert(ctx context.Context, t *task.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := cloneTask(t)
	stored.UserIDs = nil // user assignments live in the index only
	r.tasks[taskKey(t.ServerID, t.Name)] = stored
	return nil
}

func (r *MemoryRepository) SetCompletion(ctx context.Context, serverID, name string, complete bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskKey(serverID, name)]
	if !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	t.Complete = complete
	return nil
}

func (r *MemoryRepository) SetNotified(ctx context.Context, serverID, name string, threshold task.Threshold, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[taskKey(serverID, name)]
	if !ok {
		return cerr.NewError(cerr.NotFound, "task not found", nil)
	}
	switch threshold {
	case task.Threshold1Day:
		t.Notified1Day = true
	case task.Threshold7Day:
		t.Notified7Day = true
	}
	t.LastNotified = &at
	return nil
}

func (r *MemoryRepository) AssignedUsers(ctx context.Context, serverID, name string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var users []string
	for key, names := range r.assignments {
		if _, ok := names[name]; !ok {
			continue
		}
		srv, user, found := splitKey(key)
		if !found || srv != serverID {
			continue
		}
		users = append(users, user)
	}
	sort.Strings(users)
	return users, nil
}

func (r *MemoryRepository) AddUserAssignments(ctx context.Context, serverID, name string, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, userID := range userIDs {
		key := userKey(serverID, userID)
		if r.assignments[key] == nil {
			r.assignments[key] = make(map[string]struct{})
		}
		r.assignments[key][name] = struct{}{}
	}
	return nil
}

func sortTasks(tasks []*task.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].ServerID != tasks[j].ServerID {
			return tasks[i].ServerID < tasks[j].ServerID
		}
		return tasks[i].Name < tasks[j].Name
	})
}

func splitKey(key string) (serverID, rest string, ok bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == '/' {
			return key[:i], key[i+1:], true
		}
	}
	return "", "", false
}
