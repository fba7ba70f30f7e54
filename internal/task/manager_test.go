package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/internal/task/repositoryimpl"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestManager_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	mgr := task.NewManager(repo)

	require.NoError(t, mgr.Save(ctx, &task.Task{
		ServerID:    "srv",
		Name:        "report",
		Description: "Write the quarterly report",
		AuthorID:    "author",
		UserIDs:     []string{"u1", "u2"},
		RoleIDs:     []string{"r1"},
		DateCreated: baseTime,
	}))

	got, err := mgr.Load(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Equal(t, "Write the quarterly report", got.Description)
	assert.Equal(t, []string{"r1"}, got.RoleIDs)
	// user assignments come back through the index, not the document
	assert.Equal(t, []string{"u1", "u2"}, got.UserIDs)
}

func TestManager_DerivedCompletion(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	deadline := baseTime.Add(24 * time.Hour)

	seed := func() *task.Task {
		tk := &task.Task{
			ServerID:    "srv",
			Name:        "report",
			DateCreated: baseTime,
			Deadline:    deadline,
		}
		require.NoError(t, repo.Upsert(ctx, tk))
		return tk
	}

	t.Run("open before the deadline", func(t *testing.T) {
		tk := seed()
		mgr := task.NewManager(repo).WithClock(fixedClock(deadline.Add(-time.Minute)))
		done, err := mgr.IsComplete(ctx, tk, true)
		require.NoError(t, err)
		assert.False(t, done)
	})

	t.Run("complete after the deadline, persisted", func(t *testing.T) {
		tk := seed()
		mgr := task.NewManager(repo).WithClock(fixedClock(deadline.Add(time.Minute)))
		done, err := mgr.IsComplete(ctx, tk, true)
		require.NoError(t, err)
		assert.True(t, done)

		stored, err := repo.FindByName(ctx, "srv", "report")
		require.NoError(t, err)
		assert.True(t, stored.Complete)
	})

	t.Run("read-only observation leaves the store alone", func(t *testing.T) {
		tk := seed()
		mgr := task.NewManager(repo).WithClock(fixedClock(deadline.Add(time.Minute)))
		done, err := mgr.IsComplete(ctx, tk, false)
		require.NoError(t, err)
		assert.True(t, done)

		stored, err := repo.FindByName(ctx, "srv", "report")
		require.NoError(t, err)
		assert.False(t, stored.Complete)
	})
}

func TestManager_NoDeadlineNeverDerives(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	tk := &task.Task{ServerID: "srv", Name: "open-ended", DateCreated: baseTime}
	require.NoError(t, repo.Upsert(ctx, tk))

	mgr := task.NewManager(repo).WithClock(fixedClock(baseTime.Add(1000 * time.Hour)))
	done, err := mgr.IsComplete(ctx, tk, true)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestManager_SetCompletion(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	mgr := task.NewManager(repo)
	tk := &task.Task{ServerID: "srv", Name: "report", DateCreated: baseTime}
	require.NoError(t, repo.Upsert(ctx, tk))

	require.NoError(t, mgr.SetCompletion(ctx, tk, true))
	// re-applying the current state is a no-op, not an error
	require.NoError(t, mgr.SetCompletion(ctx, tk, true))

	stored, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.True(t, stored.Complete)

	// an explicit signal may reopen a completed task
	require.NoError(t, mgr.SetCompletion(ctx, tk, false))
	stored, err = repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.False(t, stored.Complete)
}

func TestManager_AssignIsAdditive(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	mgr := task.NewManager(repo)

	tk := &task.Task{ServerID: "srv", Name: "report", DateCreated: baseTime, UserIDs: []string{"u1"}}
	require.NoError(t, mgr.Save(ctx, tk))

	require.NoError(t, mgr.Assign(ctx, tk, []string{"u1", "u2"}, []string{"r1"}))
	require.NoError(t, mgr.Assign(ctx, tk, []string{"u2"}, []string{"r1"}))

	got, err := mgr.Load(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, got.UserIDs)
	assert.Equal(t, []string{"r1"}, got.RoleIDs)
}

func TestTask_AddUsersReportsOnlyNew(t *testing.T) {
	tk := &task.Task{UserIDs: []string{"u1"}}
	added := tk.AddUsers([]string{"u1", "u2", "u2"})
	assert.Equal(t, []string{"u2"}, added)
	assert.Equal(t, []string{"u1", "u2"}, tk.UserIDs)
}
