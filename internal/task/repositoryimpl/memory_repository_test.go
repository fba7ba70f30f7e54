package repositoryimpl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

var repoEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestMemoryRepository_FindByName(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	_, err := repo.FindByName(ctx, "srv", "missing")
	require.Error(t, err)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))

	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "report", DateCreated: repoEpoch}))
	got, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Equal(t, "report", got.Name)

	// returned tasks are copies; mutating one must not leak back
	got.Description = "mutated"
	again, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Empty(t, again.Description)
}

func TestMemoryRepository_FindDueWithin(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	until := repoEpoch.Add(7 * 24 * time.Hour)

	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "due", Deadline: repoEpoch.Add(24 * time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "far", Deadline: until.Add(time.Hour)}))
	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "open-ended"}))
	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "done", Deadline: repoEpoch.Add(time.Hour), Complete: true}))

	got, err := repo.FindDueWithin(ctx, until)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "due", got[0].Name)
}

func TestMemoryRepository_UpsertStripsAssignments(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "report", UserIDs: []string{"u1"}}))
	got, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Empty(t, got.UserIDs, "assignments live in the index, not the document")
}

func TestMemoryRepository_AssignmentIndex(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, repo.AddUserAssignments(ctx, "srv", "report", []string{"u2", "u1"}))
	require.NoError(t, repo.AddUserAssignments(ctx, "srv", "report", []string{"u1"}))
	require.NoError(t, repo.AddUserAssignments(ctx, "other", "report", []string{"u9"}))

	users, err := repo.AssignedUsers(ctx, "srv", "report")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, users, "sorted, deduplicated, per server")
}

func TestMemoryRepository_SetNotified(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "report"}))

	at := repoEpoch.Add(time.Hour)
	require.NoError(t, repo.SetNotified(ctx, "srv", "report", task.Threshold7Day, at))

	got, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.True(t, got.Notified7Day)
	assert.False(t, got.Notified1Day)
	require.NotNil(t, got.LastNotified)
	assert.True(t, got.LastNotified.Equal(at))

	err = repo.SetNotified(ctx, "srv", "missing", task.Threshold1Day, at)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}
