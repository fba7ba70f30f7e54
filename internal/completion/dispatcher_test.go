package completion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xamyrz/task-bot-discord/internal/eventbus"
	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/internal/task/repositoryimpl"
)

type fakeViewer struct {
	refreshed []string // "channelID/messageID"
}

func (f *fakeViewer) RefreshTaskView(ctx context.Context, channelID, messageID string, t *task.Task) error {
	f.refreshed = append(f.refreshed, channelID+"/"+messageID)
	return nil
}

func TestDispatcher_AppliesCompletionSignals(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	mgr := task.NewManager(repo)
	viewer := &fakeViewer{}
	d := NewDispatcher(eventbus.New(), mgr, viewer)

	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "report"}))

	event := &eventbus.Event{ServerID: "srv", TaskName: "report", UserID: "u1", ChannelID: "chan", MessageID: "msg"}
	d.apply(ctx, event, true)

	got, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.True(t, got.Complete)
	assert.Equal(t, []string{"chan/msg"}, viewer.refreshed)

	// the opposite signal reopens the task and refreshes again
	d.apply(ctx, event, false)
	got, err = repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.False(t, got.Complete)
	assert.Len(t, viewer.refreshed, 2)
}

func TestDispatcher_SkipsRefreshWithoutMessageContext(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	viewer := &fakeViewer{}
	d := NewDispatcher(eventbus.New(), task.NewManager(repo), viewer)

	require.NoError(t, repo.Upsert(ctx, &task.Task{ServerID: "srv", Name: "report"}))

	d.apply(ctx, &eventbus.Event{ServerID: "srv", TaskName: "report", UserID: "u1"}, true)

	got, err := repo.FindByName(ctx, "srv", "report")
	require.NoError(t, err)
	assert.True(t, got.Complete)
	assert.Empty(t, viewer.refreshed)
}

func TestDispatcher_IgnoresUnknownTasks(t *testing.T) {
	ctx := context.Background()
	repo := repositoryimpl.NewMemoryRepository()
	viewer := &fakeViewer{}
	d := NewDispatcher(eventbus.New(), task.NewManager(repo), viewer)

	d.apply(ctx, &eventbus.Event{ServerID: "srv", TaskName: "ghost", UserID: "u1", ChannelID: "chan", MessageID: "msg"}, true)
	assert.Empty(t, viewer.refreshed)
}

func TestDispatcher_StartStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := eventbus.New()
	d := NewDispatcher(bus, task.NewManager(repositoryimpl.NewMemoryRepository()), &fakeViewer{})

	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher did not stop on cancel")
	}
}
