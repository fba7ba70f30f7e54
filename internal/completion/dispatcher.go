package completion

import (
	"context"
	"log/slog"

	"github.com/Xamyrz/task-bot-discord/internal/eventbus"
	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

// Viewer refreshes the chat message a completion signal was applied
// to, so the toggled state is visible in place.
type Viewer interface {
	RefreshTaskView(ctx context.Context, channelID, messageID string, t *task.Task) error
}

// Dispatcher applies completion signals from the event bus to the
// task record. Applying the current state again is a harmless
// re-persist; a manual signal may reopen a task whose deadline has
// passed.
type Dispatcher struct {
	bus    *eventbus.Bus
	mgr    *task.Manager
	viewer Viewer
}

func NewDispatcher(bus *eventbus.Bus, mgr *task.Manager, viewer Viewer) *Dispatcher {
	return &Dispatcher{
		bus:    bus,
		mgr:    mgr,
		viewer: viewer,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	subID, ch := d.bus.Subscribe(256)
	defer d.bus.Unsubscribe(subID)

	slog.Info("completion dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("completion dispatcher stopped")
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			switch event.Type {
			case eventbus.TypeTaskCompleted:
				d.apply(ctx, event, true)
			case eventbus.TypeTaskReopened:
				d.apply(ctx, event, false)
			}
		}
	}
}

func (d *Dispatcher) apply(ctx context.Context, event *eventbus.Event, complete bool) {
	t, err := d.mgr.Load(ctx, event.ServerID, event.TaskName)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			slog.Debug("completion signal for unknown task", "server_id", event.ServerID, "task_name", event.TaskName)
			return
		}
		slog.Error("completion dispatcher: failed to load task", "task_name", event.TaskName, "error", err)
		return
	}
	if err := d.mgr.SetCompletion(ctx, t, complete); err != nil {
		slog.Error("completion dispatcher: failed to persist completion", "task_name", event.TaskName, "error", err)
		return
	}
	if event.ChannelID == "" || event.MessageID == "" {
		return
	}
	if err := d.viewer.RefreshTaskView(ctx, event.ChannelID, event.MessageID, t); err != nil {
		slog.Warn("completion dispatcher: failed to refresh task view", "task_name", event.TaskName, "error", err)
	}
}
