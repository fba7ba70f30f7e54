package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/pkg/cerr"
)

// RunAssign re-enters an existing task and merges additional users
// and roles into its assignment, additively. The same stop, timeout,
// and transcript rules as RunCreation apply.
func (e *Engine) RunAssign(ctx context.Context, actorID, serverID, channelID, taskName string) (*task.Task, error) {
	t, err := e.mgr.Load(ctx, serverID, taskName)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			if _, serr := e.transport.SendPrompt(ctx, channelID, fmt.Sprintf("**I can't find the task `%s`.**", taskName), false); serr != nil {
				slog.Warn("failed to send assign notice", "error", serr)
			}
		}
		return nil, err
	}

	s := e.newSession(actorID, serverID, channelID, t)
	defer s.cleanup()
	slog.Debug("assign wizard started", "session_id", s.id, "actor_id", actorID, "task_name", taskName)

	p, err := s.say(ctx, assignPromptFor(t), true)
	if err != nil {
		return nil, err
	}
	for {
		reply, err := s.nextReply(ctx)
		if err != nil {
			return nil, err
		}
		set, verr := ParseMentions(strings.Fields(reply), t.UserIDs, t.RoleIDs)
		if verr != nil {
			s.addError(ctx, p, assigneeErrorMessage(verr))
			continue
		}
		if err := e.mgr.Assign(ctx, t, set.Users, set.Roles); err != nil {
			s.sayFinal(ctx, "Something went wrong saving the assignment. Please try again.")
			return nil, err
		}
		s.addValid(ctx, p, reply)
		slog.Info("task assignment updated", "session_id", s.id, "task_name", taskName)
		return t, nil
	}
}

func assignPromptFor(t *task.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Please enter the users/roles to assign to task `%s`.\n***Currently assigned to:***\n", t.Name)
	for _, id := range t.UserIDs {
		fmt.Fprintf(&b, "<@%s>\n", id)
	}
	for _, id := range t.RoleIDs {
		fmt.Fprintf(&b, "<@&%s>\n", id)
	}
	return b.String()
}
