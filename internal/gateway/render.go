package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Xamyrz/task-bot-discord/internal/task"
)

// presetReactions are the completion controls attached to open task
// views.
var presetReactions = []string{"✅", "❌", "⏩"}

const taskLabelPrefix = ">> "

func taskEmbed(t *task.Task) *discordgo.MessageEmbed {
	complete := "❌"
	if t.Complete {
		complete = "✅"
	}
	return &discordgo.MessageEmbed{
		Color: embedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name: fmt.Sprintf("%s%s ", taskLabelPrefix, t.Name),
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "**Task description**", Value: t.Description, Inline: true},
			{Name: "**Complete**", Value: complete, Inline: true},
			{Name: "**Deadline**", Value: t.DeadlineString(), Inline: true},
		},
	}
}

// DeliverTaskView DMs the task's current state to a user, with
// completion reactions while the task is still open. Reading the task
// here also applies the derived past-deadline completion, persisting
// it on first observation.
func (g *Gateway) DeliverTaskView(ctx context.Context, userID string, t *task.Task) error {
	if _, err := g.mgr.IsComplete(ctx, t, true); err != nil {
		slog.Warn("failed to persist derived completion", "task_name", t.Name, "error", err)
	}
	channel, err := g.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("failed to open DM channel for %s: %w", userID, err)
	}
	msg, err := g.session.ChannelMessageSendEmbed(channel.ID, taskEmbed(t))
	if err != nil {
		return fmt.Errorf("failed to send task view: %w", err)
	}
	if t.Complete {
		return nil
	}
	for _, reaction := range presetReactions {
		if err := g.session.MessageReactionAdd(channel.ID, msg.ID, reaction); err != nil {
			slog.Debug("failed to add preset reaction", "reaction", reaction, "error", err)
		}
	}
	return nil
}

// RefreshTaskView re-renders an already delivered task view in place.
func (g *Gateway) RefreshTaskView(ctx context.Context, channelID, messageID string, t *task.Task) error {
	if _, err := g.session.ChannelMessageEditEmbed(channelID, messageID, taskEmbed(t)); err != nil {
		return fmt.Errorf("failed to refresh task view: %w", err)
	}
	return nil
}
