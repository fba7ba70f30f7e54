package gateway

import (
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Xamyrz/task-bot-discord/internal/eventbus"
)

// onReactionAdd translates completion reactions on task views into
// bus events. The dispatcher applies them; this handler never touches
// the store.
func (g *Gateway) onReactionAdd(s *discordgo.Session, r *discordgo.MessageReactionAdd) {
	if r.UserID == s.State.User.ID {
		return
	}
	var eventType eventbus.Type
	switch r.Emoji.Name {
	case "✅":
		eventType = eventbus.TypeTaskCompleted
	case "❌":
		eventType = eventbus.TypeTaskReopened
	default:
		return
	}

	msg, err := s.ChannelMessage(r.ChannelID, r.MessageID)
	if err != nil {
		slog.Debug("failed to fetch reacted message", "error", err)
		return
	}
	label := taskLabel(msg)
	if label == "" {
		return
	}

	serverID := r.GuildID
	if serverID == "" {
		// Task views arrive as DMs, which carry no guild id. With one
		// guild the answer is unambiguous; more than one would need
		// the server-selection collaborator, which is out of scope.
		guilds := s.State.Guilds
		if len(guilds) != 1 {
			slog.Debug("ambiguous guild for DM reaction", "guilds", len(guilds))
			return
		}
		serverID = guilds[0].ID
	} else {
		// In guild channels the reaction is removed again so the
		// control stays toggleable.
		if err := s.MessageReactionRemove(r.ChannelID, r.MessageID, r.Emoji.Name, r.UserID); err != nil {
			slog.Debug("failed to remove reaction", "error", err)
		}
	}

	g.bus.PublishNew(eventType, serverID, label, r.UserID, r.ChannelID, r.MessageID)
}

// taskLabel recovers the task name from a task view embed.
func taskLabel(msg *discordgo.Message) string {
	if msg == nil || len(msg.Embeds) == 0 {
		return ""
	}
	author := msg.Embeds[0].Author
	if author == nil || !strings.HasPrefix(author.Name, taskLabelPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(author.Name, taskLabelPrefix))
}
