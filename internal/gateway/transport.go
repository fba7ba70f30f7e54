package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/Xamyrz/task-bot-discord/internal/wizard"
)

const (
	wizardTitle  = "Task Creation Wizard"
	wizardFooter = "Type `stop` to cancel the wizard."
	embedColor   = 0x72da8e
)

func wizardEmbed(text string, footer bool) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       wizardTitle,
		Description: text,
		Color:       embedColor,
	}
	if footer {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: wizardFooter}
	}
	return embed
}

func (g *Gateway) SendPrompt(ctx context.Context, channelID, text string, footer bool) (wizard.Handle, error) {
	msg, err := g.session.ChannelMessageSendEmbed(channelID, wizardEmbed(text, footer))
	if err != nil {
		return wizard.Handle{}, fmt.Errorf("failed to send wizard prompt: %w", err)
	}
	return wizard.Handle{ChannelID: channelID, MessageID: msg.ID}, nil
}

func (g *Gateway) EditMessage(ctx context.Context, h wizard.Handle, text string, footer bool) error {
	if _, err := g.session.ChannelMessageEditEmbed(h.ChannelID, h.MessageID, wizardEmbed(text, footer)); err != nil {
		return fmt.Errorf("failed to edit wizard prompt: %w", err)
	}
	return nil
}

// DeleteMessages bulk-deletes a session transcript, falling back to
// one-by-one deletion when the bulk endpoint refuses (messages older
// than two weeks).
func (g *Gateway) DeleteMessages(ctx context.Context, channelID string, handles []wizard.Handle) error {
	ids := make([]string, 0, len(handles))
	for _, h := range handles {
		ids = append(ids, h.MessageID)
	}
	if len(ids) == 1 {
		return g.session.ChannelMessageDelete(channelID, ids[0])
	}
	if err := g.session.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		slog.Debug("bulk delete failed, deleting individually", "error", err)
		for _, id := range ids {
			if derr := g.session.ChannelMessageDelete(channelID, id); derr != nil {
				return derr
			}
		}
	}
	return nil
}
