package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/Xamyrz/task-bot-discord/internal/eventbus"
	"github.com/Xamyrz/task-bot-discord/internal/task"
	"github.com/Xamyrz/task-bot-discord/internal/wizard"
	"github.com/Xamyrz/task-bot-discord/pkg/clog"
)

// Gateway adapts the Discord session to the collaborator interfaces
// the core consumes: wizard transport and reply intake, task view
// delivery, role expansion, and the reaction-driven completion
// signals.
type Gateway struct {
	session *discordgo.Session
	bus     *eventbus.Bus
	mgr     *task.Manager
	engine  *wizard.Engine
	prefix  string
	replies *replyRegistry
}

func New(session *discordgo.Session, bus *eventbus.Bus, mgr *task.Manager, prefix string) *Gateway {
	return &Gateway{
		session: session,
		bus:     bus,
		mgr:     mgr,
		prefix:  prefix,
		replies: newReplyRegistry(),
	}
}

// SetEngine attaches the dialogue engine. The engine itself talks
// back through this gateway, so it is constructed after it.
func (g *Gateway) SetEngine(engine *wizard.Engine) {
	g.engine = engine
}

// Start registers the event handlers and the gateway intents they
// need.
func (g *Gateway) Start() {
	g.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsDirectMessageReactions |
		discordgo.IntentMessageContent
	g.session.AddHandler(g.onMessageCreate)
	g.session.AddHandler(g.onReactionAdd)
}

func (g *Gateway) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot || m.Author.ID == s.State.User.ID {
		return
	}
	// A session waiting on this actor gets the message first; bot
	// commands still interrupt it from inside the wizard.
	if g.replies.dispatch(m) {
		return
	}
	if !strings.HasPrefix(m.Content, g.prefix) {
		return
	}
	if m.GuildID == "" {
		// commands are guild-only, like the original bot
		return
	}
	go g.executeCommand(context.Background(), m.GuildID, m.ChannelID, m.Author.ID, m.Content, m.ID)
}

// executeCommand dispatches one bot command. It runs on its own
// goroutine because wizard sessions block on replies.
func (g *Gateway) executeCommand(ctx context.Context, serverID, channelID, authorID, content, messageID string) {
	ctx = clog.ContextWithSlog(ctx)
	clog.AddAttributes(ctx, map[string]any{
		"server_id": serverID,
		"actor_id":  authorID,
	})
	rest := strings.TrimSpace(strings.TrimPrefix(content, g.prefix))
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return
	}
	defer g.deleteCommandMessage(channelID, messageID)

	switch fields[0] {
	case "new":
		g.runCreate(ctx, serverID, channelID, authorID, fields[1:])
	case "assign":
		if len(fields) < 2 {
			return
		}
		g.runAssign(ctx, serverID, channelID, authorID, fields[1])
	default:
		slog.Debug("unknown command", "command", fields[0])
		return
	}
	slog.DebugContext(ctx, "command finished", "command", fields[0])
}

func (g *Gateway) runCreate(ctx context.Context, serverID, channelID, authorID string, args []string) {
	t, err := g.engine.RunCreation(ctx, authorID, serverID, channelID, wizard.InitialArgs{
		Mentions: args,
	})
	if err != nil {
		g.handleWizardExit(ctx, serverID, channelID, authorID, err)
		return
	}
	g.deliverToAssignees(ctx, t)
}

func (g *Gateway) runAssign(ctx context.Context, serverID, channelID, authorID, taskName string) {
	if _, err := g.engine.RunAssign(ctx, authorID, serverID, channelID, taskName); err != nil {
		g.handleWizardExit(ctx, serverID, channelID, authorID, err)
	}
}

// handleWizardExit runs the command that interrupted a wizard, if
// any; cancellations and timeouts need no further action because the
// session already cleaned itself up.
func (g *Gateway) handleWizardExit(ctx context.Context, serverID, channelID, authorID string, err error) {
	var interrupt *wizard.CommandInterrupt
	if errors.As(err, &interrupt) {
		g.executeCommand(ctx, serverID, channelID, authorID, interrupt.Command, interrupt.Handle.MessageID)
		return
	}
	if errors.Is(err, wizard.ErrStopWizard) || errors.Is(err, wizard.ErrTimedOut) {
		slog.Debug("wizard ended without a task", "actor_id", authorID, "reason", err)
		return
	}
	clog.AddError(ctx, err)
	slog.ErrorContext(ctx, "wizard failed", "actor_id", authorID)
}

// deliverToAssignees posts the freshly created task to every resolved
// assignee, expanding roles live.
func (g *Gateway) deliverToAssignees(ctx context.Context, t *task.Task) {
	seen := make(map[string]struct{}, len(t.UserIDs))
	users := append([]string(nil), t.UserIDs...)
	for _, id := range users {
		seen[id] = struct{}{}
	}
	for _, roleID := range t.RoleIDs {
		members, err := g.ResolveRoleMembers(ctx, t.ServerID, roleID)
		if err != nil {
			slog.Warn("failed to expand role", "role_id", roleID, "error", err)
			continue
		}
		for _, id := range members {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			users = append(users, id)
		}
	}
	for _, userID := range users {
		if err := g.DeliverTaskView(ctx, userID, t); err != nil {
			slog.Error("failed to deliver new task", "task_name", t.Name, "user_id", userID, "error", err)
		}
	}
}

func (g *Gateway) deleteCommandMessage(channelID, messageID string) {
	if messageID == "" {
		return
	}
	if err := g.session.ChannelMessageDelete(channelID, messageID); err != nil {
		slog.Debug("failed to delete command message", "error", err)
	}
}
