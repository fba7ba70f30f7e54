package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Xamyrz/task-bot-discord/internal/wizard"
)

// replyRegistry routes incoming messages to the wizard session
// waiting on their author. One pending reply per actor at a time.
type replyRegistry struct {
	mu      sync.Mutex
	waiters map[string]chan wizard.Reply
}

func newReplyRegistry() *replyRegistry {
	return &replyRegistry{
		waiters: make(map[string]chan wizard.Reply),
	}
}

// AwaitNextReply blocks until the actor's next message, the timeout,
// or context cancellation.
func (g *Gateway) AwaitNextReply(ctx context.Context, actorID string, timeout time.Duration) (wizard.Reply, error) {
	r := g.replies
	ch := make(chan wizard.Reply, 1)
	r.mu.Lock()
	r.waiters[actorID] = ch
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		if r.waiters[actorID] == ch {
			delete(r.waiters, actorID)
		}
		r.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case reply := <-ch:
		return reply, nil
	case <-timer.C:
		return wizard.Reply{}, wizard.ErrReplyTimeout
	case <-ctx.Done():
		return wizard.Reply{}, ctx.Err()
	}
}

// dispatch hands a message to the waiter for its author, reporting
// whether one consumed it.
func (r *replyRegistry) dispatch(m *discordgo.MessageCreate) bool {
	r.mu.Lock()
	ch, ok := r.waiters[m.Author.ID]
	if ok {
		delete(r.waiters, m.Author.ID)
	}
	r.mu.Unlock()
	if !ok {
		return false
	}
	ch <- wizard.Reply{
		Content: m.Content,
		Handle:  wizard.Handle{ChannelID: m.ChannelID, MessageID: m.ID},
	}
	return true
}
