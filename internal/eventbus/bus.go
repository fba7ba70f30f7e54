package eventbus

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type Type int

const (
	TypeTaskCompleted Type = iota + 1
	TypeTaskReopened
)

// Event is a completion signal observed at the chat surface, carrying
// enough context to reload the task and refresh the message it was
// toggled on.
type Event struct {
	ID        string
	Type      Type
	ServerID  string
	TaskName  string
	UserID    string
	ChannelID string
	MessageID string
	CreatedAt time.Time
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]chan *Event
}

func New() *Bus {
	return &Bus{
		subscribers: make(map[string]chan *Event),
	}
}

func (b *Bus) Subscribe(bufSize int) (string, <-chan *Event) {
	id := ulid.Make().String()
	ch := make(chan *Event, bufSize)
	b.mu.Lock()
	b.subscribers[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
			// buffer full, drop event for this subscriber
		}
	}
}

func (b *Bus) PublishNew(eventType Type, serverID, taskName, userID, channelID, messageID string) {
	b.Publish(&Event{
		ID:        ulid.Make().String(),
		Type:      eventType,
		ServerID:  serverID,
		TaskName:  taskName,
		UserID:    userID,
		ChannelID: channelID,
		MessageID: messageID,
		CreatedAt: time.Now().UTC(),
	})
}
