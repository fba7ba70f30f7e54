package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(8)
	defer bus.Unsubscribe(id)

	bus.PublishNew(TypeTaskCompleted, "srv", "report", "u1", "chan", "msg")

	select {
	case event := <-ch:
		assert.Equal(t, TypeTaskCompleted, event.Type)
		assert.Equal(t, "srv", event.ServerID)
		assert.Equal(t, "report", event.TaskName)
		assert.Equal(t, "u1", event.UserID)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.CreatedAt.IsZero())
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBus_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	defer bus.Unsubscribe(id)

	done := make(chan struct{})
	go func() {
		bus.PublishNew(TypeTaskCompleted, "srv", "a", "u1", "", "")
		bus.PublishNew(TypeTaskCompleted, "srv", "b", "u1", "", "")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	event := <-ch
	assert.Equal(t, "a", event.TaskName)
	assert.Empty(t, ch)
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := New()
	id, ch := bus.Subscribe(1)
	bus.Unsubscribe(id)

	_, open := <-ch
	require.False(t, open)

	// publishing after unsubscribe is a no-op
	bus.PublishNew(TypeTaskReopened, "srv", "report", "u1", "", "")
}
