package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishReachesAllSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	var calls []string
	dispatcher.Subscribe(EventMessageReceived, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.ConversationID)
		return nil
	})
	dispatcher.Subscribe(EventMessageReceived, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.ConversationID)
		return nil
	})

	err := dispatcher.Publish(context.Background(), Event{
		Type:           EventMessageReceived,
		ConversationID: "t_1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"first:t_1", "second:t_1"}, calls)
}

func TestPublishFailingHandlerDoesNotStopOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	ran := false
	dispatcher.Subscribe(EventSyncFailed, func(context.Context, Event) error {
		return errors.New("handler broke")
	})
	dispatcher.Subscribe(EventSyncFailed, func(context.Context, Event) error {
		ran = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventSyncFailed}))
	assert.True(t, ran)
}

func TestPublishIsTypeScoped(t *testing.T) {
	dispatcher := NewInMemoryDispatcher(nil)

	ran := false
	dispatcher.Subscribe(EventMessageSent, func(context.Context, Event) error {
		ran = true
		return nil
	})

	require.NoError(t, dispatcher.Publish(context.Background(), Event{Type: EventMessageReceived}))
	assert.False(t, ran)
}
