package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/events"
)

// RegisterEventLogging mirrors engine events into the structured log so
// operators can follow sync activity without the portal open.
func RegisterEventLogging(dispatcher events.Dispatcher, logger *zap.Logger) {
	logger = logger.Named("events")

	dispatcher.Subscribe(events.EventConversationSynced, func(_ context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.ConversationSyncedPayload)
		if ok && payload.Created {
			logger.Info("new conversation discovered",
				zap.String("conversation_id", event.ConversationID),
				zap.String("page_id", event.PageID),
				zap.String("customer", payload.CustomerName))
		}
		return nil
	})

	dispatcher.Subscribe(events.EventMessageReceived, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.MessagePayload); ok {
			logger.Info("message received",
				zap.String("conversation_id", event.ConversationID),
				zap.String("message_id", payload.MessageID),
				zap.String("sender", payload.SenderName))
		}
		return nil
	})

	dispatcher.Subscribe(events.EventMessageSent, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.MessagePayload); ok {
			logger.Info("message sent",
				zap.String("conversation_id", event.ConversationID),
				zap.String("message_id", payload.MessageID))
		}
		return nil
	})

	dispatcher.Subscribe(events.EventConversationStatusChanged, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.ConversationStatusChangedPayload); ok {
			logger.Info("conversation status changed",
				zap.String("conversation_id", event.ConversationID),
				zap.String("from", string(payload.OldStatus)),
				zap.String("to", string(payload.NewStatus)))
		}
		return nil
	})

	dispatcher.Subscribe(events.EventSyncFailed, func(_ context.Context, event events.Event) error {
		if payload, ok := event.Payload.(events.SyncFailedPayload); ok {
			logger.Warn("sync failure",
				zap.String("loop", payload.Loop),
				zap.String("page_id", event.PageID),
				zap.String("reason", payload.Reason))
		}
		return nil
	})
}
