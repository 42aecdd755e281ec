package events

import (
	"time"

	"github.com/messengerflow/inbox-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventConversationSynced        EventType = "conversation_synced"
	EventConversationStatusChanged EventType = "conversation_status_changed"
	EventMessageReceived           EventType = "message_received"
	EventMessageSent               EventType = "message_sent"
	EventSyncFailed                EventType = "sync_failed"
)

// Event represents a domain event emitted by the synchronization engine.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	PageID         string      `json:"page_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// ConversationSyncedPayload payload.
type ConversationSyncedPayload struct {
	CustomerName  string `json:"customer_name"`
	LastTimestamp string `json:"last_timestamp"`
	Created       bool   `json:"created"`
}

// ConversationStatusChangedPayload payload.
type ConversationStatusChangedPayload struct {
	OldStatus domain.ConversationStatus `json:"old_status"`
	NewStatus domain.ConversationStatus `json:"new_status"`
}

// MessagePayload payload for message_received and message_sent.
type MessagePayload struct {
	MessageID   string `json:"message_id"`
	SenderName  string `json:"sender_name"`
	BodyPreview string `json:"body_preview"`
	Incoming    bool   `json:"incoming"`
}

// SyncFailedPayload payload.
type SyncFailedPayload struct {
	Loop   string `json:"loop"`
	Reason string `json:"reason"`
}
