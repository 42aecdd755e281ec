package webhook

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/domain"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
)

// Inbox is the slice of the sync engine the webhook needs.
type Inbox interface {
	ConversationByParticipants(pageID, customerID string) (domain.Conversation, bool)
	RecordIncoming(ctx context.Context, msg domain.Message) (syncengine.MutationResult, error)
}

// Handler receives platform webhook callbacks: the one-time subscription
// verification handshake and ongoing message delivery events.
type Handler struct {
	verifyToken string
	inbox       Inbox
	logger      *zap.Logger
}

// NewHandler constructs the webhook handler.
func NewHandler(verifyToken string, inbox Inbox, logger *zap.Logger) *Handler {
	return &Handler{verifyToken: verifyToken, inbox: inbox, logger: logger}
}

// Verify answers the platform's subscription handshake. The challenge is
// echoed back only when the mode and shared token both match.
func (h *Handler) Verify(c *fiber.Ctx) error {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == h.verifyToken {
		h.logger.Info("webhook subscription verified")
		return c.Status(http.StatusOK).SendString(challenge)
	}
	return c.SendStatus(http.StatusForbidden)
}

type deliveryBody struct {
	Object string          `json:"object"`
	Entry  []deliveryEntry `json:"entry"`
}

type deliveryEntry struct {
	ID        string           `json:"id"`
	Time      int64            `json:"time"`
	Messaging []messagingEvent `json:"messaging"`
}

type messagingEvent struct {
	Sender    participantRef `json:"sender"`
	Recipient participantRef `json:"recipient"`
	Timestamp int64          `json:"timestamp"`
	Message   *eventMessage  `json:"message"`
}

type participantRef struct {
	ID string `json:"id"`
}

type eventMessage struct {
	MID  string `json:"mid"`
	Text string `json:"text"`
}

// Receive folds delivered message events into local state. The platform
// expects a 200 acknowledgement regardless of per-event outcomes, so event
// failures are logged and swallowed.
func (h *Handler) Receive(c *fiber.Ctx) error {
	var body deliveryBody
	if err := c.BodyParser(&body); err != nil {
		return c.SendStatus(http.StatusNotFound)
	}
	if body.Object != "page" {
		return c.SendStatus(http.StatusNotFound)
	}

	for _, entry := range body.Entry {
		for _, event := range entry.Messaging {
			if event.Message == nil || event.Message.Text == "" {
				continue
			}
			h.fold(c, entry.ID, event)
		}
	}
	return c.Status(http.StatusOK).SendString("EVENT_RECEIVED")
}

func (h *Handler) fold(c *fiber.Ctx, pageID string, event messagingEvent) {
	// The customer is the sender and the page the recipient. Echoes of our
	// own sends arrive with the roles flipped and are dropped here; the
	// thread poller reconciles those.
	if event.Sender.ID == pageID || event.Recipient.ID == "" {
		return
	}
	conv, ok := h.inbox.ConversationByParticipants(event.Recipient.ID, event.Sender.ID)
	if !ok {
		// Unknown thread: the next list poll discovers the conversation and
		// its history together.
		h.logger.Debug("webhook event for unknown conversation",
			zap.String("page_id", event.Recipient.ID),
			zap.String("sender_id", event.Sender.ID))
		return
	}

	msg := domain.Message{
		ID:             event.Message.MID,
		ConversationID: conv.ID,
		SenderID:       event.Sender.ID,
		SenderName:     conv.CustomerName,
		Text:           event.Message.Text,
		Timestamp:      time.UnixMilli(event.Timestamp).UTC().Format(time.RFC3339),
		IsIncoming:     true,
	}
	if _, err := h.inbox.RecordIncoming(c.UserContext(), msg); err != nil {
		h.logger.Warn("webhook message fold failed",
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}
