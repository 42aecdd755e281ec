package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/messengerflow/inbox-service/internal/api/dto"
	"github.com/messengerflow/inbox-service/internal/auth"
	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/platform"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// InboxHandler serves the conversation list and thread endpoints.
type InboxHandler struct {
	engine *syncengine.Engine
}

// NewInboxHandler constructs handler.
func NewInboxHandler(engine *syncengine.Engine) *InboxHandler {
	return &InboxHandler{engine: engine}
}

// ListConversations GET /conversations. Non-admin agents see only the
// conversations of their assigned pages.
func (h *InboxHandler) ListConversations(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("agent required")
	}

	all := h.engine.Conversations()
	if statusFilter := c.Query("status"); statusFilter != "" {
		filtered := all[:0]
		for _, conv := range all {
			if string(conv.Status) == statusFilter {
				filtered = append(filtered, conv)
			}
		}
		all = filtered
	}

	if principal.IsAdmin() {
		return c.JSON(fiber.Map{"data": all})
	}
	visible := make([]domain.Conversation, 0, len(all))
	for _, conv := range all {
		if principal.AssignedTo(conv.PageID) {
			visible = append(visible, conv)
		}
	}
	return c.JSON(fiber.Map{"data": visible})
}

// GetConversation GET /conversations/:id returns the conversation with its
// full thread.
func (h *InboxHandler) GetConversation(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"conversation": conv,
		"messages":     h.engine.MessagesFor(conv.ID),
	}})
}

// UpdateConversation PATCH /conversations/:id.
func (h *InboxHandler) UpdateConversation(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	var req dto.UpdateConversationRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	update := syncengine.ConversationUpdate{
		AssignedAgentID: req.AssignedAgentID,
		UnreadCount:     req.UnreadCount,
	}
	if req.Status != nil {
		status := domain.ConversationStatus(*req.Status)
		switch status {
		case domain.ConversationStatusOpen, domain.ConversationStatusPending, domain.ConversationStatusResolved:
		default:
			return apperrors.NewValidationError("unknown status", map[string]any{"status": *req.Status})
		}
		update.Status = &status
	}

	result, err := h.engine.UpdateConversation(c.UserContext(), conv.ID, update)
	if err != nil {
		return err
	}
	updated, _ := h.engine.Conversation(conv.ID)
	return c.JSON(fiber.Map{
		"data": updated,
		"meta": dto.NewMutationMeta(result),
	})
}

// DeleteConversation DELETE /conversations/:id.
func (h *InboxHandler) DeleteConversation(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	if err := h.engine.DeleteConversation(c.UserContext(), conv.ID); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMessages GET /conversations/:id/messages.
func (h *InboxHandler) ListMessages(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.engine.MessagesFor(conv.ID)})
}

// SendMessage POST /conversations/:id/messages delivers an agent reply. Past
// the platform's 24h window the send carries the human-agent tag.
func (h *InboxHandler) SendMessage(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("text required", nil)
	}

	msg, result, err := h.engine.SendMessage(c.UserContext(), conv.ID, req.Text, platform.TagHumanAgent)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": msg,
		"meta": dto.NewMutationMeta(result),
	})
}

// OpenThread POST /conversations/:id/thread marks the thread as on-screen,
// activating the fast per-thread poller.
func (h *InboxHandler) OpenThread(c *fiber.Ctx) error {
	conv, err := h.visibleConversation(c)
	if err != nil {
		return err
	}
	h.engine.OpenThread(conv.ID)
	zero := 0
	if _, err := h.engine.UpdateConversation(c.UserContext(), conv.ID, syncengine.ConversationUpdate{UnreadCount: &zero}); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"openThreadId": conv.ID}})
}

// CloseThread DELETE /conversations/thread deactivates the thread poller.
func (h *InboxHandler) CloseThread(c *fiber.Ctx) error {
	h.engine.CloseThread()
	return c.SendStatus(http.StatusNoContent)
}

func (h *InboxHandler) visibleConversation(c *fiber.Ctx) (domain.Conversation, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Conversation{}, apperrors.NewUnauthorized("agent required")
	}
	id := c.Params("id")
	conv, found := h.engine.Conversation(id)
	if !found {
		return domain.Conversation{}, apperrors.NewNotFound("conversation", map[string]any{"id": id})
	}
	if !principal.IsAdmin() && !principal.AssignedTo(conv.PageID) {
		return domain.Conversation{}, apperrors.NewForbidden("conversation belongs to an unassigned page")
	}
	return conv, nil
}
