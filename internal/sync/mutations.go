package sync

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/events"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// MutationResult reports the two phases of an optimistic mutation. A local
// apply with a failed remote persist is not rolled back: callers treat local
// state as provisional until the next successful poll reconciles it.
type MutationResult struct {
	AppliedLocally  bool  `json:"appliedLocally"`
	ConfirmedRemote bool  `json:"confirmedRemote"`
	RemoteErr       error `json:"-"`
}

func (e *Engine) persistResult(err error) MutationResult {
	if err != nil {
		return MutationResult{AppliedLocally: true, ConfirmedRemote: false, RemoteErr: err}
	}
	return MutationResult{AppliedLocally: true, ConfirmedRemote: true}
}

// ConversationUpdate carries the mutable fields of a conversation.
type ConversationUpdate struct {
	Status          *domain.ConversationStatus `json:"status"`
	AssignedAgentID *string                    `json:"assignedAgentId"`
	UnreadCount     *int                       `json:"unreadCount"`
}

// UpdateConversation applies an agent edit locally, then persists it.
func (e *Engine) UpdateConversation(ctx context.Context, id string, update ConversationUpdate) (MutationResult, error) {
	e.mu.Lock()
	conv, ok := e.conversations[id]
	if !ok {
		e.mu.Unlock()
		return MutationResult{}, apperrors.NewNotFound("conversation", map[string]any{"id": id})
	}
	oldStatus := conv.Status
	if update.Status != nil {
		conv.Status = *update.Status
	}
	if update.AssignedAgentID != nil {
		conv.AssignedAgentID = *update.AssignedAgentID
	}
	if update.UnreadCount != nil {
		conv.UnreadCount = *update.UnreadCount
	}
	e.conversations[id] = conv
	e.mu.Unlock()

	if update.Status != nil && *update.Status != oldStatus {
		e.publish(ctx, events.Event{
			Type:           events.EventConversationStatusChanged,
			ConversationID: id,
			PageID:         conv.PageID,
			Payload: events.ConversationStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: conv.Status,
			},
		})
	}

	return e.persistResult(e.store.UpsertConversation(ctx, conv)), nil
}

// DeleteConversation removes a conversation remotely and locally, purging
// its thread as a side effect.
func (e *Engine) DeleteConversation(ctx context.Context, id string) error {
	if err := e.store.DeleteConversation(ctx, id); err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.conversations, id)
	orphaned := make([]string, 0)
	for msgID, msg := range e.messages {
		if msg.ConversationID == id {
			orphaned = append(orphaned, msgID)
			delete(e.messages, msgID)
		}
	}
	e.mu.Unlock()

	for _, msgID := range orphaned {
		if err := e.store.DeleteMessage(ctx, msgID); err != nil {
			e.addLog(domain.LogTypeError, "Message purge failed", err.Error())
		}
	}
	return nil
}

// AddMessage inserts a message locally then persists it. An id already
// present locally is a silent no-op, preserving the append-only invariant.
func (e *Engine) AddMessage(ctx context.Context, msg domain.Message) (MutationResult, error) {
	if msg.ID == "" || msg.ConversationID == "" {
		return MutationResult{}, apperrors.NewValidationError("message id and conversationId required", nil)
	}

	e.mu.Lock()
	if _, exists := e.messages[msg.ID]; exists {
		e.mu.Unlock()
		return MutationResult{AppliedLocally: false, ConfirmedRemote: false}, nil
	}
	e.messages[msg.ID] = msg
	e.mu.Unlock()

	return e.persistResult(e.store.UpsertMessage(ctx, msg)), nil
}

// BulkAddMessages inserts a batch, dropping duplicates individually.
func (e *Engine) BulkAddMessages(ctx context.Context, msgs []domain.Message) (int, error) {
	added := 0
	for _, msg := range msgs {
		result, err := e.AddMessage(ctx, msg)
		if err != nil {
			return added, err
		}
		if result.AppliedLocally {
			added++
		}
	}
	return added, nil
}

// SendMessage delivers an agent reply through the platform, then records the
// outbound message. Nothing is applied locally when the platform rejects the
// send; the error goes straight back to the caller.
func (e *Engine) SendMessage(ctx context.Context, conversationID, text string, tagWhenExpired string) (domain.Message, MutationResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Message{}, MutationResult{}, apperrors.NewValidationError("message text required", nil)
	}

	e.mu.Lock()
	conv, ok := e.conversations[conversationID]
	var page domain.Page
	if ok {
		page, ok = e.pages[conv.PageID]
	}
	e.mu.Unlock()
	if !ok {
		return domain.Message{}, MutationResult{}, apperrors.NewNotFound("conversation", map[string]any{"id": conversationID})
	}
	if !page.HasToken() {
		return domain.Message{}, MutationResult{}, apperrors.NewValidationError("page has no access token", nil)
	}

	tag := ""
	if conv.MessagingWindowExpired(time.Now()) {
		tag = tagWhenExpired
	}

	platformID, err := e.platform.SendMessage(ctx, conv.CustomerID, text, page.AccessToken, tag)
	if err != nil {
		return domain.Message{}, MutationResult{}, err
	}
	if platformID == "" {
		platformID = "msg-" + uuid.NewString()
	}

	msg := domain.Message{
		ID:             platformID,
		ConversationID: conversationID,
		SenderID:       page.ID,
		SenderName:     page.Name,
		Text:           text,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		IsIncoming:     false,
		IsRead:         true,
	}
	result, err := e.AddMessage(ctx, msg)
	if err != nil {
		return domain.Message{}, result, err
	}

	e.publish(ctx, events.Event{
		Type:           events.EventMessageSent,
		ConversationID: conversationID,
		PageID:         page.ID,
		Payload: events.MessagePayload{
			MessageID:   msg.ID,
			SenderName:  msg.SenderName,
			BodyPreview: preview(msg.Text),
		},
	})
	return msg, result, nil
}

// RecordIncoming folds an externally delivered message (webhook) into local
// state through the same duplicate-suppressing path as the thread poller,
// touching the parent conversation's snippet.
func (e *Engine) RecordIncoming(ctx context.Context, msg domain.Message) (MutationResult, error) {
	result, err := e.AddMessage(ctx, msg)
	if err != nil || !result.AppliedLocally {
		return result, err
	}

	e.mu.Lock()
	conv, ok := e.conversations[msg.ConversationID]
	if ok {
		conv.LastMessage = msg.Text
		conv.LastTimestamp = msg.Timestamp
		conv.UnreadCount++
		e.conversations[msg.ConversationID] = conv
	}
	e.mu.Unlock()
	if ok {
		if err := e.store.UpsertConversation(ctx, conv); err != nil {
			e.addLog(domain.LogTypeError, "Conversation touch failed", err.Error())
		}
	}

	e.publish(ctx, events.Event{
		Type:           events.EventMessageReceived,
		ConversationID: msg.ConversationID,
		Payload: events.MessagePayload{
			MessageID:   msg.ID,
			SenderName:  msg.SenderName,
			BodyPreview: preview(msg.Text),
			Incoming:    true,
		},
	})
	return result, nil
}

// AddAgent registers a new agent.
func (e *Engine) AddAgent(ctx context.Context, agent domain.Agent) (MutationResult, error) {
	if agent.ID == "" || agent.Email == "" {
		return MutationResult{}, apperrors.NewValidationError("agent id and email required", nil)
	}
	e.mu.Lock()
	e.agents[agent.ID] = agent
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertAgent(ctx, agent)), nil
}

// UpdateAgent merges profile edits into an existing agent.
func (e *Engine) UpdateAgent(ctx context.Context, agent domain.Agent) (MutationResult, error) {
	e.mu.Lock()
	if _, ok := e.agents[agent.ID]; !ok {
		e.mu.Unlock()
		return MutationResult{}, apperrors.NewNotFound("agent", map[string]any{"id": agent.ID})
	}
	e.agents[agent.ID] = agent
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertAgent(ctx, agent)), nil
}

// RemoveAgent deletes an agent remotely and locally.
func (e *Engine) RemoveAgent(ctx context.Context, id string) error {
	if err := e.store.DeleteAgent(ctx, id); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.agents, id)
	e.mu.Unlock()
	return nil
}

// AddPage connects a new page.
func (e *Engine) AddPage(ctx context.Context, page domain.Page) (MutationResult, error) {
	if page.ID == "" {
		return MutationResult{}, apperrors.NewValidationError("page id required", nil)
	}
	e.mu.Lock()
	e.pages[page.ID] = page
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertPage(ctx, page)), nil
}

// UpdatePage merges edits into an existing page.
func (e *Engine) UpdatePage(ctx context.Context, page domain.Page) (MutationResult, error) {
	e.mu.Lock()
	if _, ok := e.pages[page.ID]; !ok {
		e.mu.Unlock()
		return MutationResult{}, apperrors.NewNotFound("page", map[string]any{"id": page.ID})
	}
	e.pages[page.ID] = page
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertPage(ctx, page)), nil
}

// RemovePage disconnects a page.
func (e *Engine) RemovePage(ctx context.Context, id string) error {
	if err := e.store.DeletePage(ctx, id); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.pages, id)
	e.mu.Unlock()
	return nil
}

// VerifyPageConnection checks a page's token against the platform and
// records the result on the page.
func (e *Engine) VerifyPageConnection(ctx context.Context, pageID string) (bool, error) {
	e.mu.Lock()
	page, ok := e.pages[pageID]
	e.mu.Unlock()
	if !ok {
		return false, apperrors.NewNotFound("page", map[string]any{"id": pageID})
	}

	valid, err := e.platform.VerifyPageToken(ctx, pageID, page.AccessToken)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	page.IsConnected = valid
	e.pages[pageID] = page
	e.mu.Unlock()
	if err := e.store.UpsertPage(ctx, page); err != nil {
		e.addLog(domain.LogTypeError, "Page persist failed", err.Error())
	}
	return valid, nil
}

// AddLink adds an approved link.
func (e *Engine) AddLink(ctx context.Context, link domain.ApprovedLink) (MutationResult, error) {
	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	e.mu.Lock()
	e.links[link.ID] = link
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertLink(ctx, link)), nil
}

// RemoveLink deletes an approved link.
func (e *Engine) RemoveLink(ctx context.Context, id string) error {
	if err := e.store.DeleteLink(ctx, id); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.links, id)
	e.mu.Unlock()
	return nil
}

// AddMedia adds an approved media asset.
func (e *Engine) AddMedia(ctx context.Context, media domain.ApprovedMedia) (MutationResult, error) {
	if media.ID == "" {
		media.ID = uuid.NewString()
	}
	e.mu.Lock()
	e.media[media.ID] = media
	e.mu.Unlock()
	return e.persistResult(e.store.UpsertMedia(ctx, media)), nil
}

// RemoveMedia deletes an approved media asset.
func (e *Engine) RemoveMedia(ctx context.Context, id string) error {
	if err := e.store.DeleteMedia(ctx, id); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.media, id)
	e.mu.Unlock()
	return nil
}

// ClearLocalChats wipes conversations and messages both remotely and
// locally, for operator resets.
func (e *Engine) ClearLocalChats(ctx context.Context) error {
	e.mu.Lock()
	convIDs := make([]string, 0, len(e.conversations))
	for id := range e.conversations {
		convIDs = append(convIDs, id)
	}
	msgIDs := make([]string, 0, len(e.messages))
	for id := range e.messages {
		msgIDs = append(msgIDs, id)
	}
	e.mu.Unlock()

	for _, id := range convIDs {
		if err := e.store.DeleteConversation(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range msgIDs {
		if err := e.store.DeleteMessage(ctx, id); err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.conversations = make(map[string]domain.Conversation)
	e.messages = make(map[string]domain.Message)
	e.historySynced = false
	e.mu.Unlock()
	e.addLog(domain.LogTypeInfo, "Local chat state cleared", "")
	return nil
}
