package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/messengerflow/inbox-service/internal/config"
	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

// TagHumanAgent marks an agent reply sent after the standard messaging
// window has lapsed.
const TagHumanAgent = "HUMAN_AGENT"

// Client talks to the messaging platform's Graph-style API on behalf of
// connected pages.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient builds a platform client.
func NewClient(cfg config.PlatformConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GraphBaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout()},
	}
}

type graphError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type conversationList struct {
	Data []struct {
		ID           string `json:"id"`
		UpdatedTime  string `json:"updated_time"`
		Snippet      string `json:"snippet"`
		UnreadCount  int    `json:"unread_count"`
		Participants struct {
			Data []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Picture string `json:"picture"`
			} `json:"data"`
		} `json:"participants"`
	} `json:"data"`
}

type messageList struct {
	Data []struct {
		ID          string `json:"id"`
		Message     string `json:"message"`
		CreatedTime string `json:"created_time"`
		From        struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"from"`
	} `json:"data"`
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.NewPlatformError("platform API unreachable", map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodePlatformError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.NewPlatformError("malformed platform response", nil)
	}
	return nil
}

// FetchPageConversations lists the most recently active conversations of a
// page, newest first, capped at limit.
func (c *Client) FetchPageConversations(ctx context.Context, pageID, accessToken string, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 5
	}
	query := url.Values{}
	query.Set("access_token", accessToken)
	query.Set("fields", "participants,updated_time,snippet,unread_count")
	query.Set("limit", strconv.Itoa(limit))

	var list conversationList
	if err := c.get(ctx, "/"+pageID+"/conversations", query, &list); err != nil {
		return nil, err
	}

	conversations := make([]domain.Conversation, 0, len(list.Data))
	for _, raw := range list.Data {
		conv := domain.Conversation{
			ID:            raw.ID,
			PageID:        pageID,
			LastMessage:   raw.Snippet,
			LastTimestamp: raw.UpdatedTime,
			Status:        domain.ConversationStatusOpen,
			UnreadCount:   raw.UnreadCount,
		}
		// The page itself is one of the participants; the customer is the
		// other one.
		for _, p := range raw.Participants.Data {
			if p.ID != pageID {
				conv.CustomerID = p.ID
				conv.CustomerName = p.Name
				conv.CustomerAvatar = p.Picture
				break
			}
		}
		conversations = append(conversations, conv)
	}
	return conversations, nil
}

// FetchThreadMessages lists the messages of one conversation.
func (c *Client) FetchThreadMessages(ctx context.Context, conversationID, pageID, accessToken string) ([]domain.Message, error) {
	query := url.Values{}
	query.Set("access_token", accessToken)
	query.Set("fields", "message,from,created_time")

	var list messageList
	if err := c.get(ctx, "/"+conversationID+"/messages", query, &list); err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(list.Data))
	for _, raw := range list.Data {
		messages = append(messages, domain.Message{
			ID:             raw.ID,
			ConversationID: conversationID,
			SenderID:       raw.From.ID,
			SenderName:     raw.From.Name,
			Text:           raw.Message,
			Timestamp:      raw.CreatedTime,
			IsIncoming:     raw.From.ID != pageID,
			IsRead:         raw.From.ID == pageID,
		})
	}
	return messages, nil
}

// SendMessage delivers an agent reply to a customer. A non-empty tag is
// attached for sends outside the standard messaging window.
func (c *Client) SendMessage(ctx context.Context, recipientID, text, accessToken, tag string) (string, error) {
	payload := map[string]any{
		"recipient": map[string]any{"id": recipientID},
		"message":   map[string]any{"text": text},
	}
	if tag != "" {
		payload["messaging_type"] = "MESSAGE_TAG"
		payload["tag"] = tag
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}

	sendURL := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(accessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sendURL, bytes.NewReader(encoded))
	if err != nil {
		return "", apperrors.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.NewPlatformError("platform API unreachable", map[string]any{"cause": err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", decodePlatformError(resp)
	}

	var result struct {
		MessageID string `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", apperrors.NewPlatformError("malformed platform response", nil)
	}
	return result.MessageID, nil
}

// VerifyPageToken checks that a page's access token is still accepted.
func (c *Client) VerifyPageToken(ctx context.Context, pageID, accessToken string) (bool, error) {
	query := url.Values{}
	query.Set("access_token", accessToken)
	query.Set("fields", "id,name")

	var page struct {
		ID string `json:"id"`
	}
	if err := c.get(ctx, "/"+pageID, query, &page); err != nil {
		if apperrors.HasCode(err, "PLATFORM_API_ERROR") {
			return false, nil
		}
		return false, err
	}
	return page.ID == pageID, nil
}

// decodePlatformError keeps the upstream error message verbatim: messaging
// window policy violations carry guidance the agent needs to see unchanged.
func decodePlatformError(resp *http.Response) error {
	var gErr graphError
	if err := json.NewDecoder(resp.Body).Decode(&gErr); err != nil || gErr.Error.Message == "" {
		return apperrors.NewPlatformError(fmt.Sprintf("platform API error: %d", resp.StatusCode), nil)
	}
	return apperrors.NewPlatformError(gErr.Error.Message, map[string]any{
		"type": gErr.Error.Type,
		"code": gErr.Error.Code,
	})
}
