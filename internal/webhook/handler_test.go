package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/messengerflow/inbox-service/internal/domain"
	syncengine "github.com/messengerflow/inbox-service/internal/sync"
)

type fakeInbox struct {
	conversations map[string]domain.Conversation
	recorded      []domain.Message
}

func (f *fakeInbox) ConversationByParticipants(pageID, customerID string) (domain.Conversation, bool) {
	conv, ok := f.conversations[pageID+"|"+customerID]
	return conv, ok
}

func (f *fakeInbox) RecordIncoming(_ context.Context, msg domain.Message) (syncengine.MutationResult, error) {
	f.recorded = append(f.recorded, msg)
	return syncengine.MutationResult{AppliedLocally: true, ConfirmedRemote: true}, nil
}

func newWebhookApp(inbox *fakeInbox) *fiber.App {
	app := fiber.New()
	handler := NewHandler("secret-token", inbox, zap.NewNop())
	app.Get("/webhook", handler.Verify)
	app.Post("/webhook", handler.Receive)
	return app
}

func TestVerifyEchoesChallenge(t *testing.T) {
	app := newWebhookApp(&fakeInbox{})

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret-token&hub.challenge=12345", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "12345", string(body))
}

func TestVerifyRejectsWrongToken(t *testing.T) {
	app := newWebhookApp(&fakeInbox{})

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestVerifyRejectsMissingMode(t *testing.T) {
	app := newWebhookApp(&fakeInbox{})

	req := httptest.NewRequest(http.MethodGet, "/webhook?hub.verify_token=secret-token&hub.challenge=12345", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func deliver(t *testing.T, app *fiber.App, payload map[string]any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestReceiveFoldsCustomerMessage(t *testing.T) {
	inbox := &fakeInbox{conversations: map[string]domain.Conversation{
		"page-1|cust-1": {ID: "c1", PageID: "page-1", CustomerID: "cust-1", CustomerName: "Alice"},
	}}
	app := newWebhookApp(inbox)

	resp := deliver(t, app, map[string]any{
		"object": "page",
		"entry": []map[string]any{{
			"id":   "page-1",
			"time": 1700000000000,
			"messaging": []map[string]any{{
				"sender":    map[string]any{"id": "cust-1"},
				"recipient": map[string]any{"id": "page-1"},
				"timestamp": 1700000000000,
				"message":   map[string]any{"mid": "mid.abc", "text": "hello"},
			}},
		}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "EVENT_RECEIVED", string(body))

	require.Len(t, inbox.recorded, 1)
	msg := inbox.recorded[0]
	assert.Equal(t, "mid.abc", msg.ID)
	assert.Equal(t, "c1", msg.ConversationID)
	assert.Equal(t, "Alice", msg.SenderName)
	assert.True(t, msg.IsIncoming)
}

func TestReceiveDropsPageEcho(t *testing.T) {
	inbox := &fakeInbox{conversations: map[string]domain.Conversation{}}
	app := newWebhookApp(inbox)

	resp := deliver(t, app, map[string]any{
		"object": "page",
		"entry": []map[string]any{{
			"id": "page-1",
			"messaging": []map[string]any{{
				"sender":    map[string]any{"id": "page-1"},
				"recipient": map[string]any{"id": "cust-1"},
				"timestamp": 1700000000000,
				"message":   map[string]any{"mid": "mid.echo", "text": "we sent this"},
			}},
		}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, inbox.recorded)
}

func TestReceiveUnknownConversationAcknowledged(t *testing.T) {
	inbox := &fakeInbox{conversations: map[string]domain.Conversation{}}
	app := newWebhookApp(inbox)

	resp := deliver(t, app, map[string]any{
		"object": "page",
		"entry": []map[string]any{{
			"id": "page-1",
			"messaging": []map[string]any{{
				"sender":    map[string]any{"id": "cust-9"},
				"recipient": map[string]any{"id": "page-1"},
				"timestamp": 1700000000000,
				"message":   map[string]any{"mid": "mid.new", "text": "first contact"},
			}},
		}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, inbox.recorded)
}

func TestReceiveRejectsNonPageObject(t *testing.T) {
	app := newWebhookApp(&fakeInbox{})

	resp := deliver(t, app, map[string]any{"object": "instagram", "entry": []map[string]any{}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceiveIgnoresEventsWithoutText(t *testing.T) {
	inbox := &fakeInbox{conversations: map[string]domain.Conversation{}}
	app := newWebhookApp(inbox)

	resp := deliver(t, app, map[string]any{
		"object": "page",
		"entry": []map[string]any{{
			"id": "page-1",
			"messaging": []map[string]any{{
				"sender":    map[string]any{"id": "cust-1"},
				"recipient": map[string]any{"id": "page-1"},
				"timestamp": 1700000000000,
			}},
		}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, inbox.recorded)
}
