package platform

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messengerflow/inbox-service/internal/config"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

func graphStub(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PlatformConfig{GraphBaseURL: srv.URL, TimeoutSeconds: 2})
}

func TestFetchPageConversationsExtractsCustomer(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/conversations", r.URL.Path)
		assert.Equal(t, "tok", r.URL.Query().Get("access_token"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{
			"id":"t_1","updated_time":"2026-08-30T12:00:00Z","snippet":"hi","unread_count":2,
			"participants":{"data":[
				{"id":"page-1","name":"My Page"},
				{"id":"cust-1","name":"Alice"}
			]}
		}]}`))
	})

	convs, err := client.FetchPageConversations(context.Background(), "page-1", "tok", 5)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "t_1", convs[0].ID)
	assert.Equal(t, "cust-1", convs[0].CustomerID)
	assert.Equal(t, "Alice", convs[0].CustomerName)
	assert.Equal(t, 2, convs[0].UnreadCount)
}

func TestFetchThreadMessagesDirection(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"m1","message":"hello","created_time":"2026-08-30T12:00:00Z","from":{"id":"cust-1","name":"Alice"}},
			{"id":"m2","message":"hi back","created_time":"2026-08-30T12:01:00Z","from":{"id":"page-1","name":"My Page"}}
		]}`))
	})

	msgs, err := client.FetchThreadMessages(context.Background(), "t_1", "page-1", "tok")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].IsIncoming)
	assert.False(t, msgs[1].IsIncoming)
}

func TestSendMessageTaggedOutsideWindow(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages", r.URL.Path)
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "MESSAGE_TAG", payload["messaging_type"])
		assert.Equal(t, TagHumanAgent, payload["tag"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"recipient_id":"cust-1","message_id":"mid.42"}`))
	})

	id, err := client.SendMessage(context.Background(), "cust-1", "late reply", "tok", TagHumanAgent)
	require.NoError(t, err)
	assert.Equal(t, "mid.42", id)
}

func TestSendMessageUntaggedHasNoMessagingType(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, hasType := payload["messaging_type"]
		assert.False(t, hasType)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message_id":"mid.43"}`))
	})

	_, err := client.SendMessage(context.Background(), "cust-1", "hi", "tok", "")
	require.NoError(t, err)
}

func TestSendMessageKeepsUpstreamErrorVerbatim(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"(#10) This message is sent outside of allowed window.","type":"OAuthException","code":10}}`))
	})

	_, err := client.SendMessage(context.Background(), "cust-1", "hi", "tok", "")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "PLATFORM_API_ERROR"))
	assert.Contains(t, err.Error(), "outside of allowed window")
}

func TestVerifyPageTokenRejectedIsFalseNotError(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	})

	ok, err := client.VerifyPageToken(context.Background(), "page-1", "bad-tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyPageTokenAccepted(t *testing.T) {
	client := graphStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"page-1","name":"My Page"}`))
	})

	ok, err := client.VerifyPageToken(context.Background(), "page-1", "tok")
	require.NoError(t, err)
	assert.True(t, ok)
}
