package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

func relayStub(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestListDecodesDocuments(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "find", req["action"])
		assert.Equal(t, "agents", req["collection"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"documents":[{"id":"a1","email":"a@x.test"}]}`))
	})

	client := NewClient(srv.URL, time.Second)
	docs, err := client.List(context.Background(), CollectionAgents)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestRelayTimeoutSurfacesAsTimeout(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`{"ok":true}`))
	})

	client := NewClient(srv.URL, 50*time.Millisecond)
	_, err := client.List(context.Background(), CollectionAgents)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "TIMEOUT"), "got %v", err)
}

func TestUnauthorizedStatusMapsToUnauthorized(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid API key"}`))
	})

	client := NewClient(srv.URL, time.Second)
	_, err := client.List(context.Background(), CollectionAgents)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}

func TestNotFoundStatusMapsToSchemaMissing(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Unknown collection","code":"TABLE_QUERY_FAILED"}`))
	})

	client := NewClient(srv.URL, time.Second)
	_, err := client.List(context.Background(), CollectionConversations)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "SCHEMA_MISSING"))
}

func TestGenericFailureMapsToRelayError(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"boom","details":"stack"}`))
	})

	client := NewClient(srv.URL, time.Second)
	_, err := client.List(context.Background(), CollectionAgents)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "RELAY_ERROR"))
}

func TestPingRejectedKey(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":false,"status":401,"provider":"rest"}`))
	})

	client := NewClient(srv.URL, time.Second)
	ok, err := client.Ping(context.Background())
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}

func TestPingHealthy(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"status":200,"provider":"postgres"}`))
	})

	client := NewClient(srv.URL, time.Second)
	ok, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpsertRequiresID(t *testing.T) {
	client := NewClient("http://unused.invalid", time.Second)
	_, err := client.Upsert(context.Background(), CollectionAgents, map[string]any{"name": "no id"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "VALIDATION_FAILED"))
}

func TestUpsertSendsSetPayload(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action string `json:"action"`
			Update struct {
				Set map[string]any `json:"$set"`
			} `json:"update"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "updateOne", req.Action)
		assert.Equal(t, "a1", req.Update.Set["id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"upsertedId":"a1"}`))
	})

	client := NewClient(srv.URL, time.Second)
	id, err := client.Upsert(context.Background(), CollectionAgents, map[string]any{"id": "a1", "name": "Agent"})
	require.NoError(t, err)
	assert.Equal(t, "a1", id)
}

func TestWriteHeartbeat(t *testing.T) {
	srv := relayStub(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Collection string `json:"collection"`
			Update     struct {
				Set map[string]any `json:"$set"`
			} `json:"update"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, CollectionProvisioning, req.Collection)
		assert.Equal(t, "heartbeat", req.Update.Set["id"])
		assert.Equal(t, "SUCCESS", req.Update.Set["status"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"upsertedId":"heartbeat"}`))
	})

	client := NewClient(srv.URL, time.Second)
	require.NoError(t, client.WriteHeartbeat(context.Background()))
}
