package relay

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
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

type fakeBackend struct {
	pingResult PingResult
	pingErr    error
	findDocs   []map[string]any
	findErr    error
	upsertID   string
	upsertErr  error
	deleteErr  error
	stats      []domain.CollectionStat

	lastCollection string
	lastRecord     map[string]any
	deletedID      string
}

func (b *fakeBackend) Ping(context.Context) (PingResult, error) { return b.pingResult, b.pingErr }

func (b *fakeBackend) Find(_ context.Context, collection string, _ map[string]any) ([]map[string]any, error) {
	b.lastCollection = collection
	return b.findDocs, b.findErr
}

func (b *fakeBackend) Upsert(_ context.Context, collection string, record map[string]any) (string, error) {
	b.lastCollection = collection
	b.lastRecord = record
	return b.upsertID, b.upsertErr
}

func (b *fakeBackend) Delete(_ context.Context, collection, id string) error {
	b.lastCollection = collection
	b.deletedID = id
	return b.deleteErr
}

func (b *fakeBackend) ListCollections(context.Context) ([]domain.CollectionStat, error) {
	return b.stats, nil
}

func newRelayApp(backend Backend) *fiber.App {
	app := fiber.New()
	app.Post("/api/db", NewHandler(backend, zap.NewNop()).Handle)
	return app
}

func post(t *testing.T, app *fiber.App, body map[string]any) (*http.Response, map[string]any) {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/db", bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	return resp, decoded
}

func TestRelayPing(t *testing.T) {
	backend := &fakeBackend{pingResult: PingResult{OK: true, Status: 200, Provider: "postgres"}}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{"action": "ping"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "postgres", body["provider"])
}

func TestRelayFind(t *testing.T) {
	backend := &fakeBackend{findDocs: []map[string]any{{"id": "a1"}}}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{"action": "find", "collection": "agents", "filter": map[string]any{}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	docs := body["documents"].([]any)
	require.Len(t, docs, 1)
	assert.Equal(t, "agents", backend.lastCollection)
}

func TestRelayFindEmptyIsArrayNotNull(t *testing.T) {
	app := newRelayApp(&fakeBackend{})

	resp, body := post(t, app, map[string]any{"action": "find", "collection": "messages"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	docs, ok := body["documents"].([]any)
	require.True(t, ok, "documents must be an array even when empty")
	assert.Empty(t, docs)
}

func TestRelayUnknownCollection(t *testing.T) {
	app := newRelayApp(&fakeBackend{})

	resp, body := post(t, app, map[string]any{"action": "find", "collection": "secrets"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "TABLE_QUERY_FAILED", body["code"])
}

func TestRelayUpsert(t *testing.T) {
	backend := &fakeBackend{upsertID: "c1"}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{
		"action":     "updateOne",
		"collection": "conversations",
		"update":     map[string]any{"$set": map[string]any{"id": "c1", "status": "OPEN"}},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "c1", body["upsertedId"])
	assert.Equal(t, "OPEN", backend.lastRecord["status"])
}

func TestRelayUpsertWithoutID(t *testing.T) {
	app := newRelayApp(&fakeBackend{})

	resp, body := post(t, app, map[string]any{
		"action":     "updateOne",
		"collection": "conversations",
		"update":     map[string]any{"$set": map[string]any{"status": "OPEN"}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "id")
}

func TestRelayDelete(t *testing.T) {
	backend := &fakeBackend{}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{
		"action":     "deleteOne",
		"collection": "messages",
		"filter":     map[string]any{"id": "m1"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "m1", backend.deletedID)
}

func TestRelayDeleteWithoutID(t *testing.T) {
	app := newRelayApp(&fakeBackend{})

	resp, _ := post(t, app, map[string]any{
		"action":     "deleteOne",
		"collection": "messages",
		"filter":     map[string]any{},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRelayListCollections(t *testing.T) {
	backend := &fakeBackend{stats: []domain.CollectionStat{{Name: "agents", Exists: true, Count: 3}}}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{"action": "listCollections"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	stats := body["collections"].([]any)
	require.Len(t, stats, 1)
}

func TestRelayInvalidOperation(t *testing.T) {
	app := newRelayApp(&fakeBackend{})

	resp, body := post(t, app, map[string]any{"action": "dropEverything", "collection": "agents"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid operation", body["error"])
}

func TestRelayBackendErrorMapping(t *testing.T) {
	backend := &fakeBackend{findErr: apperrors.NewSchemaMissing("relation \"agents\" does not exist")}
	app := newRelayApp(backend)

	resp, body := post(t, app, map[string]any{"action": "find", "collection": "agents"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "SCHEMA_MISSING", body["code"])
}

func TestParseContentRangeTotal(t *testing.T) {
	assert.Equal(t, 42, parseContentRangeTotal("0-24/42"))
	assert.Equal(t, 0, parseContentRangeTotal("*/0"))
	assert.Equal(t, 0, parseContentRangeTotal(""))
	assert.Equal(t, 0, parseContentRangeTotal("garbage"))
}
