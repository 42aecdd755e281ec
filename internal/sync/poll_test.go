package sync

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messengerflow/inbox-service/internal/domain"
)

func loadedEngine(t *testing.T, store *fakeStore, platform *fakePlatform) *Engine {
	t.Helper()
	engine := newTestEngine(store, platform)
	require.NoError(t, engine.Load(context.Background()))
	return engine
}

func TestSyncConversationsAdoptsNewerRemote(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{{ID: "p1", Name: "Page", AccessToken: "tok"}}
	store.convs = []domain.Conversation{{
		ID: "c1", PageID: "p1", Status: domain.ConversationStatusResolved,
		LastTimestamp: ts(-2 * time.Hour),
	}}

	platform := newFakePlatform()
	platform.convsByPage["p1"] = []domain.Conversation{{
		ID: "c1", PageID: "p1", Status: domain.ConversationStatusOpen,
		LastMessage: "fresher", LastTimestamp: ts(-time.Minute),
	}}

	engine := loadedEngine(t, store, platform)
	require.NoError(t, engine.SyncConversations(context.Background(), 5))

	conv, ok := engine.Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, "fresher", conv.LastMessage)
	assert.Equal(t, domain.ConversationStatusOpen, conv.Status)
	require.Len(t, store.upsertedConvs, 1)
}

func TestSyncConversationsKeepsLocalWhenRemoteOlder(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{{ID: "p1", Name: "Page", AccessToken: "tok"}}
	store.convs = []domain.Conversation{{
		ID: "c1", PageID: "p1", LastMessage: "local", LastTimestamp: ts(-time.Minute),
	}}

	platform := newFakePlatform()
	platform.convsByPage["p1"] = []domain.Conversation{{
		ID: "c1", PageID: "p1", LastMessage: "stale", LastTimestamp: ts(-2 * time.Hour),
	}}

	engine := loadedEngine(t, store, platform)
	require.NoError(t, engine.SyncConversations(context.Background(), 5))

	conv, ok := engine.Conversation("c1")
	require.True(t, ok)
	assert.Equal(t, "local", conv.LastMessage)
	assert.Empty(t, store.upsertedConvs)
}

func TestSyncConversationsIsolatesPageFailure(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{
		{ID: "p1", Name: "Broken", AccessToken: "tok1"},
		{ID: "p2", Name: "Healthy", AccessToken: "tok2"},
	}

	platform := newFakePlatform()
	platform.errByPage["p1"] = errors.New("token expired")
	platform.convsByPage["p2"] = []domain.Conversation{{
		ID: "c2", PageID: "p2", LastTimestamp: ts(-time.Minute),
	}}

	engine := loadedEngine(t, store, platform)
	require.NoError(t, engine.SyncConversations(context.Background(), 5))

	_, ok := engine.Conversation("c2")
	assert.True(t, ok, "healthy page should still merge")

	status, _ := engine.Status()
	assert.Equal(t, StatusConnected, status)
	assert.NotEmpty(t, engine.LastSyncTime())

	var foundErrorLog bool
	for _, entry := range engine.Logs() {
		if entry.Type == domain.LogTypeError && entry.Message == "Page sync failed: Broken" {
			foundErrorLog = true
		}
	}
	assert.True(t, foundErrorLog)
}

func TestSyncConversationsSkipsPagesWithoutToken(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{{ID: "p1", Name: "Disconnected"}}

	platform := newFakePlatform()
	engine := loadedEngine(t, store, platform)
	require.NoError(t, engine.SyncConversations(context.Background(), 5))

	assert.Zero(t, platform.fetchCalls)
}

func TestSyncConversationsSkipsWhenTickInFlight(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{{ID: "p1", Name: "Page", AccessToken: "tok"}}

	platform := newFakePlatform()
	engine := loadedEngine(t, store, platform)

	require.True(t, engine.beginListTick())
	require.NoError(t, engine.SyncConversations(context.Background(), 5))
	assert.Zero(t, platform.fetchCalls, "overlapping tick must be a no-op")
	engine.endListTick()

	require.NoError(t, engine.SyncConversations(context.Background(), 5))
	assert.Equal(t, 1, platform.fetchCalls)
}

func TestSyncDeepMarksHistorySynced(t *testing.T) {
	store := newFakeStore()
	engine := loadedEngine(t, store, newFakePlatform())
	assert.False(t, engine.HistorySynced())

	require.NoError(t, engine.SyncDeep(context.Background()))
	assert.True(t, engine.HistorySynced())
}

func TestSyncThreadDropsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.pages = []domain.Page{{ID: "p1", Name: "Page", AccessToken: "tok"}}
	store.convs = []domain.Conversation{{ID: "c1", PageID: "p1", LastTimestamp: ts(-time.Hour)}}
	store.msgs = []domain.Message{{ID: "m1", ConversationID: "c1", Text: "known"}}

	platform := newFakePlatform()
	platform.threadMsgs["c1"] = []domain.Message{
		{ID: "m1", ConversationID: "c1", Text: "known"},
		{ID: "m2", ConversationID: "c1", Text: "fresh", IsIncoming: true, Timestamp: ts(-time.Minute)},
	}

	engine := loadedEngine(t, store, platform)
	require.NoError(t, engine.SyncThread(context.Background(), "c1"))

	require.Len(t, store.upsertedMsgs, 1)
	assert.Equal(t, "m2", store.upsertedMsgs[0].ID)
	assert.Len(t, engine.MessagesFor("c1"), 2)

	// A second identical tick changes nothing.
	require.NoError(t, engine.SyncThread(context.Background(), "c1"))
	assert.Len(t, store.upsertedMsgs, 1)
}

func TestSyncThreadUnknownConversationNoop(t *testing.T) {
	store := newFakeStore()
	platform := newFakePlatform()
	engine := loadedEngine(t, store, platform)

	require.NoError(t, engine.SyncThread(context.Background(), "nope"))
	assert.Empty(t, store.upsertedMsgs)
}

func TestPollerRunsOnlyWhileConditionHolds(t *testing.T) {
	var active atomic.Bool
	var runs atomic.Int64

	poller := NewPoller("test", 10*time.Millisecond, active.Load, func(context.Context) {
		runs.Add(1)
	}, nil)
	poller.Start(context.Background())

	time.Sleep(60 * time.Millisecond)
	assert.Zero(t, runs.Load(), "no tick should fire while condition is false")

	active.Store(true)
	time.Sleep(100 * time.Millisecond)
	assert.Positive(t, runs.Load())

	poller.Stop()
	settled := runs.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, settled, runs.Load(), "no tick may fire after Stop")
}

func TestPollerStopIsIdempotent(t *testing.T) {
	poller := NewPoller("test", 10*time.Millisecond, func() bool { return false }, func(context.Context) {}, nil)
	poller.Start(context.Background())
	poller.Stop()
	poller.Stop()
}

func TestPreviewKeepsShortTextIntact(t *testing.T) {
	assert.Equal(t, "hello", preview("hello"))
}

func TestPreviewTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("世", 30) // 90 bytes, no rune boundary at 80
	got := preview(long)

	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 78, len(got))
	assert.True(t, strings.HasPrefix(long, got))
}
