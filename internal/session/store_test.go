package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/messengerflow/inbox-service/internal/domain"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	agent := domain.Agent{ID: "a1", Email: "a@x.test", Role: domain.AgentRoleAgent}

	require.NoError(t, store.Save(ctx, "sess-1", agent, time.Minute))

	got, err := store.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, agent, got)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", domain.Agent{ID: "a1"}, -time.Second))

	_, err := store.Get(ctx, "sess-1")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess-1", domain.Agent{ID: "a1"}, time.Minute))
	require.NoError(t, store.Delete(ctx, "sess-1"))

	_, err := store.Get(ctx, "sess-1")
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Get(context.Background(), "nope")
	assert.True(t, apperrors.HasCode(err, "UNAUTHORIZED"))
}
