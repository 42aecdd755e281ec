package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLastActivityParsesRFC3339(t *testing.T) {
	conv := Conversation{LastTimestamp: "2026-08-30T12:00:00Z"}
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), conv.LastActivity())
}

func TestLastActivityUnparsableIsZero(t *testing.T) {
	assert.True(t, Conversation{LastTimestamp: "yesterday"}.LastActivity().IsZero())
	assert.True(t, Conversation{}.LastActivity().IsZero())
}

func TestNewerThan(t *testing.T) {
	older := Conversation{LastTimestamp: "2026-08-30T12:00:00Z"}
	newer := Conversation{LastTimestamp: "2026-08-30T13:00:00Z"}

	assert.True(t, newer.NewerThan(older))
	assert.False(t, older.NewerThan(newer))
	assert.False(t, newer.NewerThan(newer), "equal timestamps are not newer")

	// A record with a broken timestamp always loses.
	broken := Conversation{LastTimestamp: "???"}
	assert.False(t, broken.NewerThan(older))
	assert.True(t, older.NewerThan(broken))
}

func TestMessagingWindowExpired(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	fresh := Conversation{LastTimestamp: now.Add(-23 * time.Hour).Format(time.RFC3339)}
	assert.False(t, fresh.MessagingWindowExpired(now))

	stale := Conversation{LastTimestamp: now.Add(-25 * time.Hour).Format(time.RFC3339)}
	assert.True(t, stale.MessagingWindowExpired(now))
}

func TestAgentAssignedTo(t *testing.T) {
	agent := Agent{AssignedPageIDs: []string{"p1", "p2"}}
	assert.True(t, agent.AssignedTo("p1"))
	assert.False(t, agent.AssignedTo("p3"))
	assert.False(t, Agent{}.AssignedTo("p1"))
}
