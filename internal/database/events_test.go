package database

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishEvent(userID int64, eventType string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func TestLogEventAndGetEventsSince(t *testing.T) {
	ctx := context.Background()
	user := createTestUser(t, "journal_reader")
	other := createTestUser(t, "journal_other")

	first, err := testStore.LogEvent(ctx, user.ID, "session_created", map[string]string{"display_name": "journal_reader"})
	require.NoError(t, err)
	_, err = testStore.LogEvent(ctx, other.ID, "session_created", nil)
	require.NoError(t, err)
	second, err := testStore.LogEvent(ctx, user.ID, "session_revoked", map[string]string{"display_name": "journal_reader"})
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	events, err := testStore.GetEventsSince(ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "session_created", events[0].EventType)
	require.Equal(t, "session_revoked", events[1].EventType)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	require.Equal(t, "journal_reader", payload["display_name"])

	events, err = testStore.GetEventsSince(ctx, user.ID, first.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, second.ID, events[0].ID)

	events, err = testStore.GetEventsSince(ctx, user.ID, second.ID)
	require.NoError(t, err)
	require.NotNil(t, events)
	require.Empty(t, events)
}

func TestEventJournal_PublishEvent(t *testing.T) {
	user := createTestUser(t, "journal_live")
	live := &recordingPublisher{}
	journal := NewEventJournal(testStore.Queries, live, zerolog.Nop())

	journal.PublishEvent(user.ID, "session_created", map[string]string{"display_name": "journal_live"})

	require.Equal(t, []string{"session_created"}, live.events)

	events, err := testStore.GetEventsSince(context.Background(), user.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "session_created", events[0].EventType)
}
