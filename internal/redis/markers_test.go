package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReminderMarkersLifecycle(t *testing.T) {
	mr, client := newTestClient(t)
	markers := NewReminderMarkers(client, 48*time.Hour)
	ctx := context.Background()

	key := "p1:d1:morning:2026-10-14"

	sent, err := markers.IsSent(ctx, key)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, markers.MarkSent(ctx, key))
	require.NoError(t, markers.MarkSent(ctx, "p1:d2:morning:2026-10-14"))

	sent, err = markers.IsSent(ctx, key)
	require.NoError(t, err)
	assert.True(t, sent)
	assert.Equal(t, 48*time.Hour, mr.TTL(markerPrefix+key))

	// Unrelated keys survive a clear.
	require.NoError(t, mr.Set("lock:doctor:x:1", "token"))

	removed, err := markers.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	sent, err = markers.IsSent(ctx, key)
	require.NoError(t, err)
	assert.False(t, sent)
	assert.True(t, mr.Exists("lock:doctor:x:1"))
}

func TestReminderMarkersExpire(t *testing.T) {
	mr, client := newTestClient(t)
	markers := NewReminderMarkers(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, markers.MarkSent(ctx, "p:d:night:2026-10-14"))
	mr.FastForward(2 * time.Hour)

	sent, err := markers.IsSent(ctx, "p:d:night:2026-10-14")
	require.NoError(t, err)
	assert.False(t, sent)
}
