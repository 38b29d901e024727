package redisclient

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestWithLocksRunsAndReleases(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)

	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	keys := []string{DoctorSlotKey(uuid.New(), at), PatientSlotKey(uuid.New(), at)}

	ran := false
	err := locker.WithLocks(context.Background(), keys, func(ctx context.Context) error {
		ran = true
		for _, k := range keys {
			assert.True(t, mr.Exists(k), "expected %s held inside critical section", k)
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	for _, k := range keys {
		assert.False(t, mr.Exists(k), "expected %s released", k)
	}
}

func TestWithLocksContention(t *testing.T) {
	mr, client := newTestClient(t)
	locker := NewRedisLocker(client, 5*time.Second)

	at := time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC)
	doctorKey := DoctorSlotKey(uuid.New(), at)
	patientKey := PatientSlotKey(uuid.New(), at)

	require.NoError(t, mr.Set(doctorKey, "someone-else"))

	ran := false
	err := locker.WithLocks(context.Background(), []string{patientKey, doctorKey}, func(ctx context.Context) error {
		ran = true
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)
	assert.False(t, ran)

	// A foreign holder's key is untouched; our partially acquired key is freed.
	got, err := mr.Get(doctorKey)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
	assert.False(t, mr.Exists(patientKey))
}

func TestWithLocksPropagatesCallbackError(t *testing.T) {
	_, client := newTestClient(t)
	locker := NewRedisLocker(client, time.Second)

	boom := errors.New("insert failed")
	err := locker.WithLocks(context.Background(), []string{"lock:a"}, func(ctx context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestSlotKeysAreStable(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "lock:doctor:11111111-2222-3333-4444-555555555555:1792054800", DoctorSlotKey(id, at))
	assert.Equal(t, "lock:patient:11111111-2222-3333-4444-555555555555:1792054800", PatientSlotKey(id, at))
}
