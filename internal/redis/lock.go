package redisclient

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrLockNotAcquired = errors.New("lock not acquired")
)

// Locker guards the booking check-and-insert and the reminder cycle. All keys
// are held for the duration of fn; if any key is already held nothing is run.
type Locker interface {
	WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by one SETNX key per lock name.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	return &redisLocker{
		client: client,
		ttl:    ttl,
	}
}

// DoctorSlotKey and PatientSlotKey name the two sides of a booking.
func DoctorSlotKey(doctorID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("lock:doctor:%s:%d", doctorID, at.Unix())
}

func PatientSlotKey(patientID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("lock:patient:%s:%d", patientID, at.Unix())
}

func (l *redisLocker) WithLocks(ctx context.Context, keys []string, fn func(ctx context.Context) error) error {
	// Fixed acquisition order so two bookings sharing keys cannot interleave.
	ordered := append([]string(nil), keys...)
	sort.Strings(ordered)

	token := uuid.NewString()
	held := make([]string, 0, len(ordered))

	defer func() {
		// Release on a fresh context so a cancelled request still frees its keys.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		for _, key := range held {
			_ = l.release(releaseCtx, key, token)
		}
	}()

	for _, key := range ordered {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if !ok {
			return ErrLockNotAcquired
		}
		held = append(held, key)
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
