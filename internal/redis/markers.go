package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const markerPrefix = "reminder:sent:"

// ReminderMarkers persists reminder-sent markers so a worker restart does not
// resend the day's reminders. Keys expire after ttl even if Clear is never called.
type ReminderMarkers struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReminderMarkers(client *redis.Client, ttl time.Duration) *ReminderMarkers {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &ReminderMarkers{client: client, ttl: ttl}
}

func (m *ReminderMarkers) IsSent(ctx context.Context, key string) (bool, error) {
	n, err := m.client.Exists(ctx, markerPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("check reminder marker: %w", err)
	}
	return n > 0, nil
}

func (m *ReminderMarkers) MarkSent(ctx context.Context, key string) error {
	if err := m.client.Set(ctx, markerPrefix+key, time.Now().UTC().Format(time.RFC3339), m.ttl).Err(); err != nil {
		return fmt.Errorf("set reminder marker: %w", err)
	}
	return nil
}

// Clear removes every marker and reports how many were deleted.
func (m *ReminderMarkers) Clear(ctx context.Context) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := m.client.Scan(ctx, cursor, markerPrefix+"*", 500).Result()
		if err != nil {
			return removed, fmt.Errorf("scan reminder markers: %w", err)
		}
		if len(keys) > 0 {
			n, err := m.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("delete reminder markers: %w", err)
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
