package scheduling

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func TestGenerateSlotsOrderAndWeekendSkip(t *testing.T) {
	// Friday afternoon start still begins at 09:00 that day.
	slots := GenerateSlots(time.Date(2026, 10, 16, 15, 42, 0, 0, time.UTC), "Mehta", "d1", nil, 6)
	require.Len(t, slots, 6)

	want := []time.Time{
		date(2026, 10, 16, 9), date(2026, 10, 16, 11), date(2026, 10, 16, 14), date(2026, 10, 16, 16),
		date(2026, 10, 19, 9), date(2026, 10, 19, 11),
	}
	for i, s := range slots {
		assert.True(t, want[i].Equal(s.DateTime), "slot %d: got %s", i, s.DateTime)
		assert.Equal(t, "Mehta", s.DoctorName)
		assert.Equal(t, "d1", s.DoctorID)
	}
}

func TestGenerateSlotsSkipsTaken(t *testing.T) {
	taken := []time.Time{date(2026, 10, 15, 9), date(2026, 10, 15, 14)}
	slots := GenerateSlots(date(2026, 10, 15, 0), "Mehta", "d1", taken, 3)
	require.Len(t, slots, 3)
	assert.True(t, slots[0].DateTime.Equal(date(2026, 10, 15, 11)))
	assert.True(t, slots[1].DateTime.Equal(date(2026, 10, 15, 16)))
	assert.True(t, slots[2].DateTime.Equal(date(2026, 10, 16, 9)))
}

func TestGenerateSlotsScanBound(t *testing.T) {
	// Fourteen days from Wednesday 2026-10-14 hold ten weekdays.
	slots := GenerateSlots(date(2026, 10, 14, 8), "Mehta", "d1", nil, 100)
	assert.Len(t, slots, 40)
	assert.True(t, slots[len(slots)-1].DateTime.Equal(date(2026, 10, 27, 16)))

	var all []time.Time
	for _, s := range slots {
		all = append(all, s.DateTime)
	}
	assert.Empty(t, GenerateSlots(date(2026, 10, 14, 8), "Mehta", "d1", all, 3))
}

func TestGenerateSlotsNonPositiveCount(t *testing.T) {
	assert.Empty(t, GenerateSlots(date(2026, 10, 14, 8), "Mehta", "d1", nil, 0))
	assert.Empty(t, GenerateSlots(date(2026, 10, 14, 8), "Mehta", "d1", nil, -2))
}

func TestGenerateSlotsProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := date(2026, 1, 1, 0)

	for i := 0; i < 200; i++ {
		start := base.Add(time.Duration(rng.Intn(365*24)) * time.Hour)
		var taken []time.Time
		for j := 0; j < rng.Intn(20); j++ {
			day := start.AddDate(0, 0, rng.Intn(14))
			taken = append(taken, time.Date(day.Year(), day.Month(), day.Day(), SlotHours[rng.Intn(len(SlotHours))], 0, 0, 0, time.UTC))
		}

		slots := GenerateSlots(start, "Mehta", "d1", taken, 1+rng.Intn(10))

		seen := map[int64]bool{}
		for _, s := range slots {
			assert.False(t, seen[s.DateTime.Unix()], "duplicate slot %s", s.DateTime)
			seen[s.DateTime.Unix()] = true

			wd := s.DateTime.Weekday()
			assert.NotEqual(t, time.Saturday, wd)
			assert.NotEqual(t, time.Sunday, wd)
			assert.Contains(t, SlotHours, s.DateTime.Hour())
			assert.Zero(t, s.DateTime.Minute())

			for _, tk := range taken {
				assert.False(t, tk.Equal(s.DateTime), "slot %s is taken", s.DateTime)
			}
		}
	}
}

func TestSlotJSON(t *testing.T) {
	s := Slot{DateTime: date(2026, 10, 15, 9), DoctorID: "d1", DoctorName: "Mehta"}
	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"datetime":"2026-10-15T09:00:00","doctor_id":"d1","doctor_name":"Mehta"}`, string(data))
}
