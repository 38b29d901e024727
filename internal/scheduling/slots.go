// Package scheduling turns a patient's coarse time intent into concrete
// candidate appointment slots.
package scheduling

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateTimeLayout is the wire format of slot times: ISO-8601 local wall clock
// without a zone offset.
const DateTimeLayout = "2006-01-02T15:04:05"

const (
	// MaxScanDays bounds how far past the start day GenerateSlots looks.
	MaxScanDays = 14
	// DefaultSlotCount is how many slots a suggestion carries.
	DefaultSlotCount = 3
)

// SlotHours are the fixed daily appointment times, in emission order.
var SlotHours = []int{9, 11, 14, 16}

// Slot is a candidate appointment. It is never persisted.
type Slot struct {
	DateTime   time.Time
	DoctorID   string
	DoctorName string
}

type slotJSON struct {
	DateTime   string `json:"datetime"`
	DoctorID   string `json:"doctor_id"`
	DoctorName string `json:"doctor_name"`
}

func (s Slot) MarshalJSON() ([]byte, error) {
	return json.Marshal(slotJSON{
		DateTime:   s.DateTime.Format(DateTimeLayout),
		DoctorID:   s.DoctorID,
		DoctorName: s.DoctorName,
	})
}

var dateTimeLayouts = []string{
	time.RFC3339,
	DateTimeLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseDateTime accepts RFC 3339 and the zone-less slot format. Zone-less
// values are read in loc.
func ParseDateTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date/time %q", s)
}

// GenerateSlots returns up to count candidate slots for one doctor, starting
// at 09:00 on start's calendar day (in start's location). Weekends are skipped
// and any candidate whose instant is in taken is left out. At most MaxScanDays
// calendar days are scanned, so fewer than count slots may come back.
func GenerateSlots(start time.Time, doctorName, doctorID string, taken []time.Time, count int) []Slot {
	slots := make([]Slot, 0, max(count, 0))
	if count <= 0 {
		return slots
	}

	busy := make(map[int64]struct{}, len(taken))
	for _, t := range taken {
		busy[t.Unix()] = struct{}{}
	}

	loc := start.Location()
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	for scanned := 0; scanned < MaxScanDays && len(slots) < count; scanned++ {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			for _, hour := range SlotHours {
				candidate := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, loc)
				if _, ok := busy[candidate.Unix()]; ok {
					continue
				}
				slots = append(slots, Slot{DateTime: candidate, DoctorID: doctorID, DoctorName: doctorName})
				if len(slots) >= count {
					break
				}
			}
		}
		day = day.AddDate(0, 0, 1)
	}

	return slots
}
