package scheduling

import (
	"strings"
	"time"
)

var weekdays = []struct {
	name string
	day  time.Weekday
}{
	{"monday", time.Monday},
	{"tuesday", time.Tuesday},
	{"wednesday", time.Wednesday},
	{"thursday", time.Thursday},
	{"friday", time.Friday},
	{"saturday", time.Saturday},
	{"sunday", time.Sunday},
}

// ParseTimeIntent maps free text to a target date relative to now.
// The first matching rule wins:
//
//	"tomorrow"   now + 1 day
//	"next week"  now + 7 days
//	"this week"  now + 3 days
//	weekday name next occurrence after today (today's weekday means +7)
//	otherwise    now + 1 day
func ParseTimeIntent(query string, now time.Time) time.Time {
	q := strings.ToLower(query)

	switch {
	case strings.Contains(q, "tomorrow"):
		return now.AddDate(0, 0, 1)
	case strings.Contains(q, "next week"):
		return now.AddDate(0, 0, 7)
	case strings.Contains(q, "this week"):
		return now.AddDate(0, 0, 3)
	}

	for _, wd := range weekdays {
		if !strings.Contains(q, wd.name) {
			continue
		}
		ahead := (int(wd.day) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return now.AddDate(0, 0, ahead)
	}

	return now.AddDate(0, 0, 1)
}
