package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimeIntent(t *testing.T) {
	// Wednesday
	now := time.Date(2026, 10, 14, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		query string
		days  int
	}{
		{"book tomorrow", 1},
		{"Something NEXT WEEK please", 7},
		{"any time this week", 3},
		{"friday works", 2},
		{"monday", 5},
		{"wednesday", 7},
		{"tomorrow or friday", 1},
		{"next week, maybe tomorrow", 1},
		{"this week or next week", 7},
		{"friday or monday", 5},
		{"whenever", 1},
		{"", 1},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := ParseTimeIntent(tt.query, now)
			assert.True(t, now.AddDate(0, 0, tt.days).Equal(got), "got %s", got)
		})
	}
}
