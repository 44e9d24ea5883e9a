package clock

import (
	"testing"
	"time"
)

func TestDaysPast(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	cases := []struct {
		name string
		due  time.Time
		want int
	}{
		{"yesterday late", time.Date(2025, 3, 9, 23, 59, 0, 0, time.UTC), 1},
		{"today", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), 0},
		{"future", time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), 0},
		{"thirty one days", time.Date(2025, 2, 7, 8, 0, 0, 0, time.UTC), 31},
	}
	for _, tc := range cases {
		if got := DaysPast(tc.due, now); got != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestFixedAdvance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFixed(start)
	c.Advance(36 * time.Hour)
	if got := c.Now(); !got.Equal(start.Add(36 * time.Hour)) {
		t.Fatalf("expected %s, got %s", start.Add(36*time.Hour), got)
	}
}
