package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/feeledger/internal/clock"
)

func TestTTLCacheExpiresOnClock(t *testing.T) {
	clk := clock.NewFixed(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk)

	c.Set("tuition", 1000, time.Minute)
	if v, ok := c.Get("tuition"); !ok || v != 1000 {
		t.Fatalf("expected hit 1000, got %v %v", v, ok)
	}

	clk.Advance(time.Minute)
	if _, ok := c.Get("tuition"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 {
		t.Fatalf("expected expired entry evicted, got %d", c.Len())
	}
}

func TestTTLCacheWithoutTTLNeverExpires(t *testing.T) {
	clk := clock.NewFixed(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk)

	c.Set("transport", 500, 0)
	clk.Advance(365 * 24 * time.Hour)
	if _, ok := c.Get("transport"); !ok {
		t.Fatalf("expected entry without ttl to persist")
	}
}

func TestNoopCacheAlwaysMisses(t *testing.T) {
	var c Cache[string, int] = NoopCache[string, int]{}
	c.Set("a", 1, time.Hour)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected miss")
	}
}
