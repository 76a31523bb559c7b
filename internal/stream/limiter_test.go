package stream

import "testing"

func TestLimiterGrantCapsAtBudget(t *testing.T) {
	l := NewLimiter(500, 3, 2, 8)
	l.Register(FeedTrace, 50)
	l.BeginTick()

	if got := l.Grant(FeedTrace, 200); got != 50 {
		t.Errorf("Grant(200) = %d, want 50", got)
	}
	// budget exhausted for the rest of the tick
	if got := l.Grant(FeedTrace, 10); got != 0 {
		t.Errorf("second Grant = %d, want 0", got)
	}

	l.BeginTick()
	if got := l.Grant(FeedTrace, 10); got != 10 {
		t.Errorf("Grant after refill = %d, want 10", got)
	}
}

func TestLimiterMaxBatch(t *testing.T) {
	l := NewLimiter(25, 3, 2, 8)
	l.Register(FeedTrace, 100)
	l.BeginTick()

	if got := l.Grant(FeedTrace, 80); got != 25 {
		t.Errorf("Grant(80) = %d, want max batch 25", got)
	}
}

func TestLimiterUnknownFeed(t *testing.T) {
	l := NewLimiter(500, 3, 2, 8)
	if got := l.Grant("nope", 5); got != 0 {
		t.Errorf("Grant for unregistered feed = %d, want 0", got)
	}
}

func TestLimiterBackoff(t *testing.T) {
	l := NewLimiter(500, 2, 2, 8)
	l.Register(FeedTrace, 10)

	truncatedTick := func() {
		l.BeginTick()
		l.Grant(FeedTrace, 100)
		l.EndTick()
	}

	truncatedTick()
	if got := l.Multiplier(FeedTrace); got != 1 {
		t.Errorf("multiplier after 1 truncation = %d, want 1", got)
	}
	truncatedTick()
	if got := l.Multiplier(FeedTrace); got != 2 {
		t.Errorf("multiplier after 2 truncations = %d, want 2", got)
	}
	truncatedTick()
	truncatedTick()
	if got := l.Multiplier(FeedTrace); got != 8 {
		t.Errorf("multiplier after 4 truncations = %d, want 8", got)
	}
	truncatedTick()
	if got := l.Multiplier(FeedTrace); got != 8 {
		t.Errorf("multiplier past cap = %d, want 8", got)
	}

	// one clean polled tick resets
	l.BeginTick()
	l.Grant(FeedTrace, 5)
	l.EndTick()
	if got := l.Multiplier(FeedTrace); got != 1 {
		t.Errorf("multiplier after clean tick = %d, want 1", got)
	}
}

func TestLimiterSkippedTickKeepsBackoff(t *testing.T) {
	l := NewLimiter(500, 1, 2, 8)
	l.Register(FeedTrace, 10)

	l.BeginTick()
	l.Grant(FeedTrace, 100)
	l.EndTick()
	if got := l.Multiplier(FeedTrace); got != 2 {
		t.Fatalf("multiplier = %d, want 2", got)
	}

	// feed not polled this tick (backed off): state must not reset
	l.BeginTick()
	l.EndTick()
	if got := l.Multiplier(FeedTrace); got != 2 {
		t.Errorf("multiplier after skipped tick = %d, want 2", got)
	}
}
