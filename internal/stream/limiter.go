package stream

// Limiter tracks a per-feed emission budget refilled once per sampler tick,
// plus the backoff state driven by sustained truncation. A feed truncated on
// threshold consecutive polled ticks has its interval multiplier doubled (up
// to the cap); one clean polled tick resets it to 1. Ticks where the feed
// was skipped by backoff leave its truncation state untouched.
//
// Not safe for concurrent use on its own; the sampler serializes access.
type Limiter struct {
	budgets       map[FeedID]*budget
	maxBatch      int
	threshold     int
	factor        int
	maxMultiplier int
}

type budget struct {
	perTick     int
	remaining   int
	multiplier  int
	truncations int
	polled      bool
	truncated   bool
}

func NewLimiter(maxBatch, threshold, factor, maxMultiplier int) *Limiter {
	return &Limiter{
		budgets:       make(map[FeedID]*budget),
		maxBatch:      maxBatch,
		threshold:     threshold,
		factor:        factor,
		maxMultiplier: maxMultiplier,
	}
}

// Register creates or replaces the budget for a feed. perTick is the refill
// amount each tick.
func (l *Limiter) Register(id FeedID, perTick int) {
	l.budgets[id] = &budget{
		perTick:    perTick,
		remaining:  perTick,
		multiplier: 1,
	}
}

func (l *Limiter) Unregister(id FeedID) {
	delete(l.budgets, id)
}

// BeginTick refills every budget and clears per-tick markers.
func (l *Limiter) BeginTick() {
	for _, b := range l.budgets {
		b.remaining = b.perTick
		b.polled = false
		b.truncated = false
	}
}

// Grant admits up to want units for the feed this tick, bounded by the
// remaining budget and the global max batch size. Admitting less than want
// counts as a truncation for backoff purposes.
func (l *Limiter) Grant(id FeedID, want int) int {
	b, ok := l.budgets[id]
	if !ok {
		return 0
	}
	b.polled = true

	admitted := want
	if admitted > l.maxBatch {
		admitted = l.maxBatch
	}
	if admitted > b.remaining {
		admitted = b.remaining
	}
	if admitted < want {
		b.truncated = true
	}
	b.remaining -= admitted
	return admitted
}

// EndTick folds this tick's truncation markers into each polled feed's
// backoff state.
func (l *Limiter) EndTick() {
	for _, b := range l.budgets {
		if !b.polled {
			continue
		}
		if !b.truncated {
			b.truncations = 0
			b.multiplier = 1
			continue
		}
		b.truncations++
		if b.truncations >= l.threshold {
			b.multiplier *= l.factor
			if b.multiplier > l.maxMultiplier {
				b.multiplier = l.maxMultiplier
			}
		}
	}
}

// Multiplier reports the feed's current interval stretch factor.
func (l *Limiter) Multiplier(id FeedID) int {
	if b, ok := l.budgets[id]; ok {
		return b.multiplier
	}
	return 1
}

// Multipliers snapshots every feed's multiplier for status reporting.
func (l *Limiter) Multipliers() map[string]int {
	out := make(map[string]int, len(l.budgets))
	for id, b := range l.budgets {
		out[string(id)] = b.multiplier
	}
	return out
}

// Clear removes every budget.
func (l *Limiter) Clear() {
	l.budgets = make(map[FeedID]*budget)
}
