package stream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mesen-mcp/backend/internal/config"
	"github.com/mesen-mcp/backend/internal/core"
)

// Stats is the snapshot returned by streaming status queries.
type Stats struct {
	Running       bool           `json:"running"`
	TotalSamples  uint64         `json:"total_samples"`
	TotalRecords  uint64         `json:"total_records"`
	TotalDropped  uint64         `json:"total_dropped"`
	QueueSize     int            `json:"queue_size"`
	Backoff       map[string]int `json:"backoff"`
	Subscriptions []Subscription `json:"subscriptions"`
}

// Sampler owns the streaming state machine. While running, a single ticker
// goroutine polls every active feed that is due, passes deltas through the
// limiter, and appends admitted records to the queue. Consumers drain the
// queue via GetChanges; an optional notify tap observes admitted records as
// they are enqueued.
type Sampler struct {
	cfg   config.StreamingConfig
	guard *core.Guard
	queue *Queue

	mu           sync.Mutex
	subs         *Registry
	cursors      *Cursors
	limiter      *Limiter
	nextPoll     map[FeedID]time.Time
	running      bool
	cancel       context.CancelFunc
	done         chan struct{}
	totalSamples uint64
	totalRecords uint64

	notify func([]Record)
}

func New(cfg config.StreamingConfig, guard *core.Guard) *Sampler {
	return &Sampler{
		cfg:      cfg,
		guard:    guard,
		queue:    NewQueue(cfg.MaxQueueSize),
		subs:     newRegistry(),
		cursors:  newCursors(),
		limiter:  NewLimiter(cfg.MaxBatchPerPoll, cfg.BackoffThreshold, cfg.BackoffFactor, cfg.BackoffMaxMultiplier),
		nextPoll: make(map[FeedID]time.Time),
	}
}

// SetNotify installs a tap called with each tick's admitted records, after
// they are enqueued. Must be set before Start.
func (s *Sampler) SetNotify(fn func([]Record)) {
	s.notify = fn
}

// Start launches the tick loop. Starting while already running is a no-op.
func (s *Sampler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(ctx)
	log.Printf("[stream] sampler started (interval=%s)", s.cfg.Interval())
}

// Stop halts the tick loop, waits for an in-flight tick to finish, and
// clears all subscriptions, cursors, and buffered records. Stopping while
// already stopped is a no-op.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.subs.Clear()
	s.cursors.Clear()
	s.limiter.Clear()
	s.nextPoll = make(map[FeedID]time.Time)
	s.mu.Unlock()
	s.queue.Reset()
	log.Printf("[stream] sampler stopped")
}

// Running reports whether the tick loop is active.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Sampler) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(time.Now())
		}
	}
}

// SubscribeTrace enables (or re-parameterizes) the trace feed. maxLines
// caps entries per poll; zero means the global batch cap.
func (s *Sampler) SubscribeTrace(maxLines int) error {
	if maxLines < 0 {
		return fmt.Errorf("%w: max_lines_per_poll %d", core.ErrInvalidParam, maxLines)
	}
	if maxLines == 0 || maxLines > s.cfg.MaxBatchPerPoll {
		maxLines = s.cfg.MaxBatchPerPoll
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.Put(&Subscription{ID: FeedTrace, Kind: KindTrace, MaxLines: maxLines})
	s.limiter.Register(FeedTrace, s.cfg.PerTick(s.cfg.MaxTraceLinesPerSecond))
	s.cursors.Drop(FeedTrace)
	delete(s.nextPoll, FeedTrace)
	return nil
}

// SubscribeEvents enables the debug event feed.
func (s *Sampler) SubscribeEvents() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.Put(&Subscription{ID: FeedEvents, Kind: KindEvents})
	s.limiter.Register(FeedEvents, s.cfg.PerTick(s.cfg.MaxEventsPerSecond))
	s.cursors.Drop(FeedEvents)
	delete(s.nextPoll, FeedEvents)
	return nil
}

// SubscribeMemory adds or replaces a watch on length bytes at addr in the
// given region. Replacing discards the prior snapshot so the next poll
// establishes a fresh baseline.
func (s *Sampler) SubscribeMemory(mt core.MemoryType, addr uint32, length int) error {
	if length < 1 || length > s.cfg.MaxWatchLength {
		return fmt.Errorf("%w: watch length %d (1-%d)", core.ErrInvalidParam, length, s.cfg.MaxWatchLength)
	}
	err := s.guard.Do(func(c core.Core) error {
		size, err := c.MemorySize(mt)
		if err != nil {
			return err
		}
		if uint64(addr)+uint64(length) > uint64(size) {
			return fmt.Errorf("%w: %s 0x%X+%d exceeds size 0x%X", core.ErrOutOfBounds, mt, addr, length, size)
		}
		return nil
	})
	if err != nil {
		return err
	}

	id := MemoryFeedID(mt, addr)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs.Put(&Subscription{ID: id, Kind: KindMemory, MemoryType: mt, Address: addr, Length: length})
	s.limiter.Register(id, s.cfg.PerTick(s.cfg.MaxMemoryChangesPerSec))
	s.cursors.Drop(id)
	delete(s.nextPoll, id)
	return nil
}

// UnsubscribeMemory removes every memory watch at addr across all regions,
// returning how many were removed. Absent watches are a no-op.
func (s *Sampler) UnsubscribeMemory(addr uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.subs.MemoryAt(addr)
	for _, id := range ids {
		s.subs.Remove(id)
		s.limiter.Unregister(id)
		s.cursors.Drop(id)
		delete(s.nextPoll, id)
	}
	return len(ids)
}

// GetChanges drains up to max records from the queue, oldest first. max
// values outside 1-1000 are clamped; zero means the default of 100.
func (s *Sampler) GetChanges(max int) []Record {
	if max <= 0 {
		max = 100
	}
	if max > 1000 {
		max = 1000
	}
	return s.queue.Drain(max)
}

// Stats snapshots the streaming state for status reporting.
func (s *Sampler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	subs := make([]Subscription, 0, len(s.subs.order))
	for _, sub := range s.subs.List() {
		subs = append(subs, *sub)
	}
	return Stats{
		Running:       s.running,
		TotalSamples:  s.totalSamples,
		TotalRecords:  s.totalRecords,
		TotalDropped:  s.queue.Dropped(),
		QueueSize:     s.queue.Len(),
		Backoff:       s.limiter.Multipliers(),
		Subscriptions: subs,
	}
}

// tick polls every feed that is due at now. A failed feed never blocks the
// others or subsequent ticks.
func (s *Sampler) tick(now time.Time) {
	s.mu.Lock()
	s.totalSamples++
	s.limiter.BeginTick()

	var emitted []Record
	polled := make([]FeedID, 0, len(s.subs.order))
	for _, sub := range s.subs.List() {
		if next, ok := s.nextPoll[sub.ID]; ok && now.Before(next) {
			continue
		}
		polled = append(polled, sub.ID)

		var rec *Record
		var err error
		switch sub.Kind {
		case KindTrace, KindEvents:
			rec, err = s.pollHistory(sub, now)
		case KindMemory:
			rec, err = s.pollMemory(sub, now)
		}
		switch {
		case err == nil:
		case errors.Is(err, core.ErrContention):
			log.Printf("[stream] %s: core busy, skipping poll", sub.ID)
			continue
		case errors.Is(err, core.ErrUnavailable):
			continue
		default:
			log.Printf("[stream] %s: poll error: %v", sub.ID, err)
			continue
		}
		if rec != nil {
			stored := s.queue.Append(*rec)
			emitted = append(emitted, stored)
			s.totalRecords++
		}
	}

	s.limiter.EndTick()
	interval := s.cfg.Interval()
	for _, id := range polled {
		s.nextPoll[id] = now.Add(interval * time.Duration(s.limiter.Multiplier(id)))
	}
	notify := s.notify
	s.mu.Unlock()

	if notify != nil && len(emitted) > 0 {
		notify(emitted)
	}
}

// pollHistory advances an offset cursor over an append-only history. A
// history shorter than the cursor means the core was reset; the cursor
// rewinds to zero with no backfill.
func (s *Sampler) pollHistory(sub *Subscription, now time.Time) (*Record, error) {
	var rec *Record
	err := s.guard.Do(func(c core.Core) error {
		if !c.DebuggerRunning() {
			return core.ErrUnavailable
		}
		length, err := historyLen(c, sub.Kind)
		if err != nil {
			return err
		}
		cursor := s.cursors.Offset(sub.ID)
		if cursor > length {
			log.Printf("[stream] %s: history shrank (%d < cursor %d), resetting cursor", sub.ID, length, cursor)
			s.cursors.SetOffset(sub.ID, 0)
			return nil
		}

		want := int(length - cursor)
		if want == 0 {
			s.limiter.Grant(sub.ID, 0)
			return nil
		}
		if sub.Kind == KindTrace && want > sub.MaxLines {
			want = sub.MaxLines
		}
		admitted := s.limiter.Grant(sub.ID, want)
		if admitted == 0 {
			return nil
		}

		switch sub.Kind {
		case KindTrace:
			entries, err := c.TraceSlice(cursor, admitted)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return nil
			}
			s.cursors.SetOffset(sub.ID, cursor+uint64(len(entries)))
			rec = &Record{Kind: KindTrace, Timestamp: now, Trace: &TraceDelta{Entries: entries}}
		case KindEvents:
			events, err := c.EventsSlice(cursor, admitted)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return nil
			}
			s.cursors.SetOffset(sub.ID, cursor+uint64(len(events)))
			rec = &Record{Kind: KindEvents, Timestamp: now, Events: &EventsDelta{Events: events}}
		}
		return nil
	})
	return rec, err
}

func historyLen(c core.Core, k Kind) (uint64, error) {
	if k == KindTrace {
		return c.TraceLen()
	}
	return c.EventsLen()
}

// pollMemory diffs the watched range against its stored snapshot. The first
// poll only establishes the baseline. When the limiter denies the delta,
// the snapshot is kept so the change surfaces on a later tick instead of
// being lost.
func (s *Sampler) pollMemory(sub *Subscription, now time.Time) (*Record, error) {
	var rec *Record
	err := s.guard.Do(func(c core.Core) error {
		if !c.DebuggerRunning() {
			return core.ErrUnavailable
		}
		cur, err := c.ReadMemory(sub.MemoryType, sub.Address, sub.Length)
		if err != nil {
			return err
		}
		prev, ok := s.cursors.Snapshot(sub.ID)
		if !ok {
			s.cursors.SetSnapshot(sub.ID, cur)
			s.limiter.Grant(sub.ID, 0)
			return nil
		}
		if bytes.Equal(prev, cur) {
			s.limiter.Grant(sub.ID, 0)
			return nil
		}
		if s.limiter.Grant(sub.ID, 1) == 0 {
			return nil
		}
		s.cursors.SetSnapshot(sub.ID, cur)
		rec = &Record{
			Kind:      KindMemory,
			Timestamp: now,
			Memory: &MemoryDelta{
				MemoryType: sub.MemoryType,
				Address:    sub.Address,
				Length:     sub.Length,
				OldData:    prev,
				NewData:    cur,
			},
		}
		return nil
	})
	return rec, err
}
