// Package stream implements the change-streaming engine: a background
// sampler that polls the debugger core at a fixed cadence, computes deltas
// against per-feed cursors, rate-limits emission, and buffers admitted
// change records in a bounded queue drained by consumer pull.
package stream

import (
	"fmt"
	"time"

	"github.com/mesen-mcp/backend/internal/core"
)

// Kind tags the variant carried by a Record.
type Kind string

const (
	KindTrace  Kind = "trace_delta"
	KindEvents Kind = "events_delta"
	KindMemory Kind = "memory_delta"
)

// FeedID names one streamed change category. Trace and events are
// singletons; memory feeds are keyed by region and address so overlapping
// watches keep independent snapshots.
type FeedID string

const (
	FeedTrace  FeedID = "trace"
	FeedEvents FeedID = "events"
)

// MemoryFeedID builds the feed key for a memory watch.
func MemoryFeedID(mt core.MemoryType, addr uint32) FeedID {
	return FeedID(fmt.Sprintf("memory:%s:0x%X", mt, addr))
}

// Record is one emitted change. Seq is assigned at enqueue time and is
// strictly increasing across all feeds; a gap in Seq between consecutive
// pulled records means the queue dropped that many records.
type Record struct {
	Kind      Kind      `json:"kind"`
	Seq       uint64    `json:"seq"`
	Timestamp time.Time `json:"timestamp"`

	Trace  *TraceDelta  `json:"trace,omitempty"`
	Events *EventsDelta `json:"events,omitempty"`
	Memory *MemoryDelta `json:"memory,omitempty"`
}

// TraceDelta carries trace lines appended to the core's execution history
// since the feed's previous cursor.
type TraceDelta struct {
	Entries []core.TraceEntry `json:"entries"`
}

// EventsDelta carries debug events appended since the previous cursor.
type EventsDelta struct {
	Events []core.DebugEvent `json:"events"`
}

// MemoryDelta carries the prior and current bytes of a watched range. It is
// only emitted when the two differ; intervening mutations between polls are
// coalesced into one first-prior vs. last-current pair.
type MemoryDelta struct {
	MemoryType core.MemoryType `json:"memory_type"`
	Address    uint32          `json:"address"`
	Length     int             `json:"length"`
	OldData    []byte          `json:"old_data"`
	NewData    []byte          `json:"new_data"`
}
