package stream

// Cursors holds per-feed positions: integer offsets into the core's
// append-only trace/event histories, and last-observed byte snapshots for
// memory watches. Not safe for concurrent use on its own; the sampler
// serializes all access under its lock.
type Cursors struct {
	offsets   map[FeedID]uint64
	snapshots map[FeedID][]byte
}

func newCursors() *Cursors {
	return &Cursors{
		offsets:   make(map[FeedID]uint64),
		snapshots: make(map[FeedID][]byte),
	}
}

// Offset returns the history offset for a trace/events feed, zero if unset.
func (c *Cursors) Offset(id FeedID) uint64 {
	return c.offsets[id]
}

func (c *Cursors) SetOffset(id FeedID, v uint64) {
	c.offsets[id] = v
}

// Snapshot returns the stored byte baseline for a memory feed. ok is false
// before the first poll establishes one.
func (c *Cursors) Snapshot(id FeedID) (data []byte, ok bool) {
	data, ok = c.snapshots[id]
	return data, ok
}

func (c *Cursors) SetSnapshot(id FeedID, data []byte) {
	c.snapshots[id] = data
}

// Drop discards all cursor state for a feed. Re-subscribing afterwards
// starts from a fresh baseline.
func (c *Cursors) Drop(id FeedID) {
	delete(c.offsets, id)
	delete(c.snapshots, id)
}

// Clear discards every cursor.
func (c *Cursors) Clear() {
	c.offsets = make(map[FeedID]uint64)
	c.snapshots = make(map[FeedID][]byte)
}
