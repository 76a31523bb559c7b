package stream

import "github.com/mesen-mcp/backend/internal/core"

// Subscription describes one active feed and its parameters. Trace and
// events are singleton feeds; memory feeds carry the watched range.
type Subscription struct {
	ID   FeedID `json:"id"`
	Kind Kind   `json:"kind"`

	// Trace only: per-poll line cap requested at subscribe time.
	MaxLines int `json:"max_lines,omitempty"`

	// Memory only.
	MemoryType core.MemoryType `json:"memory_type,omitempty"`
	Address    uint32          `json:"address,omitempty"`
	Length     int             `json:"length,omitempty"`
}

// Registry stores active subscriptions in insertion order so ticks visit
// feeds deterministically. Not safe for concurrent use on its own; the
// sampler serializes access.
type Registry struct {
	subs  map[FeedID]*Subscription
	order []FeedID
}

func newRegistry() *Registry {
	return &Registry{subs: make(map[FeedID]*Subscription)}
}

// Put creates the subscription or replaces an existing one's parameters in
// place, keeping its position in the iteration order.
func (r *Registry) Put(s *Subscription) {
	if _, ok := r.subs[s.ID]; !ok {
		r.order = append(r.order, s.ID)
	}
	r.subs[s.ID] = s
}

// Remove deletes a subscription, reporting whether it existed.
func (r *Registry) Remove(id FeedID) bool {
	if _, ok := r.subs[id]; !ok {
		return false
	}
	delete(r.subs, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *Registry) Get(id FeedID) (*Subscription, bool) {
	s, ok := r.subs[id]
	return s, ok
}

// List returns the active subscriptions in insertion order.
func (r *Registry) List() []*Subscription {
	out := make([]*Subscription, 0, len(r.subs))
	for _, id := range r.order {
		out = append(out, r.subs[id])
	}
	return out
}

// MemoryAt returns the IDs of all memory feeds watching addr, in any region.
func (r *Registry) MemoryAt(addr uint32) []FeedID {
	var out []FeedID
	for _, id := range r.order {
		s := r.subs[id]
		if s.Kind == KindMemory && s.Address == addr {
			out = append(out, id)
		}
	}
	return out
}

// Clear removes every subscription.
func (r *Registry) Clear() {
	r.subs = make(map[FeedID]*Subscription)
	r.order = nil
}
