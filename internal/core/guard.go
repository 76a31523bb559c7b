package core

import (
	"fmt"
	"time"
)

// Guard serializes all access to a Core behind a single slot with a bounded
// acquisition wait. A caller that cannot get the slot within the timeout
// fails with ErrContention instead of blocking: a stalled native call must
// not freeze the whole server, and the sampler and a control operation must
// never observe the core mid-operation.
type Guard struct {
	target  Core
	slot    chan struct{}
	timeout time.Duration
}

// NewGuard wraps target with a serialized gate. timeout bounds how long any
// caller waits for the slot.
func NewGuard(target Core, timeout time.Duration) *Guard {
	g := &Guard{
		target:  target,
		slot:    make(chan struct{}, 1),
		timeout: timeout,
	}
	g.slot <- struct{}{}
	return g
}

// Do runs fn with exclusive access to the core. Returns ErrContention if the
// slot is not free within the guard's timeout; otherwise returns fn's error.
func (g *Guard) Do(fn func(Core) error) error {
	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case <-g.slot:
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrContention, g.timeout)
	}
	defer func() { g.slot <- struct{}{} }()

	return fn(g.target)
}

// TryDo runs fn only if the slot is immediately free. Used by callers that
// prefer skipping over waiting.
func (g *Guard) TryDo(fn func(Core) error) error {
	select {
	case <-g.slot:
	default:
		return ErrContention
	}
	defer func() { g.slot <- struct{}{} }()

	return fn(g.target)
}

// Timeout reports the configured acquisition timeout.
func (g *Guard) Timeout() time.Duration {
	return g.timeout
}
