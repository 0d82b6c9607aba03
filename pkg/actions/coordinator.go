package actions

import "sync"

// Kind is one mutation kind. Like and repost on the same entity are
// independent flights; a duplicate trigger of the same kind is dropped.
type Kind string

const (
	KindLike   Kind = "like"
	KindRepost Kind = "repost"
	KindSend   Kind = "send"
)

type flightKey struct {
	id   string
	kind Kind
}

// Coordinator tracks which (entity, kind) pairs have a mutation in flight.
// At most one pending flight per pair; the second trigger is rejected, never
// queued.
type Coordinator struct {
	mu      sync.Mutex
	pending map[flightKey]struct{}
}

func NewCoordinator() *Coordinator {
	return &Coordinator{pending: map[flightKey]struct{}{}}
}

// Begin transitions (id, kind) from idle to pending. Returns false when a
// flight is already pending, in which case the caller must skip.
func (c *Coordinator) Begin(id string, kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := flightKey{id, kind}
	if _, ok := c.pending[key]; ok {
		return false
	}
	c.pending[key] = struct{}{}
	return true
}

// End releases the flight. Idempotent: ending an idle pair is a no-op. Must
// run on every exit path out of a mutation attempt so a crashed flight can
// never wedge an entity in pending.
func (c *Coordinator) End(id string, kind Kind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, flightKey{id, kind})
}

// Pending reports whether a flight is in progress, for disabling controls.
func (c *Coordinator) Pending(id string, kind Kind) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pending[flightKey{id, kind}]
	return ok
}
