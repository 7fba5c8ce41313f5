package reuse

import "math"

// StaleDistance is reported for a key whose entry was invalidated: its next
// access is treated as infinitely far from the previous one.
const StaleDistance uint64 = math.MaxUint64

// Profiler computes sequential reuse distances for a stream of keyed access
// events. It owns one Arena and a recency index that maps every key to the
// node of its most recent occurrence. The index holds handles only; older
// nodes for the same key stay in the arena until Destroy. An invalidated key
// keeps its entry but is marked stale until its next access.
//
// The distance is the number of accesses (to any key) strictly between two
// consecutive accesses to the same key. It is not an LRU stack distance:
// repeated accesses to other keys are all counted.
//
// Thread-safety: NOT thread-safe. Must be driven from a single goroutine.
type Profiler[K comparable, P any] struct {
	arena *Arena[P]
	index map[K]NodeID
	stale map[K]struct{}
}

// NewProfiler creates a Profiler whose arena holds at most maxNodes nodes
// (maxNodes <= 0 means unbounded).
func NewProfiler[K comparable, P any](maxNodes int) *Profiler[K, P] {
	return &Profiler[K, P]{
		arena: NewArena[P](maxNodes),
		index: make(map[K]NodeID),
		stale: make(map[K]struct{}),
	}
}

// RecordAccess records one access to key. For a first touch it returns
// ok=false; otherwise it returns the reuse distance since the previous access,
// or StaleDistance if the key was invalidated since then.
// On ErrArenaFull the event is not recorded and the index is unchanged; the
// caller should drop the record and may continue with later events.
func (p *Profiler[K, P]) RecordAccess(key K, payload P) (distance uint64, ok bool, err error) {
	distance, seen := p.Distance(key)

	id, err := p.arena.Insert(payload)
	if err != nil {
		return 0, false, err
	}
	p.index[key] = id
	delete(p.stale, key)
	return distance, seen, nil
}

// Contains reports whether key has a recency entry, stale or not.
func (p *Profiler[K, P]) Contains(key K) bool {
	_, ok := p.index[key]
	return ok
}

// Distance returns the distance the next access to key would observe,
// without recording anything. ok is false when key has no entry; a stale
// entry reports StaleDistance.
func (p *Profiler[K, P]) Distance(key K) (uint64, bool) {
	id, ok := p.index[key]
	if !ok {
		return 0, false
	}
	if _, stale := p.stale[key]; stale {
		return StaleDistance, true
	}
	return p.arena.NextSequence() - p.arena.Sequence(id) - 1, true
}

// Invalidate marks the entry of key stale. The entry stays, so Contains
// still reports true, but the next access observes StaleDistance.
// Returns false if key had no entry or was already stale.
func (p *Profiler[K, P]) Invalidate(key K) bool {
	if _, ok := p.index[key]; !ok {
		return false
	}
	if _, stale := p.stale[key]; stale {
		return false
	}
	p.stale[key] = struct{}{}
	return true
}

// Full reports whether the next RecordAccess would fail with ErrArenaFull.
func (p *Profiler[K, P]) Full() bool {
	return p.arena.Full()
}

// Accesses returns the number of recorded accesses.
func (p *Profiler[K, P]) Accesses() uint64 {
	return p.arena.NextSequence()
}

// Keys returns the number of keys with a recency entry, stale ones included.
func (p *Profiler[K, P]) Keys() int {
	return len(p.index)
}

// Arena exposes the underlying arena for inspection.
func (p *Profiler[K, P]) Arena() *Arena[P] {
	return p.arena
}

// Destroy drops the index and releases every node of the arena.
// It must be called exactly once, as the last call on the Profiler.
func (p *Profiler[K, P]) Destroy() int {
	p.index = nil
	p.stale = nil
	return p.arena.Destroy()
}
