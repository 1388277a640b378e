package rewind

import "github.com/rotisserie/eris"

// History keeps copies of the most recent states by tick for rollback. Storing a tick at or
// before the newest stored tick first discards the newer entries, since re-simulation
// invalidates them.
type History struct {
	pool  *StatePool
	ring  []*State
	head  int
	count int
}

func newHistory(pool *StatePool, size int) *History {
	return &History{pool: pool, ring: make([]*State, max(size, 1))}
}

func (h *History) at(i int) *State {
	return h.ring[(h.head+i)%len(h.ring)]
}

// Store records a copy of s under s.Tick().
func (h *History) Store(s *State) error {
	h.discardFrom(s.Tick())
	if h.count == len(h.ring) {
		h.ring[h.head].Recycle()
		h.ring[h.head] = nil
		h.head = (h.head + 1) % len(h.ring)
		h.count--
	}
	slot := (h.head + h.count) % len(h.ring)
	snap := h.pool.Spawn()
	if err := snap.CopyFrom(s); err != nil {
		snap.Recycle()
		return eris.Wrapf(err, "failed to store tick %d", s.Tick())
	}
	h.ring[slot] = snap
	h.count++
	return nil
}

// Rollback overwrites dst with the state stored for tick and drops every newer entry.
func (h *History) Rollback(dst *State, tick uint64) error {
	for i := 0; i < h.count; i++ {
		stored := h.at(i)
		if stored.Tick() != tick {
			continue
		}
		if err := dst.CopyFrom(stored); err != nil {
			return eris.Wrapf(err, "failed to roll back to tick %d", tick)
		}
		h.discardFrom(tick + 1)
		logger().Debug().
			Uint64("tick", tick).
			Int("stored", h.count).
			Msg("rolled back")
		return nil
	}
	return eris.Wrapf(ErrTickNotInHistory, "tick %d", tick)
}

// Has reports whether a state for tick is stored.
func (h *History) Has(tick uint64) bool {
	for i := 0; i < h.count; i++ {
		if h.at(i).Tick() == tick {
			return true
		}
	}
	return false
}

// Oldest returns the earliest stored tick.
func (h *History) Oldest() (uint64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.at(0).Tick(), true
}

// Latest returns the newest stored tick.
func (h *History) Latest() (uint64, bool) {
	if h.count == 0 {
		return 0, false
	}
	return h.at(h.count - 1).Tick(), true
}

func (h *History) Len() int {
	return h.count
}

// Discard recycles every stored state.
func (h *History) Discard() {
	h.discardFrom(0)
}

// discardFrom drops entries with a tick at or after tick. Entries are stored in tick order.
func (h *History) discardFrom(tick uint64) {
	for h.count > 0 {
		last := (h.head + h.count - 1) % len(h.ring)
		if h.ring[last].Tick() < tick {
			return
		}
		h.ring[last].Recycle()
		h.ring[last] = nil
		h.count--
	}
}
