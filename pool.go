package rewind

import "github.com/google/uuid"

// StatePool recycles states of one schema. Every state it spawns belongs to the same world.
type StatePool struct {
	schema  *Schema
	worldID uuid.UUID
	free    []*State
	spawned int
}

func newStatePool(schema *Schema) *StatePool {
	return &StatePool{schema: schema, worldID: uuid.New()}
}

// Spawn returns an uninitialized state, reusing a recycled one when available.
func (p *StatePool) Spawn() *State {
	var s *State
	if n := len(p.free); n > 0 {
		s = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
	} else {
		s = newState(p.schema)
		s.pool = p
		p.spawned++
	}
	s.worldID = p.worldID
	return s
}

func (p *StatePool) put(s *State) {
	p.free = append(p.free, s)
}

// Len returns the number of idle states.
func (p *StatePool) Len() int {
	return len(p.free)
}

// Spawned returns how many states the pool has allocated in total.
func (p *StatePool) Spawned() int {
	return p.spawned
}

func (p *StatePool) WorldID() uuid.UUID {
	return p.worldID
}
