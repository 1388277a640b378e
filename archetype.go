package rewind

import (
	"github.com/TheBitDrifter/mask"
)

// filterStorage tracks which component bits any query watches. Archetype masks only carry
// watched bits.
type filterStorage struct {
	interest mask.Mask
	refs     map[AllTypeID]int
}

func newFilterStorage() filterStorage {
	return filterStorage{refs: make(map[AllTypeID]int)}
}

func (f *filterStorage) reset() {
	f.interest = mask.Mask{}
	clear(f.refs)
}

func bitMask(id AllTypeID) mask.Mask {
	var m mask.Mask
	m.Mark(uint32(id))
	return m
}

func hasBit(m mask.Mask, id AllTypeID) bool {
	return m.ContainsAll(bitMask(id))
}

// Watch starts maintaining archetype bits for components. Bits of entities that already carry
// a newly watched component are filled in.
func (s *State) Watch(components ...Component) {
	for _, c := range components {
		id := c.AllTypeID()
		s.filters.refs[id]++
		if s.filters.refs[id] > 1 {
			continue
		}
		s.filters.interest.Mark(uint32(id))
		s.backfill(id)
	}
}

// Unwatch releases interest taken by Watch. Bits nobody watches any more are cleared.
func (s *State) Unwatch(components ...Component) {
	for _, c := range components {
		id := c.AllTypeID()
		if s.filters.refs[id] == 0 {
			continue
		}
		s.filters.refs[id]--
		if s.filters.refs[id] > 0 {
			continue
		}
		delete(s.filters.refs, id)
		s.filters.interest.Unmark(uint32(id))
		for i := range s.archetypes {
			s.archetypes[i].Unmark(uint32(id))
		}
	}
}

// Watched reports whether archetype bits are maintained for c.
func (s *State) Watched(c Component) bool {
	return hasBit(s.filters.interest, c.AllTypeID())
}

// Interest returns the mask of watched component bits.
func (s *State) Interest() mask.Mask {
	return s.filters.interest
}

// Archetype returns the watched component bits e carries.
func (s *State) Archetype(e Entity) mask.Mask {
	if !s.IsAlive(e) {
		return mask.Mask{}
	}
	return s.archetypes[e.ID]
}

func (s *State) backfill(id AllTypeID) {
	if !s.initialized {
		return
	}
	n := int(s.entityData().nextID)
	for i := 0; i < n && i < len(s.archetypes); i++ {
		if s.present(uint32(i), id) {
			s.archetypes[i].Mark(uint32(id))
		}
	}
}

func (s *State) markArchetype(e Entity, id AllTypeID) {
	if hasBit(s.filters.interest, id) {
		s.archetypes[e.ID].Mark(uint32(id))
	}
}

func (s *State) unmarkArchetype(e Entity, id AllTypeID) {
	if hasBit(s.filters.interest, id) {
		s.archetypes[e.ID].Unmark(uint32(id))
	}
}

func (s *State) growArchetypes(n int) {
	if n > len(s.archetypes) {
		s.archetypes = append(s.archetypes, make([]mask.Mask, n-len(s.archetypes))...)
	}
}

// copyArchetypes takes other's archetype masks and adjusts them to the components s watches.
func (s *State) copyArchetypes(other *State) {
	s.archetypes = append(s.archetypes[:0], other.archetypes...)
	s.growArchetypes(s.EntityCapacity())
	for id := range other.filters.refs {
		if s.filters.refs[id] == 0 {
			for i := range s.archetypes {
				s.archetypes[i].Unmark(uint32(id))
			}
		}
	}
	for id := range s.filters.refs {
		if other.filters.refs[id] == 0 {
			s.backfill(id)
		}
	}
}

// rebuildArchetypes recomputes every mask from registry presence.
func (s *State) rebuildArchetypes() {
	s.archetypes = s.archetypes[:0]
	s.growArchetypes(s.EntityCapacity())
	for id, info := range s.schema.byAll {
		if info != nil && hasBit(s.filters.interest, AllTypeID(id)) {
			s.backfill(AllTypeID(id))
		}
	}
}
