package rewind

import (
	"iter"
)

var _ iCursor = &Cursor{}

func newCursor(query QueryNode, state *State) *Cursor {
	c := &Cursor{
		query:   query,
		state:   state,
		watched: query.Components(),
	}
	state.Watch(c.watched...)
	return c
}

// Next advances to the next matching entity. The match set is taken when iteration starts;
// entities created during iteration are not visited.
func (c *Cursor) Next() bool {
	if !c.initialized {
		c.initialize()
	}
	if c.index < len(c.matched) {
		c.index++
		return true
	}
	c.Reset()
	return false
}

func (c *Cursor) Entities() iter.Seq2[int, Entity] {
	return func(yield func(int, Entity) bool) {
		c.initialize()
		for c.index < len(c.matched) {
			e := c.matched[c.index]
			c.index++
			if !c.state.IsAlive(e) {
				continue
			}
			if !yield(c.index-1, e) {
				c.Reset()
				return
			}
		}
		c.Reset()
	}
}

func (c *Cursor) initialize() {
	if c.initialized {
		return
	}
	c.matched = c.matched[:0]
	s := c.state
	if s.initialized {
		shared := s.Shared()
		n := int(s.entityData().nextID)
		for id := 0; id < n; id++ {
			if uint32(id) == shared.ID || !c.query.Evaluate(s.archetypes[id]) {
				continue
			}
			if e := s.EntityByID(uint32(id)); !e.IsEmpty() {
				c.matched = append(c.matched, e)
			}
		}
	}
	c.index = 0
	c.initialized = true
}

// CurrentEntity returns the entity Next stopped at.
func (c *Cursor) CurrentEntity() Entity {
	if c.index == 0 || c.index > len(c.matched) {
		return Entity{}
	}
	return c.matched[c.index-1]
}

func (c *Cursor) Reset() {
	c.index = 0
	c.matched = c.matched[:0]
	c.initialized = false
}

func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.initialize()
	}
	return len(c.matched)
}

// Close releases the cursor's interest in its components.
func (c *Cursor) Close() {
	c.state.Unwatch(c.watched...)
	c.watched = nil
	c.Reset()
}
