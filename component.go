package rewind

// ComponentType is the typed handle of a registered component type. It implements Component
// and gives typed access to the component's registry in any state built from its schema.
//
// Pointers returned by Get, Lookup and GetFromCursor point into the state's arena and are
// invalidated by the next write to that state.
type ComponentType[T any] struct {
	*componentInfo
	typed *componentOps[T]
}

func (c ComponentType[T]) owned(s *State) error {
	if c.componentInfo == nil || c.schema != s.schema {
		return ComponentNotRegisteredError{Component: c.typeName()}
	}
	return nil
}

func (c ComponentType[T]) typeName() string {
	if c.componentInfo == nil {
		return "<unregistered>"
	}
	return c.name
}

// Set stores v on e with an infinite lifetime.
func (c ComponentType[T]) Set(s *State, e Entity, v T) error {
	return c.SetWithLifetime(s, e, v, Infinite)
}

// SetWithLifetime stores v on e. NotifyAllSystems and NotifyAllModules defer the write to the
// next tick or frame drain when e does not carry the component yet, and do nothing when it
// does. The other lifetimes write immediately; the Below lifetimes also schedule removal at
// the matching UseLifetimeStep.
func (c ComponentType[T]) SetWithLifetime(s *State, e Entity, v T, lifetime Lifetime) error {
	if err := c.owned(s); err != nil {
		return err
	}
	if err := s.checkWrite("Set", e); err != nil {
		return err
	}
	if !lifetime.deferred() {
		c.typed.set(s, e, v, lifetime)
		return nil
	}
	if s.present(e.ID, c.allID) {
		return nil
	}
	s.enqueue(task{
		entity:   e,
		allID:    c.allID,
		lifetime: lifetime.below(),
		payload:  c.typed.newPayload(s.arena, v),
	}, c.componentInfo)
	return nil
}

// Get returns e's component, adding a zero value first when e does not carry it.
func (c ComponentType[T]) Get(s *State, e Entity) (*T, error) {
	if err := c.owned(s); err != nil {
		return nil, err
	}
	if !s.present(e.ID, c.allID) || !s.IsAlive(e) {
		var zero T
		if err := c.Set(s, e, zero); err != nil {
			return nil, err
		}
	}
	return c.pointer(s, e), nil
}

// Lookup returns e's component or ComponentNotFoundError.
func (c ComponentType[T]) Lookup(s *State, e Entity) (*T, error) {
	if err := c.owned(s); err != nil {
		return nil, err
	}
	if !s.IsAlive(e) {
		return nil, EmptyEntityError{Entity: e}
	}
	if !s.present(e.ID, c.allID) {
		return nil, ComponentNotFoundError{Component: c, Entity: e}
	}
	return c.pointer(s, e), nil
}

func (c ComponentType[T]) pointer(s *State, e Entity) *T {
	if c.tag {
		return new(T)
	}
	return c.typed.slot(s.arena, s.registry(c.allID), e.ID)
}

// Read returns a copy of e's component and whether e carries it.
func (c ComponentType[T]) Read(s *State, e Entity) (T, bool) {
	var zero T
	if !c.Has(s, e) {
		return zero, false
	}
	return c.typed.read(s.arena, s.registry(c.allID), e.ID), true
}

func (c ComponentType[T]) Has(s *State, e Entity) bool {
	if c.owned(s) != nil || !s.IsAlive(e) {
		return false
	}
	return s.present(e.ID, c.allID)
}

// Remove deletes e's component. Removing an absent component is not an error.
func (c ComponentType[T]) Remove(s *State, e Entity) error {
	if err := c.owned(s); err != nil {
		return err
	}
	if err := s.checkWrite("Remove", e); err != nil {
		return err
	}
	s.removeComponent(e, c.componentInfo, true)
	return nil
}

func (c ComponentType[T]) SetShared(s *State, v T) error {
	s.Initialize()
	return c.Set(s, s.Shared(), v)
}

func (c ComponentType[T]) GetShared(s *State) (*T, error) {
	s.Initialize()
	return c.Get(s, s.Shared())
}

func (c ComponentType[T]) ReadShared(s *State) (T, bool) {
	return c.Read(s, s.Shared())
}

func (c ComponentType[T]) HasShared(s *State) bool {
	return c.Has(s, s.Shared())
}

func (c ComponentType[T]) RemoveShared(s *State) error {
	s.Initialize()
	return c.Remove(s, s.Shared())
}

// GetFromCursor returns the component of the cursor's current entity, or nil when the entity
// does not carry it.
func (c ComponentType[T]) GetFromCursor(cursor *Cursor) *T {
	p, err := c.Lookup(cursor.state, cursor.CurrentEntity())
	if err != nil {
		return nil
	}
	return p
}
