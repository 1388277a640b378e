package rewind

import "github.com/google/uuid"

// ViewComponent marks an entity as mirrored by a presentation object spawned from PrefabID.
// Owner is the entity the view was instantiated for.
type ViewComponent struct {
	PrefabID     uint32
	Owner        Entity
	CreationTick uint64
}

// ViewInfo identifies one spawned view. Presentation layers key their pools by it.
type ViewInfo struct {
	WorldID      uuid.UUID
	Entity       Entity
	PrefabID     uint32
	CreationTick uint64
}

// InstantiateView gives e a view of prefabID created at the current tick.
func (s *State) InstantiateView(e Entity, prefabID uint32) error {
	return s.schema.view.Set(s, e, ViewComponent{
		PrefabID:     prefabID,
		Owner:        e,
		CreationTick: s.tick,
	})
}

// ViewInfo returns the identity of e's view.
func (s *State) ViewInfo(e Entity) (ViewInfo, bool) {
	v, ok := s.schema.view.Read(s, e)
	if !ok {
		return ViewInfo{}, false
	}
	return ViewInfo{
		WorldID:      s.worldID,
		Entity:       v.Owner,
		PrefabID:     v.PrefabID,
		CreationTick: v.CreationTick,
	}, true
}

func (s *State) notifyView(e Entity) {
	if s.views == nil {
		return
	}
	info, ok := s.ViewInfo(e)
	if !ok || info.Entity != e {
		return
	}
	s.views.InstantiateView(info)
}
