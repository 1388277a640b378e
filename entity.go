package rewind

import (
	"fmt"

	"github.com/TheBitDrifter/mask"

	"github.com/TheBitDrifter/rewind/arena"
)

// Entity is a handle to a row of component storage. ID indexes every per-entity array and
// Generation invalidates handles whose id has been recycled. The zero Entity is empty.
type Entity struct {
	ID         uint32
	Generation uint32
}

func (e Entity) IsEmpty() bool {
	return e.Generation == 0
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity(%d:%d)", e.ID, e.Generation)
}

type entityData struct {
	generations arena.Array[uint32]
	alive       arena.Array[bool]
	versions    arena.Array[uint64]
	freeIDs     arena.Stack[uint32]
	nextID      uint32
	count       uint32
}

func newEntityData(a *arena.Arena, capacity int) entityData {
	return entityData{
		generations: arena.NewArray[uint32](a, capacity),
		alive:       arena.NewArray[bool](a, capacity),
		versions:    arena.NewArray[uint64](a, capacity),
		freeIDs:     arena.NewStack[uint32](a, 0),
	}
}

func (s *State) entityData() entityData {
	return arena.Ref[stateRoot](s.arena, s.root).entities
}

func (s *State) setEntityData(ed entityData) {
	arena.Ref[stateRoot](s.arena, s.root).entities = ed
}

// CreateEntity returns a new live entity, reusing the most recently freed id when one exists.
func (s *State) CreateEntity() (Entity, error) {
	if Config.stateChecks && s.locked {
		return Entity{}, OutOfStateError{Op: "CreateEntity"}
	}
	s.Initialize()
	return s.createEntity(), nil
}

// NewEntities creates n entities carrying zero values of components.
func (s *State) NewEntities(n int, components ...Component) ([]Entity, error) {
	for _, c := range components {
		if c.info().schema != s.schema {
			return nil, ComponentNotRegisteredError{Component: c.TypeName()}
		}
	}
	entities := make([]Entity, 0, n)
	for i := 0; i < n; i++ {
		e, err := s.CreateEntity()
		if err != nil {
			return entities, err
		}
		for _, c := range components {
			c.info().ops.setDefault(s, e)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (s *State) createEntity() Entity {
	a := s.arena
	ed := s.entityData()
	id, ok := ed.freeIDs.Pop(a)
	if !ok {
		id = ed.nextID
		ed.nextID++
	}
	grown := 0
	if int(id) >= ed.generations.Len() {
		grown = max(2*ed.generations.Len(), int(id)+1)
		ed.generations.Resize(a, grown)
		ed.alive.Resize(a, grown)
		ed.versions.Resize(a, grown)
	}
	gen := ed.generations.Read(a, int(id))
	if gen == 0 {
		gen = 1
		ed.generations.Set(a, int(id), gen)
	}
	ed.alive.Set(a, int(id), true)
	*ed.versions.Get(a, int(id))++
	ed.count++
	s.setEntityData(ed)
	if grown > 0 {
		s.growArchetypes(grown)
		s.validateTable(grown)
	}
	return Entity{ID: id, Generation: gen}
}

// DestroyEntity removes every component of e, drops its pending tasks and frees its id.
func (s *State) DestroyEntity(e Entity) error {
	if err := s.checkWrite("DestroyEntity", e); err != nil {
		return err
	}
	if e == s.Shared() {
		return EmptyEntityError{Entity: e}
	}
	s.removeAll(e)
	a := s.arena
	ed := s.entityData()
	gen := ed.generations.Read(a, int(e.ID)) + 1
	if gen == 0 {
		gen = 1
	}
	ed.generations.Set(a, int(e.ID), gen)
	ed.alive.Set(a, int(e.ID), false)
	*ed.versions.Get(a, int(e.ID))++
	ed.freeIDs.Push(a, e.ID)
	ed.count--
	s.setEntityData(ed)
	s.archetypes[e.ID] = mask.Mask{}
	return nil
}

// IsAlive reports whether e's generation matches the live generation of its id.
func (s *State) IsAlive(e Entity) bool {
	if !s.initialized || e.Generation == 0 {
		return false
	}
	ref := arena.Ref[stateRoot](s.arena, s.root)
	if int(e.ID) >= int(ref.entities.nextID) {
		return false
	}
	return ref.entities.alive.Read(s.arena, int(e.ID)) &&
		ref.entities.generations.Read(s.arena, int(e.ID)) == e.Generation
}

// EntityByID returns the live entity holding id, or the empty entity.
func (s *State) EntityByID(id uint32) Entity {
	if !s.initialized {
		return Entity{}
	}
	ref := arena.Ref[stateRoot](s.arena, s.root)
	if id >= ref.entities.nextID || !ref.entities.alive.Read(s.arena, int(id)) {
		return Entity{}
	}
	return Entity{ID: id, Generation: ref.entities.generations.Read(s.arena, int(id))}
}

// Version returns the modification counter of e. It changes whenever e gains, loses or
// overwrites a component.
func (s *State) Version(e Entity) uint64 {
	if !s.IsAlive(e) {
		return 0
	}
	return arena.Ref[stateRoot](s.arena, s.root).entities.versions.Read(s.arena, int(e.ID))
}

func (s *State) incrementVersion(e Entity) {
	*arena.Ref[stateRoot](s.arena, s.root).entities.versions.Get(s.arena, int(e.ID))++
}

// EntityCount returns the number of live entities, the shared entity excluded.
func (s *State) EntityCount() int {
	if !s.initialized {
		return 0
	}
	return int(arena.Ref[stateRoot](s.arena, s.root).entities.count) - 1
}

// EntityCapacity returns how many ids every registry currently covers.
func (s *State) EntityCapacity() int {
	if !s.initialized {
		return 0
	}
	return arena.Ref[stateRoot](s.arena, s.root).entities.generations.Len()
}

// SetEntityCapacity validates storage for n entities up front.
func (s *State) SetEntityCapacity(n int) {
	s.Initialize()
	if n <= s.EntityCapacity() {
		return
	}
	a := s.arena
	ed := s.entityData()
	ed.generations.Resize(a, n)
	ed.alive.Resize(a, n)
	ed.versions.Resize(a, n)
	s.setEntityData(ed)
	s.growArchetypes(n)
	s.validateTable(n)
	s.Merge()
}

// Shared returns the state-wide singleton entity.
func (s *State) Shared() Entity {
	if !s.initialized {
		return Entity{}
	}
	return arena.Ref[stateRoot](s.arena, s.root).shared
}

func (s *State) checkWrite(op string, e Entity) error {
	if Config.stateChecks && s.locked {
		return OutOfStateError{Op: op}
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	if Config.entityChecks && !s.IsAlive(e) {
		return EmptyEntityError{Entity: e}
	}
	return nil
}

func copyEntityData(dstA *arena.Arena, dst *entityData, srcA *arena.Arena, src entityData) {
	arena.CopyArray(dstA, &dst.generations, srcA, src.generations, nil)
	arena.CopyArray(dstA, &dst.alive, srcA, src.alive, nil)
	arena.CopyArray(dstA, &dst.versions, srcA, src.versions, nil)
	arena.CopyStack(dstA, &dst.freeIDs, srcA, src.freeIDs)
	dst.nextID = src.nextID
	dst.count = src.count
}
