package rewind

import (
	"math/rand/v2"
	"sync/atomic"

	"github.com/TheBitDrifter/mask"
	"github.com/google/uuid"

	"github.com/TheBitDrifter/rewind/arena"
)

type stateRoot struct {
	table    tableData
	entities entityData
	shared   Entity
}

// State is one complete simulation state: entities, component registries, deferred tasks,
// tick and random generator. Everything except Go-side bookkeeping lives in a single arena, so
// a State can be cloned, pooled and serialized as a whole.
//
// A State is owned by one simulation goroutine. Only ComponentCount may be read concurrently.
type State struct {
	schema  *Schema
	arena   *arena.Arena
	root    arena.MemPtr
	worldID uuid.UUID

	tick  uint64
	pcg   *rand.PCG
	rng   *rand.Rand
	count atomic.Int64

	dirty      []AllTypeID
	archetypes []mask.Mask
	filters    filterStorage

	hooks Hooks
	views ViewInstantiator
	pool  *StatePool

	locked      bool
	initialized bool
}

func newState(schema *Schema) *State {
	pcg := rand.NewPCG(0, 0)
	s := &State{
		schema:  schema,
		arena:   arena.New(Config.arenaSize),
		worldID: uuid.New(),
		pcg:     pcg,
		rng:     rand.New(pcg),
		filters: newFilterStorage(),
	}
	s.Seed(0)
	return s
}

// Initialize allocates the registry table and entity storage. It is a no-op on an initialized
// state.
func (s *State) Initialize() {
	if s.initialized {
		return
	}
	a := s.arena
	capacity := Config.entityCapacity
	root := stateRoot{
		table:    newTableData(a, s.schema.Len()),
		entities: newEntityData(a, capacity),
	}
	s.root = arena.Allocate(a, root)
	s.archetypes = make([]mask.Mask, capacity)
	s.initialized = true

	shared := s.createEntity()
	arena.Ref[stateRoot](a, s.root).shared = shared

	logger().Debug().
		Str("world", s.worldID.String()).
		Int("capacity", capacity).
		Msg("state initialized")
}

// Initialized reports whether Initialize has run since the last Recycle.
func (s *State) Initialized() bool {
	return s.initialized
}

func (s *State) Schema() *Schema {
	return s.schema
}

// WorldID identifies the world this state belongs to. States spawned from one pool and states
// copied from each other share it.
func (s *State) WorldID() uuid.UUID {
	return s.worldID
}

func (s *State) Tick() uint64 {
	return s.tick
}

func (s *State) SetTick(tick uint64) {
	s.tick = tick
}

// Seed resets the deterministic random generator.
func (s *State) Seed(seed uint64) {
	s.pcg.Seed(seed, seed^0x9e3779b97f4a7c15)
}

// Random returns the state's deterministic generator. Its position is part of the state and is
// copied, hashed and serialized with it.
func (s *State) Random() *rand.Rand {
	return s.rng
}

// ComponentCount returns the number of live components. It is safe to call from any goroutine.
func (s *State) ComponentCount() int64 {
	return s.count.Load()
}

// Lock closes the simulation window: structural writes fail with OutOfStateError until Unlock.
func (s *State) Lock() {
	s.locked = true
}

func (s *State) Unlock() {
	s.locked = false
}

func (s *State) Locked() bool {
	return s.locked
}

// SetHooks installs the component presence observers.
func (s *State) SetHooks(hooks Hooks) {
	s.hooks = hooks
}

// SetViewInstantiator installs the collaborator notified when an entity gains a view it owns.
func (s *State) SetViewInstantiator(v ViewInstantiator) {
	s.views = v
}

// ArenaSize returns the bytes in use by the state's arena.
func (s *State) ArenaSize() int {
	return s.arena.Len()
}

// CopyFrom makes s a structural copy of other. Afterwards both states hold equal content and
// share nothing; writes to one never show in the other.
func (s *State) CopyFrom(other *State) error {
	if s == other {
		return nil
	}
	if s.schema != other.schema {
		return ErrForeignState
	}
	if !other.initialized {
		s.reset()
		return nil
	}
	s.Initialize()
	s.Merge()

	a, oa := s.arena, other.arena
	src := *arena.Ref[stateRoot](oa, other.root)
	dst := *arena.Ref[stateRoot](a, s.root)
	copyEntityData(a, &dst.entities, oa, src.entities)
	s.copyTable(&dst.table, other, src.table)
	dst.shared = src.shared
	*arena.Ref[stateRoot](a, s.root) = dst
	s.validateTable(s.EntityCapacity())
	s.Merge()

	s.worldID = other.worldID
	s.tick = other.tick
	s.copyRandom(other)
	s.count.Store(other.count.Load())
	s.copyArchetypes(other)

	logger().Debug().
		Uint64("tick", s.tick).
		Int("entities", s.EntityCount()).
		Int64("components", s.ComponentCount()).
		Msg("state copied")
	return nil
}

func (s *State) copyRandom(other *State) {
	data, err := other.pcg.MarshalBinary()
	if err != nil {
		panic(err)
	}
	if err := s.pcg.UnmarshalBinary(data); err != nil {
		panic(err)
	}
}

// Recycle releases every component, clears the state, its watches and hooks, and hands it back
// to its pool.
func (s *State) Recycle() {
	logger().Debug().
		Uint64("tick", s.tick).
		Int("entities", s.EntityCount()).
		Msg("state recycled")
	s.reset()
	s.filters.reset()
	s.hooks = Hooks{}
	s.views = nil
	if s.pool != nil {
		s.pool.put(s)
	}
}

func (s *State) reset() {
	if s.initialized {
		s.recycleTable()
	}
	s.arena.Reset()
	s.root = arena.Null
	s.initialized = false
	s.locked = false
	s.tick = 0
	s.Seed(0)
	s.count.Store(0)
	s.dirty = s.dirty[:0]
	s.archetypes = s.archetypes[:0]
}

// Validate grows every registry to cover capacity entity ids.
func (s *State) Validate(capacity int) {
	s.SetEntityCapacity(capacity)
}

// ValidateEntity grows every registry to cover e.
func (s *State) ValidateEntity(e Entity) {
	s.SetEntityCapacity(int(e.ID) + 1)
}

// Merge compacts registries grown since the last merge.
func (s *State) Merge() {
	if len(s.dirty) == 0 {
		return
	}
	for _, id := range s.dirty {
		if reg := s.registry(id); reg != arena.Null {
			s.schema.byAll[id].ops.merge(s.arena, reg)
		}
	}
	logger().Debug().Int("registries", len(s.dirty)).Msg("merged grown registries")
	s.dirty = s.dirty[:0]
}

// HasDataBit reports whether e carries the component with the given id.
func (s *State) HasDataBit(e Entity, id AllTypeID) bool {
	if !s.IsAlive(e) {
		return false
	}
	return s.present(e.ID, id)
}

// GetObject returns a copy of e's component with the given id.
func (s *State) GetObject(e Entity, id AllTypeID) (any, error) {
	info, err := s.schema.info(id)
	if err != nil {
		return nil, err
	}
	if !s.HasDataBit(e, id) {
		return nil, ComponentNotFoundError{Component: info, Entity: e}
	}
	return info.ops.getObject(s.arena, s.registry(id), e.ID), nil
}

// SetObject stores v, a T or *T, as e's component with the given id.
func (s *State) SetObject(e Entity, id AllTypeID, v any) error {
	info, err := s.schema.info(id)
	if err != nil {
		return err
	}
	if err := s.checkWrite("SetObject", e); err != nil {
		return err
	}
	return info.ops.setObject(s, e, v)
}

// RemoveObject removes e's component with the given id.
func (s *State) RemoveObject(e Entity, id AllTypeID) error {
	info, err := s.schema.info(id)
	if err != nil {
		return err
	}
	if err := s.checkWrite("RemoveObject", e); err != nil {
		return err
	}
	s.removeComponent(e, info, true)
	return nil
}

// RemoveAllData removes every component of e and drops its pending tasks. The version of e
// changes once.
func (s *State) RemoveAllData(e Entity) error {
	if err := s.checkWrite("RemoveAllData", e); err != nil {
		return err
	}
	s.removeAll(e)
	return nil
}

func (s *State) removeAll(e Entity) {
	removed := false
	for id := range s.schema.byAll {
		info := s.schema.byAll[id]
		if info == nil {
			continue
		}
		if s.removeComponent(e, info, false) {
			removed = true
		}
	}
	if removed {
		s.incrementVersion(e)
	}
	s.evictTasks(e)
}

// CopyEntity copies every component of from onto to. A view owned by from is not shared:
// to gets its own view of the same prefab instead.
func (s *State) CopyEntity(from, to Entity) error {
	if err := s.checkWrite("CopyEntity", to); err != nil {
		return err
	}
	if !s.IsAlive(from) {
		return EmptyEntityError{Entity: from}
	}
	view := s.schema.view.componentInfo
	for id := range s.schema.byAll {
		info := s.schema.byAll[id]
		if info == nil || !s.present(from.ID, info.allID) {
			continue
		}
		if info == view {
			v, _ := s.schema.view.Read(s, from)
			if v.Owner == from {
				if err := s.InstantiateView(to, v.PrefabID); err != nil {
					return err
				}
				continue
			}
		}
		reg := s.registry(info.allID)
		info.ops.copyEntity(s.arena, reg, from.ID, to.ID)
		s.markPresent(to, info, reg, s.expiry(reg, from.ID))
	}
	return nil
}
