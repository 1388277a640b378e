package rewind

import (
	"github.com/TheBitDrifter/rewind/arena"
)

// registryData is the type independent part of a component registry. values points to the
// typed storage and is null for tags.
type registryData struct {
	allID           AllTypeID
	states          arena.Array[componentState]
	lifetimeIndexes arena.List[uint32]
	values          arena.MemPtr
}

type tableData struct {
	registries arena.Array[arena.MemPtr]
	nextTick   arena.List[task]
	nextFrame  arena.List[task]
	pending    arena.HashSet[taskKey]
}

func newTableData(a *arena.Arena, types int) tableData {
	return tableData{
		registries: arena.NewArray[arena.MemPtr](a, types),
		nextTick:   arena.NewList[task](a, 0),
		nextFrame:  arena.NewList[task](a, 0),
		pending:    arena.NewHashSet[taskKey](a, 0),
	}
}

func (s *State) tableData() tableData {
	return arena.Ref[stateRoot](s.arena, s.root).table
}

func (s *State) setTableData(td tableData) {
	arena.Ref[stateRoot](s.arena, s.root).table = td
}

// registry returns the registry handle for id, or Null when no entity has used the type yet.
func (s *State) registry(id AllTypeID) arena.MemPtr {
	if !s.initialized {
		return arena.Null
	}
	regs := arena.Ref[stateRoot](s.arena, s.root).table.registries
	if int(id) >= regs.Len() {
		return arena.Null
	}
	return regs.Read(s.arena, int(id))
}

func (s *State) ensureRegistry(info *componentInfo) arena.MemPtr {
	if reg := s.registry(info.allID); reg != arena.Null {
		return reg
	}
	a := s.arena
	reg := info.ops.create(a, info.allID, s.EntityCapacity())
	td := s.tableData()
	td.registries.Resize(a, s.schema.Len())
	td.registries.Set(a, int(info.allID), reg)
	s.setTableData(td)
	return reg
}

func (s *State) present(id uint32, component AllTypeID) bool {
	reg := s.registry(component)
	if reg == arena.Null {
		return false
	}
	states := arena.Ref[registryData](s.arena, reg).states
	return int(id) < states.Len() && states.Read(s.arena, int(id)).present
}

func (s *State) expiry(reg arena.MemPtr, id uint32) Lifetime {
	return arena.Ref[registryData](s.arena, reg).states.Read(s.arena, int(id)).expire
}

// markPresent records that e carries the component after its value has been written.
func (s *State) markPresent(e Entity, info *componentInfo, reg arena.MemPtr, expire Lifetime) {
	a := s.arena
	st := arena.Ref[registryData](a, reg).states.Get(a, int(e.ID))
	prev := *st
	*st = componentState{present: true, expire: expire}
	if expire != Infinite && !(prev.present && prev.expire == expire) {
		r := *arena.Ref[registryData](a, reg)
		r.lifetimeIndexes.Add(a, e.ID)
		*arena.Ref[registryData](a, reg) = r
	}
	s.incrementVersion(e)
	if prev.present {
		return
	}
	s.count.Add(1)
	s.markArchetype(e, info.allID)
	if s.hooks.OnAdd != nil {
		s.hooks.OnAdd(e, info)
	}
	if info == s.schema.view.componentInfo {
		s.notifyView(e)
	}
}

// removeComponent clears e's value and presence. It reports whether the component was present.
func (s *State) removeComponent(e Entity, info *componentInfo, bump bool) bool {
	reg := s.registry(info.allID)
	if reg == arena.Null || !s.present(e.ID, info.allID) {
		return false
	}
	a := s.arena
	info.ops.clearValue(a, reg, e.ID)
	arena.Ref[registryData](a, reg).states.Set(a, int(e.ID), componentState{})
	if bump {
		s.incrementVersion(e)
	}
	s.count.Add(-1)
	s.unmarkArchetype(e, info.allID)
	if s.hooks.OnRemove != nil {
		s.hooks.OnRemove(e, info)
	}
	return true
}

// validateTable grows every created registry to capacity and remembers the ones that grew.
func (s *State) validateTable(capacity int) {
	for id, info := range s.schema.byAll {
		if info == nil {
			continue
		}
		reg := s.registry(AllTypeID(id))
		if reg == arena.Null {
			continue
		}
		if info.ops.validate(s.arena, reg, capacity) {
			s.dirty = append(s.dirty, AllTypeID(id))
		}
	}
}

// UseLifetimeStep removes every component whose lifetime expires at step. Entries indexed for
// other steps stay indexed.
func (s *State) UseLifetimeStep(step Lifetime) {
	if !s.initialized {
		return
	}
	a := s.arena
	for id, info := range s.schema.byAll {
		if info == nil {
			continue
		}
		reg := s.registry(AllTypeID(id))
		if reg == arena.Null {
			continue
		}
		n := arena.Ref[registryData](a, reg).lifetimeIndexes.Count()
		kept := 0
		for i := 0; i < n; i++ {
			idx := arena.Ref[registryData](a, reg).lifetimeIndexes
			entityID := idx.Read(a, i)
			st := arena.Ref[registryData](a, reg).states.Read(a, int(entityID))
			switch {
			case !st.present || st.expire == Infinite:
			case st.expire == step:
				if e := s.EntityByID(entityID); !e.IsEmpty() {
					s.removeComponent(e, info, true)
				}
			default:
				idx.Set(a, kept, entityID)
				kept++
			}
		}
		// entries added by hooks during the sweep follow the swept range
		r := *arena.Ref[registryData](a, reg)
		for i := n; i < r.lifetimeIndexes.Count(); i++ {
			r.lifetimeIndexes.Set(a, kept, r.lifetimeIndexes.Read(a, i))
			kept++
		}
		r.lifetimeIndexes.Truncate(a, kept)
		*arena.Ref[registryData](a, reg) = r
	}
}

func (s *State) copyTable(dst *tableData, other *State, src tableData) {
	a, oa := s.arena, other.arena
	dst.registries.Resize(a, src.registries.Len())
	for id := 0; id < dst.registries.Len(); id++ {
		info := s.schema.byAll[id]
		from := arena.Null
		if id < src.registries.Len() {
			from = src.registries.Read(oa, id)
		}
		to := dst.registries.Read(a, id)
		if from == arena.Null {
			if to != arena.Null {
				info.ops.clear(a, to)
			}
			continue
		}
		dst.registries.Set(a, id, info.ops.copyFrom(a, to, oa, from))
	}
	s.copyTasks(dst, other, src)
}

// recycleTable releases everything copyable components and queued payloads hold.
func (s *State) recycleTable() {
	a := s.arena
	for id, info := range s.schema.byAll {
		if info == nil {
			continue
		}
		if reg := s.registry(AllTypeID(id)); reg != arena.Null {
			info.ops.recycle(a, reg)
		}
	}
	td := s.tableData()
	s.releaseTasks(td.nextTick)
	s.releaseTasks(td.nextFrame)
}
