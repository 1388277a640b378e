package rewind

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/TheBitDrifter/rewind/arena"
)

// registryOps is the type-erased face of a typed registry. Every method receives the arena
// holding the registry; implementations never keep one.
type registryOps interface {
	create(a *arena.Arena, id AllTypeID, capacity int) arena.MemPtr
	validate(a *arena.Arena, reg arena.MemPtr, capacity int) bool
	merge(a *arena.Arena, reg arena.MemPtr)
	clearValue(a *arena.Arena, reg arena.MemPtr, id uint32)
	copyEntity(a *arena.Arena, reg arena.MemPtr, from, to uint32)
	copyFrom(dstA *arena.Arena, dst arena.MemPtr, srcA *arena.Arena, src arena.MemPtr) arena.MemPtr
	clear(a *arena.Arena, reg arena.MemPtr)
	recycle(a *arena.Arena, reg arena.MemPtr)
	hash(a *arena.Arena, reg arena.MemPtr, d *xxhash.Digest)
	getObject(a *arena.Arena, reg arena.MemPtr, id uint32) any
	setObject(s *State, e Entity, v any) error
	setDefault(s *State, e Entity)

	runTask(s *State, t task)
	freePayload(a *arena.Arena, p arena.MemPtr, release bool)
	clonePayload(dstA, srcA *arena.Arena, p arena.MemPtr) arena.MemPtr
}

type registryValues[T any] struct {
	dense  arena.SlicedArray[T]
	sparse arena.SparseSet[T]
}

// copier deep-copies and releases values of copyable component types.
type copier[T any] interface {
	copyValue(dstA, srcA *arena.Arena, to, from *T)
	release(a *arena.Arena, v *T)
}

type copyableAdapter[T any, PT Copyable[T]] struct{}

func (copyableAdapter[T, PT]) copyValue(dstA, srcA *arena.Arena, to, from *T) {
	PT(to).CopyFrom(dstA, srcA, from)
}

func (copyableAdapter[T, PT]) release(a *arena.Arena, v *T) {
	PT(v).OnRecycle(a)
}

type componentOps[T any] struct {
	info   *componentInfo
	copier copier[T]
}

var _ registryOps = &componentOps[struct{}]{}

func (o *componentOps[T]) values(a *arena.Arena, reg arena.MemPtr) arena.MemPtr {
	return arena.Ref[registryData](a, reg).values
}

func (o *componentOps[T]) create(a *arena.Arena, id AllTypeID, capacity int) arena.MemPtr {
	r := registryData{
		allID:           id,
		states:          arena.NewArray[componentState](a, capacity),
		lifetimeIndexes: arena.NewList[uint32](a, 0),
	}
	if !o.info.tag {
		var v registryValues[T]
		if o.info.sparse {
			v.sparse = arena.NewSparseSet[T](a, capacity)
		} else {
			v.dense = arena.NewSlicedArray[T](a, capacity)
		}
		r.values = arena.Allocate(a, v)
	}
	return arena.Allocate(a, r)
}

func (o *componentOps[T]) validate(a *arena.Arena, reg arena.MemPtr, capacity int) bool {
	r := *arena.Ref[registryData](a, reg)
	grown := r.states.Resize(a, capacity)
	*arena.Ref[registryData](a, reg) = r
	if o.info.tag {
		return grown
	}
	v := *arena.Ref[registryValues[T]](a, r.values)
	if o.info.sparse {
		v.sparse.Validate(a, capacity)
	} else if v.dense.Resize(a, capacity) {
		grown = true
	}
	*arena.Ref[registryValues[T]](a, r.values) = v
	return grown
}

func (o *componentOps[T]) merge(a *arena.Arena, reg arena.MemPtr) {
	if o.info.tag || o.info.sparse {
		return
	}
	p := o.values(a, reg)
	v := *arena.Ref[registryValues[T]](a, p)
	v.dense.Merge(a)
	*arena.Ref[registryValues[T]](a, p) = v
}

// slot returns the storage of id, creating a sparse slot when needed. The pointer is
// invalidated by the next allocation.
func (o *componentOps[T]) slot(a *arena.Arena, reg arena.MemPtr, id uint32) *T {
	p := o.values(a, reg)
	if !o.info.sparse {
		return arena.Ref[registryValues[T]](a, p).dense.Get(a, int(id))
	}
	v := *arena.Ref[registryValues[T]](a, p)
	if v.sparse.Has(a, int(id)) {
		return v.sparse.Get(a, int(id))
	}
	v.sparse.Set(a, int(id), *new(T))
	*arena.Ref[registryValues[T]](a, p) = v
	return v.sparse.Get(a, int(id))
}

func (o *componentOps[T]) read(a *arena.Arena, reg arena.MemPtr, id uint32) T {
	var zero T
	if o.info.tag {
		return zero
	}
	v := arena.Ref[registryValues[T]](a, o.values(a, reg))
	if o.info.sparse {
		item, err := v.sparse.GetValue(a, int(id))
		if err != nil {
			return zero
		}
		return *item
	}
	return v.dense.Read(a, int(id))
}

// set writes v for e and marks it present. A copyable value being replaced is released first
// unless v is the same value.
func (o *componentOps[T]) set(s *State, e Entity, v T, expire Lifetime) {
	a := s.arena
	reg := s.ensureRegistry(o.info)
	if !o.info.tag {
		if o.copier != nil && s.present(e.ID, o.info.allID) {
			old := o.read(a, reg, e.ID)
			if !sameValue(o.info.layout, &old, &v) {
				o.copier.release(a, &old)
			}
		}
		*o.slot(a, reg, e.ID) = v
	}
	s.markPresent(e, o.info, reg, expire)
}

func (o *componentOps[T]) clearValue(a *arena.Arena, reg arena.MemPtr, id uint32) {
	if o.info.tag {
		return
	}
	if o.copier != nil {
		old := o.read(a, reg, id)
		o.copier.release(a, &old)
	}
	p := o.values(a, reg)
	if o.info.sparse {
		v := *arena.Ref[registryValues[T]](a, p)
		v.sparse.Remove(a, int(id))
		*arena.Ref[registryValues[T]](a, p) = v
		return
	}
	var zero T
	arena.Ref[registryValues[T]](a, p).dense.Set(a, int(id), zero)
}

func (o *componentOps[T]) copyEntity(a *arena.Arena, reg arena.MemPtr, from, to uint32) {
	if o.info.tag || from == to {
		return
	}
	value := o.read(a, reg, from)
	if o.copier != nil {
		var copied T
		o.copier.copyValue(a, a, &copied, &value)
		if st := arena.Ref[registryData](a, reg).states.Read(a, int(to)); st.present {
			old := o.read(a, reg, to)
			o.copier.release(a, &old)
		}
		value = copied
	}
	*o.slot(a, reg, to) = value
}

// copyFrom makes the registry at dst a copy of src, creating it when dst is null.
func (o *componentOps[T]) copyFrom(dstA *arena.Arena, dst arena.MemPtr, srcA *arena.Arena, src arena.MemPtr) arena.MemPtr {
	sr := *arena.Ref[registryData](srcA, src)
	if dst == arena.Null {
		dst = o.create(dstA, sr.allID, 0)
	}
	dr := *arena.Ref[registryData](dstA, dst)
	if !o.info.tag {
		o.copyValues(dstA, dr, srcA, sr)
	}
	arena.CopyArray(dstA, &dr.states, srcA, sr.states, nil)
	arena.CopyList(dstA, &dr.lifetimeIndexes, srcA, sr.lifetimeIndexes, nil)
	*arena.Ref[registryData](dstA, dst) = dr
	return dst
}

func (o *componentOps[T]) copyValues(dstA *arena.Arena, dr registryData, srcA *arena.Arena, sr registryData) {
	dv := *arena.Ref[registryValues[T]](dstA, dr.values)
	sv := *arena.Ref[registryValues[T]](srcA, sr.values)
	switch {
	case o.info.sparse:
		o.copySparse(dstA, &dv, srcA, sv, sr)
	case o.copier == nil:
		arena.CopySliced(dstA, &dv.dense, srcA, sv.dense, nil)
	default:
		policy := &registryCopyPolicy[T]{
			copier:     o.copier,
			dstA:       dstA,
			srcA:       srcA,
			dstPresent: presence(dstA, dr.states),
			srcStates:  sr.states,
		}
		arena.CopySliced(dstA, &dv.dense, srcA, sv.dense, policy)
	}
	*arena.Ref[registryValues[T]](dstA, dr.values) = dv
}

func (o *componentOps[T]) copySparse(dstA *arena.Arena, dv *registryValues[T], srcA *arena.Arena, sv registryValues[T], sr registryData) {
	if o.copier == nil {
		arena.CopySparseSet(dstA, &dv.sparse, srcA, sv.sparse, nil)
		return
	}
	var owned []T
	dv.sparse.Each(dstA, func(_ int, v *T) bool {
		owned = append(owned, *v)
		return true
	})
	for i := range owned {
		o.copier.release(dstA, &owned[i])
	}
	arena.CopySparseSet(dstA, &dv.sparse, srcA, sv.sparse, nil)
	for id, present := range presence(srcA, sr.states) {
		if !present {
			continue
		}
		from, err := sv.sparse.GetValue(srcA, id)
		if err != nil {
			continue
		}
		var to T
		o.copier.copyValue(dstA, srcA, &to, from)
		if item, err := dv.sparse.GetValue(dstA, id); err == nil {
			*item = to
		}
	}
}

// presence snapshots the present flags so they survive allocations in a.
func presence(a *arena.Arena, states arena.Array[componentState]) []bool {
	out := make([]bool, states.Len())
	for i := range out {
		out[i] = states.Read(a, i).present
	}
	return out
}

type registryCopyPolicy[T any] struct {
	copier     copier[T]
	dstA, srcA *arena.Arena
	dstPresent []bool
	srcStates  arena.Array[componentState]
}

func (p *registryCopyPolicy[T]) Copy(index int, from, to *T) {
	p.Recycle(index, to)
	var zero T
	*to = zero
	if index < p.srcStates.Len() && p.srcStates.Read(p.srcA, index).present {
		p.copier.copyValue(p.dstA, p.srcA, to, from)
	}
}

func (p *registryCopyPolicy[T]) Recycle(index int, item *T) {
	if index < len(p.dstPresent) && p.dstPresent[index] {
		p.copier.release(p.dstA, item)
	}
}

func (o *componentOps[T]) clear(a *arena.Arena, reg arena.MemPtr) {
	o.recycle(a, reg)
	r := *arena.Ref[registryData](a, reg)
	r.states.Clear(a)
	r.lifetimeIndexes.Clear(a)
	*arena.Ref[registryData](a, reg) = r
	if o.info.tag {
		return
	}
	v := *arena.Ref[registryValues[T]](a, r.values)
	if o.info.sparse {
		v.sparse.Clear(a)
	} else {
		v.dense.Clear(a)
	}
	*arena.Ref[registryValues[T]](a, r.values) = v
}

// recycle releases every present copyable value.
func (o *componentOps[T]) recycle(a *arena.Arena, reg arena.MemPtr) {
	if o.copier == nil || o.info.tag {
		return
	}
	for id, present := range presence(a, arena.Ref[registryData](a, reg).states) {
		if present {
			v := o.read(a, reg, uint32(id))
			o.copier.release(a, &v)
		}
	}
}

func (o *componentOps[T]) hash(a *arena.Arena, reg arena.MemPtr, d *xxhash.Digest) {
	var buf [9]byte
	for id, present := range presence(a, arena.Ref[registryData](a, reg).states) {
		if !present {
			continue
		}
		binary.LittleEndian.PutUint32(buf[0:], uint32(o.info.allID))
		binary.LittleEndian.PutUint32(buf[4:], uint32(id))
		buf[8] = byte(o.expiry(a, reg, uint32(id)))
		_, _ = d.Write(buf[:])
		if o.info.tag {
			continue
		}
		v := o.read(a, reg, uint32(id))
		if h, ok := any(&v).(Hasher); ok {
			var sum [8]byte
			binary.LittleEndian.PutUint64(sum[:], h.Hash())
			_, _ = d.Write(sum[:])
			continue
		}
		writeValue(d, o.info.layout, &v)
	}
}

func (o *componentOps[T]) expiry(a *arena.Arena, reg arena.MemPtr, id uint32) Lifetime {
	return arena.Ref[registryData](a, reg).states.Read(a, int(id)).expire
}

func (o *componentOps[T]) getObject(a *arena.Arena, reg arena.MemPtr, id uint32) any {
	return o.read(a, reg, id)
}

func (o *componentOps[T]) setObject(s *State, e Entity, v any) error {
	switch value := v.(type) {
	case T:
		o.set(s, e, value, Infinite)
	case *T:
		o.set(s, e, *value, Infinite)
	default:
		return ComponentTypeError{Component: o.info, Value: v}
	}
	return nil
}

func (o *componentOps[T]) setDefault(s *State, e Entity) {
	if !s.present(e.ID, o.info.allID) {
		var zero T
		o.set(s, e, zero, Infinite)
	}
}

func (o *componentOps[T]) newPayload(a *arena.Arena, v T) arena.MemPtr {
	if o.info.tag {
		return arena.Null
	}
	return arena.Allocate(a, v)
}

func (o *componentOps[T]) runTask(s *State, t task) {
	var v T
	if t.payload != arena.Null {
		v = *arena.Ref[T](s.arena, t.payload)
	}
	o.set(s, t.entity, v, t.lifetime)
}

func (o *componentOps[T]) freePayload(a *arena.Arena, p arena.MemPtr, release bool) {
	if p == arena.Null {
		return
	}
	if release && o.copier != nil {
		v := *arena.Ref[T](a, p)
		o.copier.release(a, &v)
	}
	a.Free(p)
}

func (o *componentOps[T]) clonePayload(dstA, srcA *arena.Arena, p arena.MemPtr) arena.MemPtr {
	if p == arena.Null {
		return arena.Null
	}
	v := *arena.Ref[T](srcA, p)
	if o.copier != nil {
		var to T
		o.copier.copyValue(dstA, srcA, &to, &v)
		v = to
	}
	return arena.Allocate(dstA, v)
}
