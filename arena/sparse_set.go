package arena

// SparseSet maps small integer ids to densely packed values.
//
// sparse[id] holds the dense index plus one, so a zero entry means the id has no slot. Removed
// slots are recycled through freeIndexes before the dense storage grows.
type SparseSet[T any] struct {
	sparse      Array[int32]
	dense       List[T]
	freeIndexes Stack[int32]
}

func NewSparseSet[T any](a *Arena, capacity int) SparseSet[T] {
	return SparseSet[T]{
		sparse: NewArray[int32](a, capacity),
		dense:  NewList[T](a, 0),
	}
}

// Validate grows the sparse index to cover ids below capacity.
func (s *SparseSet[T]) Validate(a *Arena, capacity int) bool {
	return s.sparse.Resize(a, capacity)
}

func (s SparseSet[T]) Has(a *Arena, id int) bool {
	return id >= 0 && id < s.sparse.Len() && s.sparse.Read(a, id) != 0
}

func (s *SparseSet[T]) slot(a *Arena, id int) int {
	s.Validate(a, id+1)
	idx := s.sparse.Read(a, id)
	if idx != 0 {
		return int(idx) - 1
	}
	var zero T
	free, ok := s.freeIndexes.Pop(a)
	if ok {
		s.dense.Set(a, int(free), zero)
	} else {
		free = int32(s.dense.Add(a, zero))
	}
	s.sparse.Set(a, id, free+1)
	return int(free)
}

// Set stores v for id, reusing a freed dense slot when one exists.
func (s *SparseSet[T]) Set(a *Arena, id int, v T) {
	s.dense.Set(a, s.slot(a, id), v)
}

// Get returns the value for id, creating a zero slot when id is absent. Use Has to test
// presence.
func (s *SparseSet[T]) Get(a *Arena, id int) *T {
	return s.dense.Get(a, s.slot(a, id))
}

// GetValue returns the value for id, or ErrNotFound without creating a slot.
func (s SparseSet[T]) GetValue(a *Arena, id int) (*T, error) {
	if !s.Has(a, id) {
		return nil, ErrNotFound
	}
	return s.dense.Get(a, int(s.sparse.Read(a, id))-1), nil
}

// Remove releases the slot of id and reports whether one existed.
func (s *SparseSet[T]) Remove(a *Arena, id int) bool {
	if !s.Has(a, id) {
		return false
	}
	idx := s.sparse.Read(a, id) - 1
	var zero T
	s.dense.Set(a, int(idx), zero)
	s.sparse.Set(a, id, 0)
	s.freeIndexes.Push(a, idx)
	return true
}

// RemoveRange removes ids in [from, from+count).
func (s *SparseSet[T]) RemoveRange(a *Arena, from, count int) {
	for id := from; id < from+count; id++ {
		s.Remove(a, id)
	}
}

// DenseLen returns the number of dense slots, including freed ones.
func (s SparseSet[T]) DenseLen() int {
	return s.dense.Count()
}

// SparseLen returns the number of ids covered by the sparse index.
func (s SparseSet[T]) SparseLen() int {
	return s.sparse.Len()
}

// Each visits ids in ascending order. fn must not allocate in a.
func (s SparseSet[T]) Each(a *Arena, fn func(id int, v *T) bool) {
	for id := 0; id < s.sparse.Len(); id++ {
		idx := s.sparse.Read(a, id)
		if idx == 0 {
			continue
		}
		if !fn(id, s.dense.Get(a, int(idx)-1)) {
			return
		}
	}
}

// Clear removes every id, keeping capacity.
func (s *SparseSet[T]) Clear(a *Arena) {
	s.sparse.Clear(a)
	s.dense.Clear(a)
	s.freeIndexes.Clear(a)
}

func (s *SparseSet[T]) Dispose(a *Arena) {
	s.sparse.Dispose(a)
	s.dense.Dispose(a)
	s.freeIndexes.Dispose(a)
}

func CopySparseSet[T any](dstA *Arena, dst *SparseSet[T], srcA *Arena, src SparseSet[T], policy CopyPolicy[T]) {
	CopyArray(dstA, &dst.sparse, srcA, src.sparse, nil)
	CopyList(dstA, &dst.dense, srcA, src.dense, policy)
	CopyStack(dstA, &dst.freeIndexes, srcA, src.freeIndexes)
}
