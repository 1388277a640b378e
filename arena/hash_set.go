package arena

import "fmt"

// Equatable elements supply their own arena-aware equality and hash.
type Equatable[T any] interface {
	Equals(a *Arena, other T) bool
	Hash(a *Arena) uint32
}

type hashSlot[T any] struct {
	hashCode int32
	next     int32
	value    T
}

// HashSet is a chained hash set with prime-sized bucket arrays.
//
// buckets hold slot index plus one. A chain ends at next == -1; freed slots are threaded
// through next starting at freeList.
type HashSet[T Equatable[T]] struct {
	buckets   Array[int32]
	slots     Array[hashSlot[T]]
	count     int32
	freeList  int32
	freeCount int32
}

func NewHashSet[T Equatable[T]](a *Arena, capacity int) HashSet[T] {
	h := HashSet[T]{freeList: -1}
	h.initialize(a, capacity)
	return h
}

func (h *HashSet[T]) initialize(a *Arena, capacity int) {
	size := GetPrime(capacity)
	h.buckets = NewArray[int32](a, size)
	h.slots = NewArray[hashSlot[T]](a, size)
	h.freeList = -1
}

func (h HashSet[T]) IsCreated() bool {
	return h.buckets.IsCreated()
}

// Count returns the number of elements.
func (h HashSet[T]) Count() int {
	return int(h.count - h.freeCount)
}

func hashOf[T Equatable[T]](a *Arena, v T) int32 {
	return int32(v.Hash(a) & 0x7FFFFFFF)
}

func (h HashSet[T]) find(a *Arena, v T) int {
	if !h.IsCreated() {
		return -1
	}
	hc := hashOf(a, v)
	bucket := int(hc) % h.buckets.Len()
	for i := int(h.buckets.Read(a, bucket)) - 1; i >= 0; {
		s := h.slots.Read(a, i)
		if s.hashCode == hc && s.value.Equals(a, v) {
			return i
		}
		i = int(s.next)
	}
	return -1
}

func (h HashSet[T]) Contains(a *Arena, v T) bool {
	return h.find(a, v) >= 0
}

// TryGetValue returns the stored element equal to v.
func (h HashSet[T]) TryGetValue(a *Arena, v T) (T, bool) {
	if i := h.find(a, v); i >= 0 {
		return h.slots.Read(a, i).value, true
	}
	var zero T
	return zero, false
}

// GetValue returns the stored element equal to v, or ErrNotFound.
func (h HashSet[T]) GetValue(a *Arena, v T) (T, error) {
	found, ok := h.TryGetValue(a, v)
	if !ok {
		return found, ErrNotFound
	}
	return found, nil
}

// Add inserts v and reports false when an equal element is already present.
func (h *HashSet[T]) Add(a *Arena, v T) bool {
	if !h.IsCreated() {
		h.initialize(a, 0)
	}
	if h.find(a, v) >= 0 {
		return false
	}
	hc := hashOf(a, v)
	var index int
	if h.freeCount > 0 {
		index = int(h.freeList)
		h.freeList = h.slots.Read(a, index).next
		h.freeCount--
	} else {
		if int(h.count) == h.slots.Len() {
			h.IncreaseCapacity(a)
		}
		index = int(h.count)
		h.count++
	}
	bucket := int(hc) % h.buckets.Len()
	h.slots.Set(a, index, hashSlot[T]{
		hashCode: hc,
		next:     h.buckets.Read(a, bucket) - 1,
		value:    v,
	})
	h.buckets.Set(a, bucket, int32(index)+1)
	return true
}

// Remove deletes the element equal to v and reports whether it was present.
func (h *HashSet[T]) Remove(a *Arena, v T) bool {
	if !h.IsCreated() {
		return false
	}
	hc := hashOf(a, v)
	bucket := int(hc) % h.buckets.Len()
	last := -1
	for i := int(h.buckets.Read(a, bucket)) - 1; i >= 0; {
		s := h.slots.Read(a, i)
		if s.hashCode == hc && s.value.Equals(a, v) {
			if last < 0 {
				h.buckets.Set(a, bucket, s.next+1)
			} else {
				h.slots.Get(a, last).next = s.next
			}
			h.slots.Set(a, i, hashSlot[T]{hashCode: -1, next: h.freeList})
			h.freeList = int32(i)
			h.freeCount++
			return true
		}
		last = i
		i = int(s.next)
	}
	return false
}

// IncreaseCapacity rehashes into the next prime size.
func (h *HashSet[T]) IncreaseCapacity(a *Arena) {
	h.setCapacity(a, ExpandPrime(int(h.count)))
}

func (h *HashSet[T]) setCapacity(a *Arena, size int) {
	if size <= int(h.count) {
		panic(fmt.Sprintf("arena: hash set capacity %d does not exceed count %d", size, h.count))
	}
	slots := NewArray[hashSlot[T]](a, size)
	buckets := NewArray[int32](a, size)
	for i := 0; i < int(h.count); i++ {
		s := h.slots.Read(a, i)
		if s.hashCode >= 0 {
			bucket := int(s.hashCode) % size
			s.next = buckets.Read(a, bucket) - 1
			buckets.Set(a, bucket, int32(i)+1)
		}
		slots.Set(a, i, s)
	}
	h.slots.Dispose(a)
	h.buckets.Dispose(a)
	h.slots = slots
	h.buckets = buckets
}

// Each visits elements in slot order until fn returns false.
func (h HashSet[T]) Each(a *Arena, fn func(T) bool) {
	for i := 0; i < int(h.count); i++ {
		s := h.slots.Read(a, i)
		if s.hashCode >= 0 && !fn(s.value) {
			return
		}
	}
}

// Clear removes every element, keeping capacity.
func (h *HashSet[T]) Clear(a *Arena) {
	if h.count == 0 {
		return
	}
	h.buckets.Clear(a)
	h.slots.Clear(a)
	h.count = 0
	h.freeList = -1
	h.freeCount = 0
}

func (h *HashSet[T]) Dispose(a *Arena) {
	h.buckets.Dispose(a)
	h.slots.Dispose(a)
	*h = HashSet[T]{freeList: -1}
}

// CopyHashSet makes dst a bitwise copy of src. Elements must not hold handles into srcA.
func CopyHashSet[T Equatable[T]](dstA *Arena, dst *HashSet[T], srcA *Arena, src HashSet[T]) {
	if !src.IsCreated() {
		dst.Dispose(dstA)
		return
	}
	CopyArray(dstA, &dst.buckets, srcA, src.buckets, nil)
	CopyArray(dstA, &dst.slots, srcA, src.slots, nil)
	dst.count = src.count
	dst.freeList = src.freeList
	dst.freeCount = src.freeCount
}
