package arena

import "fmt"

type slice struct {
	ptr   MemPtr
	start int32
	count int32
}

// SlicedArray grows by appending slices instead of reallocating, so existing elements never move
// until Merge compacts everything into one contiguous block.
type SlicedArray[T any] struct {
	data   Array[T]
	slices Array[slice]
	length int32
}

func NewSlicedArray[T any](a *Arena, length int) SlicedArray[T] {
	return SlicedArray[T]{data: NewArray[T](a, length), length: int32(length)}
}

func (s SlicedArray[T]) Len() int {
	return int(s.length)
}

// Sliced reports whether the array holds slices waiting for a Merge.
func (s SlicedArray[T]) Sliced() bool {
	return s.slices.Len() > 0
}

func (s SlicedArray[T]) Get(a *Arena, i int) *T {
	if i < s.data.Len() {
		return s.data.Get(a, i)
	}
	for j := 0; j < s.slices.Len(); j++ {
		sl := s.slices.Read(a, j)
		if i < int(sl.start+sl.count) {
			if i < int(sl.start) {
				break
			}
			return (*T)(a.pointer(sl.ptr + MemPtr((i-int(sl.start))*sizeOf[T]())))
		}
	}
	panic(fmt.Sprintf("arena: index %d out of range [0:%d]", i, s.length))
}

func (s SlicedArray[T]) Read(a *Arena, i int) T {
	return *s.Get(a, i)
}

func (s SlicedArray[T]) Set(a *Arena, i int, v T) {
	*s.Get(a, i) = v
}

// Resize grows the array by appending one zeroed slice and reports whether it grew.
func (s *SlicedArray[T]) Resize(a *Arena, length int) bool {
	if length <= int(s.length) {
		return false
	}
	if !s.data.IsCreated() {
		s.data.Resize(a, length)
		s.length = int32(length)
		return true
	}
	count := length - int(s.length)
	sl := slice{
		ptr:   a.Alloc(count * sizeOf[T]()),
		start: s.length,
		count: int32(count),
	}
	s.slices.Resize(a, s.slices.Len()+1)
	s.slices.Set(a, s.slices.Len()-1, sl)
	s.length = int32(length)
	return true
}

// Merge moves every slice into the contiguous block.
func (s *SlicedArray[T]) Merge(a *Arena) {
	if !s.Sliced() {
		return
	}
	size := sizeOf[T]()
	s.data.Resize(a, int(s.length))
	for j := 0; j < s.slices.Len(); j++ {
		sl := s.slices.Read(a, j)
		n := int(sl.count) * size
		copy(a.Bytes(s.data.ptr+MemPtr(int(sl.start)*size), n), a.Bytes(sl.ptr, n))
		a.Free(sl.ptr)
	}
	s.slices.Dispose(a)
}

// Clear zeroes every element.
func (s SlicedArray[T]) Clear(a *Arena) {
	s.data.Clear(a)
	size := sizeOf[T]()
	for j := 0; j < s.slices.Len(); j++ {
		sl := s.slices.Read(a, j)
		clear(a.Bytes(sl.ptr, int(sl.count)*size))
	}
}

func (s *SlicedArray[T]) Dispose(a *Arena) {
	for j := 0; j < s.slices.Len(); j++ {
		a.Free(s.slices.Read(a, j).ptr)
	}
	s.slices.Dispose(a)
	s.data.Dispose(a)
	*s = SlicedArray[T]{}
}

// CopySliced makes dst a merged copy of src.
func CopySliced[T any](dstA *Arena, dst *SlicedArray[T], srcA *Arena, src SlicedArray[T], policy CopyPolicy[T]) {
	dst.Merge(dstA)
	if !src.Sliced() {
		CopyArray(dstA, &dst.data, srcA, src.data, policy)
		dst.length = src.length
		return
	}
	n := src.Len()
	if policy != nil {
		for i := n; i < dst.data.Len(); i++ {
			item := dst.data.Read(dstA, i)
			policy.Recycle(i, &item)
		}
	}
	dst.data.Truncate(dstA, n)
	dst.data.Resize(dstA, n)
	dst.length = int32(n)
	for i := 0; i < n; i++ {
		from := src.Read(srcA, i)
		if policy == nil {
			dst.data.Set(dstA, i, from)
			continue
		}
		to := dst.data.Read(dstA, i)
		policy.Copy(i, &from, &to)
		dst.data.Set(dstA, i, to)
	}
}
