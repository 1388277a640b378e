package arena

import "fmt"

// List is an ordered, growable collection.
type List[T any] struct {
	items Array[T]
	count int32
}

func NewList[T any](a *Arena, capacity int) List[T] {
	return List[T]{items: NewArray[T](a, capacity)}
}

func (l List[T]) Count() int {
	return int(l.count)
}

func (l List[T]) IsCreated() bool {
	return l.items.IsCreated()
}

func (l List[T]) Get(a *Arena, i int) *T {
	if i < 0 || i >= int(l.count) {
		panic(fmt.Sprintf("arena: list index %d out of range [0:%d]", i, l.count))
	}
	return l.items.Get(a, i)
}

func (l List[T]) Read(a *Arena, i int) T {
	return *l.Get(a, i)
}

func (l List[T]) Set(a *Arena, i int, v T) {
	*l.Get(a, i) = v
}

func (l *List[T]) Add(a *Arena, v T) int {
	if int(l.count) == l.items.Len() {
		l.items.Resize(a, max(4, 2*l.items.Len()))
	}
	l.items.Set(a, int(l.count), v)
	l.count++
	return int(l.count) - 1
}

// RemoveAt removes element i, shifting the tail down to keep order.
func (l *List[T]) RemoveAt(a *Arena, i int) {
	l.Get(a, i)
	size := sizeOf[T]()
	if tail := int(l.count) - i - 1; tail > 0 {
		at := l.items.ptr + MemPtr(i*size)
		copy(a.Bytes(at, tail*size), a.Bytes(at+MemPtr(size), tail*size))
	}
	l.count--
	var zero T
	l.items.Set(a, int(l.count), zero)
}

// RemoveAtSwapBack removes element i by moving the last element into its place.
func (l *List[T]) RemoveAtSwapBack(a *Arena, i int) {
	last := int(l.count) - 1
	if i != last {
		l.items.Set(a, i, l.Read(a, last))
	}
	var zero T
	l.items.Set(a, last, zero)
	l.count--
}

// RemoveRange removes n elements starting at i, keeping the order of the rest.
func (l *List[T]) RemoveRange(a *Arena, i, n int) {
	if n <= 0 {
		return
	}
	if i < 0 || i+n > int(l.count) {
		panic(fmt.Sprintf("arena: list range [%d:%d] out of range [0:%d]", i, i+n, l.count))
	}
	size := sizeOf[T]()
	if tail := int(l.count) - i - n; tail > 0 {
		at := l.items.ptr + MemPtr(i*size)
		copy(a.Bytes(at, tail*size), a.Bytes(at+MemPtr(n*size), tail*size))
	}
	l.Truncate(a, int(l.count)-n)
}

// Truncate drops every element from index n on.
func (l *List[T]) Truncate(a *Arena, n int) {
	if n < 0 || n >= int(l.count) {
		return
	}
	size := sizeOf[T]()
	clear(a.Bytes(l.items.ptr+MemPtr(n*size), (int(l.count)-n)*size))
	l.count = int32(n)
}

// IndexOf returns the first index whose element satisfies match, or -1.
func (l List[T]) IndexOf(a *Arena, match func(T) bool) int {
	for i := 0; i < int(l.count); i++ {
		if match(l.items.Read(a, i)) {
			return i
		}
	}
	return -1
}

func (l List[T]) Contains(a *Arena, match func(T) bool) bool {
	return l.IndexOf(a, match) >= 0
}

// Clear empties the list, keeping its capacity.
func (l *List[T]) Clear(a *Arena) {
	l.items.Clear(a)
	l.count = 0
}

func (l *List[T]) Dispose(a *Arena) {
	l.items.Dispose(a)
	l.count = 0
}

func CopyList[T any](dstA *Arena, dst *List[T], srcA *Arena, src List[T], policy CopyPolicy[T]) {
	CopyArray(dstA, &dst.items, srcA, src.items, policy)
	dst.count = src.count
}

// Stack is a LIFO collection.
type Stack[T any] struct {
	items List[T]
}

func NewStack[T any](a *Arena, capacity int) Stack[T] {
	return Stack[T]{items: NewList[T](a, capacity)}
}

func (s Stack[T]) Count() int {
	return s.items.Count()
}

func (s *Stack[T]) Push(a *Arena, v T) {
	s.items.Add(a, v)
}

func (s *Stack[T]) Pop(a *Arena) (T, bool) {
	var zero T
	n := s.items.Count()
	if n == 0 {
		return zero, false
	}
	v := s.items.Read(a, n-1)
	s.items.RemoveAtSwapBack(a, n-1)
	return v, true
}

func (s Stack[T]) Peek(a *Arena) (T, bool) {
	var zero T
	n := s.items.Count()
	if n == 0 {
		return zero, false
	}
	return s.items.Read(a, n-1), true
}

func (s *Stack[T]) Clear(a *Arena) {
	s.items.Clear(a)
}

func (s *Stack[T]) Dispose(a *Arena) {
	s.items.Dispose(a)
}

func CopyStack[T any](dstA *Arena, dst *Stack[T], srcA *Arena, src Stack[T]) {
	CopyList(dstA, &dst.items, srcA, src.items, nil)
}
