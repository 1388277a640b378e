package arena

import (
	"fmt"
	"unsafe"
)

// CopyPolicy customizes element copies between containers. Both methods receive Go-side copies
// of the elements; the container writes the result back, so implementations may allocate.
type CopyPolicy[T any] interface {
	Copy(index int, from, to *T)
	Recycle(index int, item *T)
}

// Array is a resizable, zero-initialized array stored in an arena.
type Array[T any] struct {
	ptr    MemPtr
	length int32
}

func sizeOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// NewArray allocates an array of length zero values.
func NewArray[T any](a *Arena, length int) Array[T] {
	checkType[T]()
	arr := Array[T]{}
	arr.Resize(a, length)
	return arr
}

// IsCreated reports whether the array owns a block.
func (arr Array[T]) IsCreated() bool {
	return arr.ptr != Null
}

func (arr Array[T]) Len() int {
	return int(arr.length)
}

// Cap returns how many elements fit before the next reallocation.
func (arr Array[T]) Cap(a *Arena) int {
	size := sizeOf[T]()
	if size == 0 || arr.ptr == Null {
		return arr.Len()
	}
	return a.BlockSize(arr.ptr) / size
}

// Get returns a pointer to element i, invalidated by the next allocation in a.
func (arr Array[T]) Get(a *Arena, i int) *T {
	if i < 0 || i >= int(arr.length) {
		panic(fmt.Sprintf("arena: index %d out of range [0:%d]", i, arr.length))
	}
	return (*T)(a.pointer(arr.ptr + MemPtr(i*sizeOf[T]())))
}

func (arr Array[T]) Read(a *Arena, i int) T {
	return *arr.Get(a, i)
}

func (arr Array[T]) Set(a *Arena, i int, v T) {
	*arr.Get(a, i) = v
}

// Resize grows the array to length, zeroing new elements. It never shrinks and reports whether
// the length changed.
func (arr *Array[T]) Resize(a *Arena, length int) bool {
	if length <= int(arr.length) {
		return false
	}
	size := sizeOf[T]()
	if arr.ptr == Null {
		arr.ptr = a.Alloc(length * size)
	} else if length > arr.Cap(a) {
		capacity := max(length, 2*int(arr.length), 4)
		arr.ptr = a.Realloc(arr.ptr, capacity*size)
	}
	arr.length = int32(length)
	return true
}

// Truncate shrinks the logical length, zeroing the dropped elements. Capacity is retained.
func (arr *Array[T]) Truncate(a *Arena, length int) {
	if length >= int(arr.length) {
		return
	}
	size := sizeOf[T]()
	clear(a.Bytes(arr.ptr+MemPtr(length*size), (int(arr.length)-length)*size))
	arr.length = int32(length)
}

// Clear zeroes every element, keeping the length.
func (arr Array[T]) Clear(a *Arena) {
	if arr.ptr == Null {
		return
	}
	clear(a.Bytes(arr.ptr, int(arr.length)*sizeOf[T]()))
}

// Slice views the elements as a Go slice, invalidated by the next allocation in a.
func (arr Array[T]) Slice(a *Arena) []T {
	if arr.ptr == Null || arr.length == 0 {
		return nil
	}
	return unsafe.Slice((*T)(a.pointer(arr.ptr)), arr.length)
}

// Dispose frees the block and resets the array.
func (arr *Array[T]) Dispose(a *Arena) {
	a.Free(arr.ptr)
	*arr = Array[T]{}
}

// CopyArray makes dst a copy of src. The arenas may differ. With a nil policy elements are
// copied bitwise; otherwise surplus dst elements are recycled and each element goes through
// policy.Copy.
func CopyArray[T any](dstA *Arena, dst *Array[T], srcA *Arena, src Array[T], policy CopyPolicy[T]) {
	if dstA == srcA && dst.ptr == src.ptr {
		return
	}
	n := src.Len()
	if policy != nil {
		for i := n; i < dst.Len(); i++ {
			item := dst.Read(dstA, i)
			policy.Recycle(i, &item)
		}
	}
	dst.Truncate(dstA, n)
	dst.Resize(dstA, n)
	if n == 0 {
		return
	}
	if policy == nil {
		size := n * sizeOf[T]()
		copy(dstA.Bytes(dst.ptr, size), srcA.Bytes(src.ptr, size))
		return
	}
	for i := 0; i < n; i++ {
		from := src.Read(srcA, i)
		to := dst.Read(dstA, i)
		policy.Copy(i, &from, &to)
		dst.Set(dstA, i, to)
	}
}
