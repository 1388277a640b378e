package arena

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"reflect"
	"sync"
	"unsafe"

	"github.com/rotisserie/eris"
)

// MemPtr is a byte offset into an Arena. The zero value is the null handle.
type MemPtr int64

// Null is the canonical unallocated handle.
const Null MemPtr = 0

const (
	wordSize    = 8
	numClasses  = 48
	usedFlag    = uint64(1) << 32
	classMask   = uint64(0xFF)
	minArenaLen = 64
	binaryMagic = uint32(0x52574e41) // "RWNA"
)

// Arena is a growable block of memory handing out offset handles.
//
// Blocks are rounded up to a power-of-two size class and recycled through one free list per
// class. The first word of a free block stores the next free handle.
type Arena struct {
	words []uint64
	top   int64
	free  [numClasses]MemPtr
	live  int64
}

// New creates an arena with room for at least initialBytes of payload.
func New(initialBytes int) *Arena {
	n := max(initialBytes/wordSize+1, minArenaLen)
	return &Arena{
		words: make([]uint64, n),
		top:   wordSize,
	}
}

// Len returns the number of bytes in use, including headers and freed blocks.
func (a *Arena) Len() int {
	return int(a.top)
}

// Cap returns the size of the backing block in bytes.
func (a *Arena) Cap() int {
	return len(a.words) * wordSize
}

// Live returns the payload bytes of blocks currently allocated.
func (a *Arena) Live() int64 {
	return a.live
}

func classFor(size int) int {
	if size <= wordSize {
		return 0
	}
	return bits.Len(uint((size - 1) / wordSize))
}

func classBytes(class int) int {
	return wordSize << class
}

// Alloc reserves a zeroed block of at least size bytes.
func (a *Arena) Alloc(size int) MemPtr {
	if size < 0 {
		panic(fmt.Sprintf("arena: negative allocation size %d", size))
	}
	class := classFor(size)
	payload := classBytes(class)
	if head := a.free[class]; head != Null {
		a.free[class] = MemPtr(a.words[head/wordSize])
		clear(a.words[head/wordSize : (int(head)+payload)/wordSize])
		a.words[head/wordSize-1] = uint64(class) | usedFlag
		a.live += int64(payload)
		return head
	}
	need := a.top + wordSize + int64(payload)
	if need > int64(len(a.words))*wordSize {
		a.grow(need)
	}
	a.words[a.top/wordSize] = uint64(class) | usedFlag
	ptr := MemPtr(a.top + wordSize)
	a.top = need
	a.live += int64(payload)
	return ptr
}

func (a *Arena) grow(need int64) {
	n := max(int(need/wordSize), 2*len(a.words))
	words := make([]uint64, n)
	copy(words, a.words[:a.top/wordSize])
	a.words = words
}

func (a *Arena) header(p MemPtr) uint64 {
	if p <= Null || int64(p) >= a.top || p%wordSize != 0 {
		panic(fmt.Sprintf("arena: invalid handle %d", p))
	}
	return a.words[p/wordSize-1]
}

// Free returns a block to its size class. Freeing Null is a no-op.
func (a *Arena) Free(p MemPtr) {
	if p == Null {
		return
	}
	h := a.header(p)
	if h&usedFlag == 0 {
		panic(fmt.Sprintf("arena: double free of handle %d", p))
	}
	class := int(h & classMask)
	payload := classBytes(class)
	clear(a.words[p/wordSize : (int(p)+payload)/wordSize])
	a.words[p/wordSize-1] = uint64(class)
	a.words[p/wordSize] = uint64(a.free[class])
	a.free[class] = p
	a.live -= int64(payload)
}

// BlockSize returns the usable payload size of an allocated block.
func (a *Arena) BlockSize(p MemPtr) int {
	if p == Null {
		return 0
	}
	return classBytes(int(a.header(p) & classMask))
}

// Realloc grows a block to at least size bytes, preserving its content. The returned handle
// may differ from p, in which case p has been freed.
func (a *Arena) Realloc(p MemPtr, size int) MemPtr {
	if p == Null {
		return a.Alloc(size)
	}
	old := a.BlockSize(p)
	if size <= old {
		return p
	}
	next := a.Alloc(size)
	copy(a.words[next/wordSize:], a.words[p/wordSize:(int(p)+old)/wordSize])
	a.Free(p)
	return next
}

// Bytes exposes n bytes starting at p. The slice is invalidated by the next allocation.
func (a *Arena) Bytes(p MemPtr, n int) []byte {
	if n == 0 {
		return nil
	}
	if int64(p)+int64(n) > int64(len(a.words))*wordSize {
		panic(fmt.Sprintf("arena: range [%d:%d] out of bounds", p, int64(p)+int64(n)))
	}
	base := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(a.words))), len(a.words)*wordSize)
	return base[p : int64(p)+int64(n)]
}

func (a *Arena) pointer(p MemPtr) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(a.words)), p)
}

// Allocate stores v in a new block and returns its handle.
func Allocate[T any](a *Arena, v T) MemPtr {
	checkType[T]()
	p := a.Alloc(int(unsafe.Sizeof(v)))
	*Ref[T](a, p) = v
	return p
}

// Ref returns a pointer to the T stored at p.
func Ref[T any](a *Arena, p MemPtr) *T {
	if p == Null {
		panic("arena: dereference of null handle")
	}
	return (*T)(a.pointer(p))
}

// Clone returns an independent copy of the arena. Handles issued by a remain valid in the copy.
func (a *Arena) Clone() *Arena {
	c := &Arena{
		words: make([]uint64, len(a.words)),
		top:   a.top,
		free:  a.free,
		live:  a.live,
	}
	copy(c.words, a.words[:a.top/wordSize])
	return c
}

// CopyFrom overwrites a with the content of other, reusing a's backing block when it is large
// enough.
func (a *Arena) CopyFrom(other *Arena) {
	if a == other {
		return
	}
	used := other.top / wordSize
	if int64(len(a.words)) < used {
		a.words = make([]uint64, len(other.words))
	} else if a.top > other.top {
		clear(a.words[used : a.top/wordSize])
	}
	copy(a.words, other.words[:used])
	a.top = other.top
	a.free = other.free
	a.live = other.live
}

// Reset releases every allocation while keeping the backing block.
func (a *Arena) Reset() {
	clear(a.words[:a.top/wordSize])
	a.top = wordSize
	a.free = [numClasses]MemPtr{}
	a.live = 0
}

// MarshalBinary encodes the used part of the arena.
func (a *Arena) MarshalBinary() ([]byte, error) {
	used := a.top / wordSize
	buf := make([]byte, 0, 4+8+8+numClasses*8+used*wordSize)
	buf = binary.LittleEndian.AppendUint32(buf, binaryMagic)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(a.top))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(a.live))
	for _, head := range a.free {
		buf = binary.LittleEndian.AppendUint64(buf, uint64(head))
	}
	for _, w := range a.words[:used] {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf, nil
}

// UnmarshalBinary replaces the arena content with data produced by MarshalBinary.
func (a *Arena) UnmarshalBinary(data []byte) error {
	const fixed = 4 + 8 + 8 + numClasses*8
	if len(data) < fixed {
		return eris.Wrapf(ErrCorrupt, "arena buffer too short: %d bytes", len(data))
	}
	if binary.LittleEndian.Uint32(data) != binaryMagic {
		return eris.Wrap(ErrCorrupt, "arena buffer has wrong magic")
	}
	top := int64(binary.LittleEndian.Uint64(data[4:]))
	if top < wordSize || top%wordSize != 0 || int64(len(data)-fixed) != top {
		return eris.Wrapf(ErrCorrupt, "arena buffer declares %d bytes, carries %d", top, len(data)-fixed)
	}
	a.live = int64(binary.LittleEndian.Uint64(data[12:]))
	off := 20
	for i := range a.free {
		a.free[i] = MemPtr(binary.LittleEndian.Uint64(data[off:]))
		off += 8
	}
	used := int(top / wordSize)
	if len(a.words) < used {
		a.words = make([]uint64, max(used, minArenaLen))
	} else {
		clear(a.words)
	}
	for i := 0; i < used; i++ {
		a.words[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	a.top = top
	return nil
}

var checkedTypes sync.Map

func checkType[T any]() {
	typ := reflect.TypeFor[T]()
	if _, ok := checkedTypes.Load(typ); ok {
		return
	}
	if !pointerFree(typ) {
		panic(fmt.Sprintf("arena: type %v contains pointers and cannot be stored in an arena", typ))
	}
	checkedTypes.Store(typ, struct{}{})
}

func pointerFree(typ reflect.Type) bool {
	switch typ.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return typ.Len() == 0 || pointerFree(typ.Elem())
	case reflect.Struct:
		for i := 0; i < typ.NumField(); i++ {
			if !pointerFree(typ.Field(i).Type) {
				return false
			}
		}
		return true
	}
	return false
}

// AsBytes views a value as its raw bytes.
func AsBytes[T any](v *T) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(v)), unsafe.Sizeof(*v))
}

// Storable reports whether values of T may live in an arena.
func Storable[T any]() bool {
	return pointerFree(reflect.TypeFor[T]())
}
