/*
Package arena provides a relocatable memory block and generic containers built on top of it.

Everything stored in an Arena is addressed by a MemPtr, a byte offset into the block. Because no
container keeps a Go pointer into the block (or to the Arena itself), an entire container graph can
be cloned, overwritten, or persisted by copying the raw bytes and keeping the handle values.

Core Concepts:

  - Arena: a single growable block of words. Offset 0 is reserved, so a zero MemPtr is null.
  - MemPtr: an offset valid only for the arena that produced it (or a byte-for-byte copy of it).
  - Containers: Array, SlicedArray, List, Stack, SparseSet and HashSet. Each is a small value type
    that lives either on the Go heap or inside another arena allocation, and takes the arena as an
    explicit argument on every call.

Only pointer-free types may be stored in an arena. The first use of a type containing pointers,
strings, slices, maps, interfaces, channels or funcs panics.

Pointers returned by Ref, Get and similar accessors are invalidated by any call that may allocate
(Alloc, Resize, Add, Set on a growing container, ...). Callers that mutate a container held inside
another arena allocation copy the holder out, mutate it, and write it back:

	holder := *arena.Ref[registry](a, ptr)
	holder.values.Resize(a, 128)
	*arena.Ref[registry](a, ptr) = holder
*/
package arena
