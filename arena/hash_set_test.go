package arena

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A, B int32
}

func (p pair) Equals(_ *Arena, other pair) bool {
	return p == other
}

func (p pair) Hash(_ *Arena) uint32 {
	return uint32(p.A)*31 + uint32(p.B)
}

// colliding hashes every value to the same bucket.
type colliding struct {
	V int64
}

func (c colliding) Equals(_ *Arena, other colliding) bool {
	return c == other
}

func (c colliding) Hash(_ *Arena) uint32 {
	return 7
}

func TestHashSetAdd(t *testing.T) {
	a := New(0)
	h := NewHashSet[pair](a, 0)

	require.True(t, h.Add(a, pair{1, 2}))
	assert.False(t, h.Add(a, pair{1, 2}), "duplicate reports already present")
	assert.Equal(t, 1, h.Count())

	require.True(t, h.Remove(a, pair{1, 2}))
	require.True(t, h.Add(a, pair{1, 2}))
	assert.Equal(t, 1, h.Count())
	assert.True(t, h.Contains(a, pair{1, 2}))
	assert.False(t, h.Remove(a, pair{9, 9}))
}

func TestHashSetGrowth(t *testing.T) {
	a := New(0)
	var h HashSet[pair]
	for i := int32(0); i < 500; i++ {
		require.True(t, h.Add(a, pair{i, -i}))
	}
	assert.Equal(t, 500, h.Count())
	for i := int32(0); i < 500; i++ {
		assert.True(t, h.Contains(a, pair{i, -i}))
	}

	seen := 0
	h.Each(a, func(pair) bool {
		seen++
		return true
	})
	assert.Equal(t, 500, seen)
}

func TestHashSetCollisionChains(t *testing.T) {
	a := New(0)
	h := NewHashSet[colliding](a, 5)
	for i := int64(0); i < 6; i++ {
		h.Add(a, colliding{i})
	}

	// Remove from the middle, the head and the tail of the chain.
	for _, v := range []int64{2, 5, 0} {
		require.True(t, h.Remove(a, colliding{v}))
	}
	for _, v := range []int64{1, 3, 4} {
		assert.True(t, h.Contains(a, colliding{v}))
	}
	assert.Equal(t, 3, h.Count())

	// Freed slots are reused before the slot array grows.
	slots := h.slots.Len()
	for _, v := range []int64{10, 11, 12} {
		h.Add(a, colliding{v})
	}
	assert.Equal(t, slots, h.slots.Len())
	assert.Equal(t, 6, h.Count())
}

func TestHashSetGetValue(t *testing.T) {
	a := New(0)
	h := NewHashSet[pair](a, 3)
	h.Add(a, pair{4, 4})

	got, err := h.GetValue(a, pair{4, 4})
	require.NoError(t, err)
	assert.Equal(t, pair{4, 4}, got)

	_, err = h.GetValue(a, pair{5, 5})
	assert.True(t, eris.Is(err, ErrNotFound))

	h.Clear(a)
	assert.Equal(t, 0, h.Count())
	assert.False(t, h.Contains(a, pair{4, 4}))
}

func TestHashSetCapacityInvariant(t *testing.T) {
	a := New(0)
	h := NewHashSet[pair](a, 3)
	for i := int32(0); i < 3; i++ {
		h.Add(a, pair{A: i})
	}
	assert.Panics(t, func() { h.setCapacity(a, 3) })
	assert.Equal(t, 7, GetPrime(6))
	assert.Equal(t, 7199369, GetPrime(7199369))
	assert.True(t, isPrime(ExpandPrime(7199369)))
}

func TestCopyHashSet(t *testing.T) {
	srcA, dstA := New(0), New(0)
	src := NewHashSet[pair](srcA, 0)
	src.Add(srcA, pair{1, 1})
	src.Add(srcA, pair{2, 2})

	dst := NewHashSet[pair](dstA, 50)
	dst.Add(dstA, pair{3, 3})
	CopyHashSet(dstA, &dst, srcA, src)

	assert.Equal(t, 2, dst.Count())
	assert.True(t, dst.Contains(dstA, pair{2, 2}))
	assert.False(t, dst.Contains(dstA, pair{3, 3}))

	dst.Remove(dstA, pair{1, 1})
	assert.True(t, src.Contains(srcA, pair{1, 1}))

	var empty HashSet[pair]
	CopyHashSet(dstA, &dst, srcA, empty)
	assert.Equal(t, 0, dst.Count())
	assert.True(t, dst.Add(dstA, pair{1, 1}))
}
